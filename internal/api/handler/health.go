package handler

import (
	"net/http"
)

type HealthResponse struct {
	Status string `json:"status"`
	Busy   bool   `json:"busy"`
}

// BusyReporter reports whether a pipeline run is active.
type BusyReporter interface {
	Busy() bool
}

// Health returns a handler for GET /health that also reports pipeline occupancy.
func Health(pipeline BusyReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Busy:   pipeline.Busy(),
		})
	}
}
