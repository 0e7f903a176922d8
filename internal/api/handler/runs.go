package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/vidbrief/internal/usecase"
)

// RunService starts and tracks pipeline runs.
type RunService interface {
	Start(ctx context.Context, req usecase.Request) (usecase.RunSnapshot, error)
	Get(id string) (usecase.RunSnapshot, error)
	Cancel(id string) (usecase.RunSnapshot, error)
}

// Request/Response types

type CreateRunRequest struct {
	Path         string `json:"path"`
	ForceSummary bool   `json:"force_summary"`
}

type RunResultResponse struct {
	ID      string               `json:"id"`
	Video   string               `json:"video"`
	State   string               `json:"state"`
	Result  *usecase.CacheBundle `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
	Backend string               `json:"backend,omitempty"`
}

// RunHandler handles run-related HTTP requests.
type RunHandler struct {
	svc RunService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(svc RunService) *RunHandler {
	return &RunHandler{svc: svc}
}

// Create handles POST /v1/runs
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Path == "" {
		Error(w, http.StatusBadRequest, "invalid_path", "Path is required")
		return
	}

	snap, err := h.svc.Start(r.Context(), usecase.Request{
		Path:         req.Path,
		ForceSummary: req.ForceSummary,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	Accepted(w, "/v1/runs/"+snap.ID, snap)
}

// Get handles GET /v1/runs/{id}
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, snap)
}

// Result handles GET /v1/runs/{id}/result
// A run that has not finished yet returns 409.
func (h *RunHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.Get(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !snap.Done {
		Error(w, http.StatusConflict, "run_in_progress", "Run has not finished yet")
		return
	}

	JSON(w, http.StatusOK, toRunResultResponse(snap))
}

// Cancel handles DELETE /v1/runs/{id}
func (h *RunHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := runID(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.Cancel(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	Accepted(w, "/v1/runs/"+id, snap)
}

func runID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		Error(w, http.StatusBadRequest, "invalid_run_id", "Run ID must be a valid UUID")
		return "", false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		Error(w, http.StatusBadRequest, "invalid_path", "Path is required")
	case errors.Is(err, usecase.ErrFileNotFound):
		Error(w, http.StatusNotFound, "file_not_found", "Video file not found")
	case errors.Is(err, usecase.ErrRunNotFound):
		Error(w, http.StatusNotFound, "run_not_found", "Run not found")
	case errors.Is(err, usecase.ErrBusy):
		Error(w, http.StatusConflict, "busy", "A video is already being processed")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toRunResultResponse(s usecase.RunSnapshot) RunResultResponse {
	resp := RunResultResponse{
		ID:    s.ID,
		Video: s.Video,
		State: s.State.String(),
		Error: s.Error,
	}
	if s.Backend != nil {
		resp.Backend = s.Backend.Label()
	}
	// A failed run still reports a transcript it produced before failing.
	if s.Error == "" || s.Segments != nil {
		resp.Result = &usecase.CacheBundle{
			Video:      s.Video,
			Segments:   s.Segments,
			Transcript: s.Transcript,
			Summary:    s.Summary,
			Metadata:   s.Metadata,
		}
	}
	return resp
}
