package handler

import (
	"context"
	"net/http"

	"github.com/hszk-dev/vidbrief/internal/usecase"
)

// BundleLoader reads cached artifacts without running the pipeline.
type BundleLoader interface {
	LoadBundle(ctx context.Context, path string) (*usecase.CacheBundle, bool)
}

// RecentLister lists recently processed videos.
type RecentLister interface {
	Load() []string
}

type RecentResponse struct {
	Videos []string `json:"videos"`
}

// CacheHandler serves cached artifacts and the recent-files list.
type CacheHandler struct {
	cache  BundleLoader
	recent RecentLister
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cache BundleLoader, recent RecentLister) *CacheHandler {
	return &CacheHandler{cache: cache, recent: recent}
}

// Bundle handles GET /v1/cache?path=...
func (h *CacheHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		Error(w, http.StatusBadRequest, "invalid_path", "Query parameter 'path' is required")
		return
	}

	bundle, ok := h.cache.LoadBundle(r.Context(), path)
	if !ok {
		Error(w, http.StatusNotFound, "cache_miss", "No cached transcript for this file")
		return
	}

	JSON(w, http.StatusOK, bundle)
}

// Recent handles GET /v1/recent
func (h *CacheHandler) Recent(w http.ResponseWriter, r *http.Request) {
	videos := h.recent.Load()
	if videos == nil {
		videos = []string{}
	}
	JSON(w, http.StatusOK, RecentResponse{Videos: videos})
}
