package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
	"github.com/matsource/matsource/pkg/types/material"
)

// Searcher runs one material search.
type Searcher interface {
	Search(ctx context.Context, req *material.SearchRequest) (*material.SearchResponse, error)
}

// SearchHandler handles the material search endpoint.
type SearchHandler struct {
	searcher Searcher
	logger   logging.Logger
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(searcher Searcher, logger logging.Logger) *SearchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SearchHandler{searcher: searcher, logger: logger.Named("search_handler")}
}

// Search handles POST /api/v1/materials/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req material.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	for _, pr := range req.PropertyRequirements {
		if !pr.Importance.Valid() {
			writeError(w, http.StatusBadRequest, "invalid requirement importance: "+string(pr.Importance))
			return
		}
	}

	resp, err := h.searcher.Search(r.Context(), &req)
	if err != nil {
		h.logger.Error("search failed",
			logging.String("query", req.Query),
			logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
