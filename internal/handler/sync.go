package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/datavault/datavault-go/internal/middleware"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/service"
)

// SyncHandler handles HTTP requests that trigger sync runs.
type SyncHandler struct {
	service *service.SyncService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(svc *service.SyncService) *SyncHandler {
	return &SyncHandler{service: svc}
}

// HandleTrigger handles POST /api/v1/sync/{provider} requests. The run
// executes on the worker pool; the response only acknowledges enqueueing.
func (h *SyncHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	providerName := chi.URLParam(r, "provider")

	if err := h.service.Trigger(r.Context(), userID, providerName); err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "sync started for " + providerName,
		"status":  model.SyncStatusPending,
	})
}
