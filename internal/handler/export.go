package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/datavault/datavault-go/internal/middleware"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/service"
)

// ExportHandler handles HTTP requests for export packaging and download.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// HandleCreate handles POST /api/v1/exports requests.
func (h *ExportHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.Create(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRecords):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /api/v1/exports requests.
func (h *ExportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	exports, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}
	if exports == nil {
		exports = []model.ExportResponse{}
	}

	writeJSON(w, http.StatusOK, exports)
}

// HandleDownload handles GET /api/v1/exports/download/{token} requests.
// This route is token-authenticated, not JWT-authenticated: possession of
// an unexpired token is the whole credential.
func (h *ExportHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	fileName, data, err := h.service.ResolveDownload(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExportNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse("export not found"))
		case errors.Is(err, service.ErrExportExpired):
			writeJSON(w, http.StatusGone, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
