package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/datavault/datavault-go/internal/middleware"
	"github.com/datavault/datavault-go/internal/model"
	"github.com/datavault/datavault-go/internal/service"
)

// RecordHandler handles HTTP requests for stored records and insights.
type RecordHandler struct {
	service *service.RecordService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(svc *service.RecordService) *RecordHandler {
	return &RecordHandler{service: svc}
}

// HandleList handles GET /api/v1/records requests. Supported query
// parameters: dataset, start, end (RFC 3339), cursor, limit.
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	q := r.URL.Query()
	filter := model.RecordFilter{
		Dataset: q.Get("dataset"),
		Cursor:  q.Get("cursor"),
	}

	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid start time"))
			return
		}
		filter.Start = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid end time"))
			return
		}
		filter.End = &t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid limit"))
			return
		}
		filter.Limit = n
	}

	page, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCursor):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleInsights handles GET /api/v1/insights/summary requests.
func (h *RecordHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	rangeDays := 0
	if raw := r.URL.Query().Get("range_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid range_days"))
			return
		}
		rangeDays = n
	}

	summary, err := h.service.Insights(r.Context(), userID, rangeDays)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
