package handlers

import (
	"net/http"
	"time"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/middleware"
	"github.com/himalai/expense-service/internal/service"
)

// ReportHandler serves spending reports off the analytical store. When
// the deployment runs without ClickHouse the handler is registered with
// a nil service and reports are unavailable.
type ReportHandler struct {
	reports *service.ReportService
	log     *logger.Logger
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		log:     logger.New("report-handler"),
	}
}

func (h *ReportHandler) available(w http.ResponseWriter) bool {
	if h.reports == nil {
		respondError(w, http.StatusServiceUnavailable, "reports are not available")
		return false
	}
	return true
}

func parseWindow(r *http.Request) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if f := r.URL.Query().Get("from"); f != "" {
		parsed, err := time.Parse("2006-01-02", f)
		if err != nil {
			return nil, nil, false
		}
		from = &parsed
	}
	if t := r.URL.Query().Get("to"); t != "" {
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return nil, nil, false
		}
		to = &parsed
	}
	return from, to, true
}

func (h *ReportHandler) CategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	from, to, ok := parseWindow(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}

	stats, err := h.reports.CategoryBreakdown(r.Context(), middleware.GetUserID(r.Context()), from, to)
	if err != nil {
		h.log.Error("Category breakdown query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": stats})
}

func (h *ReportHandler) MonthlySeries(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	from, to, ok := parseWindow(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}

	points, err := h.reports.MonthlySeries(r.Context(), middleware.GetUserID(r.Context()), from, to)
	if err != nil {
		h.log.Error("Monthly series query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"months": points})
}

func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	summary, err := h.reports.Summary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.log.Error("Summary query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
