package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/internal/domain/timeutil"
)

// ReportDependencies defines the interface for report reads.
type ReportDependencies interface {
	Report(ctx context.Context, employeeID string) (model.PerformanceReport, error)
}

// ReportHandler handles per-employee report requests.
type ReportHandler struct {
	deps          ReportDependencies
	displayOffset int
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{
		deps:          deps,
		displayOffset: timeutil.DefaultOffsetMinutes,
	}
}

type reportResponse struct {
	model.PerformanceReport
	GeneratedAt string `json:"generated_at"`
}

// HandleGetReport handles GET /report/{employeeID} requests.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	employeeID := strings.TrimPrefix(r.URL.Path, "/report/")
	if employeeID == "" || strings.Contains(employeeID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	report, err := h.deps.Report(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownEmployee) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{
		PerformanceReport: report,
		GeneratedAt:       timeutil.FormatDisplay(time.Now(), h.displayOffset),
	})
}
