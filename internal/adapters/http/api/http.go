// Package api declares the read-only HTTP surface: health, per-employee
// reports, the leaderboard, and service stats. The UI proper consumes the
// watcher API in-process; these routes exist for operations and debugging.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the controller implementation.
type Dependencies interface {
	Report(ctx context.Context, employeeID string) (model.PerformanceReport, error)
	Leaderboard(ctx context.Context, n int) ([]service.Entry, error)
	Stats() map[string]interface{}
}

// Server wires HTTP routes for the API.
type Server struct {
	reportHandler      *ReportHandler
	leaderboardHandler *LeaderboardHandler
	statsHandler       *StatsHandler
	healthHandler      *HealthHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the leaderboard page size.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.leaderboardHandler.maxLimit = limit
		}
	}
}

// WithDisplayOffsetMinutes sets the fixed UTC offset for display timestamps.
func WithDisplayOffsetMinutes(offset int) Option {
	return func(s *Server) {
		s.reportHandler.displayOffset = offset
	}
}

// NewServer creates an API server over the given dependencies.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		reportHandler:      NewReportHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		healthHandler:      NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/report/", MetricsMiddleware(s.reportHandler.HandleGetReport, "report"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
