// Package service exposes capsight over HTTP: offline classification,
// live scans, report reads, and page audits on a chi router.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glasshouse/capsight/kit"
	"github.com/glasshouse/capsight/probe"
	"github.com/glasshouse/capsight/scan"
	"github.com/glasshouse/capsight/store"
)

// Service wires the scanner and store into HTTP handlers.
type Service struct {
	scanner *scan.Scanner
	st      *store.Store
	logger  *slog.Logger
}

// New creates a Service. scanner may be nil when only offline
// classification is wanted; st may be nil when nothing is persisted.
func New(scanner *scan.Scanner, st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{scanner: scanner, st: st, logger: logger}
}

// Router builds the chi router. authHash, when non-empty, is a bcrypt
// hash enabling Basic Auth on the /api subtree.
func (s *Service) Router(authHash string) chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if authHash != "" {
			r.Use(basicAuth(authHash, s.logger))
		}

		r.Post("/api/detect", s.handleDetect)
		r.Post("/api/scan", s.handleScan)
		r.Post("/api/audit", s.handleAudit)
		r.Get("/api/reports", s.handleListReports)
		r.Get("/api/reports/{id}", s.handleGetReport)
	})

	return r
}

// handleDetect classifies an environment from caller-supplied
// boundaries. Absent fields degrade to false; this endpoint has no
// failure mode besides malformed JSON.
func (s *Service) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserAgent string             `json:"user_agent"`
		Supports  probe.QueryResults `json:"supports"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}

	snap := probe.Detect(probe.Env{Supports: req.Supports.Query, UserAgent: req.UserAgent})
	writeJSON(w, 200, map[string]any{
		"snapshot": snap,
		"engine":   probe.EngineLabel(snap),
	})
}

func (s *Service) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeJSON(w, 503, map[string]string{"error": "scanner not configured"})
		return
	}
	report, err := s.scanner.Scan(r.Context())
	if err != nil {
		s.logger.Error("service: scan failed", "error", err,
			"request_id", kit.GetRequestID(r.Context()))
		writeError(w, 502, err)
		return
	}
	writeJSON(w, 200, report)
}

func (s *Service) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeJSON(w, 503, map[string]string{"error": "scanner not configured"})
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if req.URL == "" {
		writeJSON(w, 400, map[string]string{"error": "url is required"})
		return
	}

	res, err := s.scanner.AuditPage(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("service: audit failed", "url", req.URL, "error", err)
		writeError(w, 502, err)
		return
	}
	writeJSON(w, 200, res)
}

func (s *Service) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.st == nil {
		writeJSON(w, 503, map[string]string{"error": "store not configured"})
		return
	}
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		// Bad limits fall back to the default rather than erroring.
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 10_000 {
			limit = n
		}
	}
	reports, err := s.st.ListReports(r.Context(), limit)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	if reports == nil {
		reports = []*store.Report{}
	}
	writeJSON(w, 200, map[string]any{"reports": reports})
}

func (s *Service) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.st == nil {
		writeJSON(w, 503, map[string]string{"error": "store not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.st.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, 404, map[string]string{"error": "report not found"})
		return
	}
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
