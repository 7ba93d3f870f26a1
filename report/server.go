package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bictech/transcheck/store"
)

// Server serves run history and rendered reports for CI dashboards.
type Server struct {
	store         *store.Store
	gen           *Generator
	screenshotDir string
	logger        *slog.Logger
}

func NewServer(st *store.Store, gen *Generator, screenshotDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, gen: gen, screenshotDir: screenshotDir, logger: logger}
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/runs", s.handleRuns)
	r.Get("/api/runs/{id}", s.handleRun)
	r.Get("/api/runs/{id}/report.html", s.handleReportHTML)
	r.Get("/api/runs/{id}/report.md", s.handleReportMarkdown)
	if s.screenshotDir != "" {
		r.Handle("/screenshots/*", http.StripPrefix("/screenshots/",
			http.FileServer(http.Dir(s.screenshotDir))))
	}
	return r
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.Runs(r.Context(), limit)
	if err != nil {
		s.logger.Error("report: list runs", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *store.RunDetail {
	id := chi.URLParam(r, "id")
	run, ok, err := s.store.Run(r.Context(), id)
	if err != nil {
		s.logger.Error("report: get run", "id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return nil
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return nil
	}
	return run
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if run := s.lookupRun(w, r); run != nil {
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	data, err := s.gen.HTML(run)
	if err != nil {
		s.logger.Error("report: render html", "id", run.ID, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	data, err := s.gen.Markdown(run)
	if err != nil {
		s.logger.Error("report: render markdown", "id", run.ID, "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
