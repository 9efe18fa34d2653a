package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"elearnhub/internal/util"
	"elearnhub/services/settlement/internal/app"
)

type Config struct {
	App *app.App
}

// Server exposes health and job status of the settlement worker.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{app: cfg.App, mux: http.NewServeMux()}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/jobs/", s.handleJob)
	return s, nil
}

func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(nil, s.mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed", "code": "SYSTEM_METHOD_NOT_ALLOWED"})
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
	job, ok, err := s.app.Job(r.Context(), id)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("get job failed", "job_id", id, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue unavailable", "code": "QUEUE_UNAVAILABLE"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found", "code": "JOB_NOT_FOUND"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
