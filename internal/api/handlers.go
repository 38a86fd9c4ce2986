package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amishk599/jobimport/internal/model"
	"github.com/amishk599/jobimport/internal/scheduler"
)

const maxRequestBody = 1 << 20

type enqueueRequest struct {
	URLs     []string `json:"urls"`
	PreferAI *bool    `json:"preferAI"`
	Process  bool     `json:"process"`
}

type runResponse struct {
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

type retryResponse struct {
	Message string `json:"message"`
	Reset   int    `json:"reset"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}
	preferAI := s.defaultPreferAI
	if req.PreferAI != nil {
		preferAI = *req.PreferAI
	}

	res, err := s.imports.Enqueue(r.Context(), req.URLs, subjectFrom(r.Context()), preferAI)
	if err != nil {
		s.internalError(w, "enqueue", err)
		return
	}
	if req.Process && res.Added > 0 {
		s.batches.Submit()
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) runNow(w http.ResponseWriter, r *http.Request) {
	report, err := s.batches.RunNow(r.Context())
	if errors.Is(err, scheduler.ErrBatchInProgress) {
		writeError(w, http.StatusConflict, "an import batch is already running")
		return
	}
	if err != nil {
		s.internalError(w, "run batch", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		Duplicates: report.Duplicates,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st, err := s.imports.Status(r.Context())
	if err != nil {
		s.internalError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) retryFailed(w http.ResponseWriter, r *http.Request) {
	n, err := s.imports.RetryFailed(r.Context())
	if err != nil {
		s.internalError(w, "retry failed", err)
		return
	}
	writeJSON(w, http.StatusOK, retryResponse{
		Message: fmt.Sprintf("%d failed imports reset to pending", n),
		Reset:   n,
	})
}

func (s *Server) rescrape(w http.ResponseWriter, r *http.Request) {
	item, err := s.imports.Rescrape(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "queue item not found")
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "queue item is processing")
	case err != nil:
		s.internalError(w, "rescrape", err)
	default:
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
