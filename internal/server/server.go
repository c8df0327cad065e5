// Package server exposes the background job worker over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/jobs"
	"github.com/local/casebinder/internal/metrics"
	"github.com/local/casebinder/internal/pdfout"
)

// Jobs is the part of jobs.Worker the handlers need.
type Jobs interface {
	Submit(ctx context.Context, req jobs.Request) (string, error)
	Cancel(ctx context.Context, id string) (bool, error)
	Status(ctx context.Context, id string) (jobs.Status, bool, error)
}

type Dependencies struct {
	Jobs Jobs
	// InputRoot, when set, confines job inputs and local outputs to this folder.
	InputRoot string
	// DefaultOnExists applies when a request names no policy.
	DefaultOnExists pdfout.OnExists
}

type Server struct {
	deps Dependencies
}

func New(deps Dependencies) *Server {
	if deps.DefaultOnExists == "" {
		deps.DefaultOnExists = pdfout.OnExistsRename
	}
	if deps.InputRoot != "" {
		if abs, err := filepath.Abs(deps.InputRoot); err == nil {
			deps.InputRoot = abs
		}
	}
	return &Server{deps: deps}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /jobs", s.handleSubmit)
	mux.HandleFunc("GET /progress/{id}", s.handleProgress)
	mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /download/{id}", s.handleDownload)
	mux.Handle("GET /metrics", metrics.Handler())
}

type submitReq struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	OnExists string `json:"on_exists"`
}

type submitResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "missing input", http.StatusBadRequest)
		return
	}

	input, err := s.confine(req.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if fi, err := os.Stat(input); err != nil || !fi.IsDir() {
		http.Error(w, "input folder not found", http.StatusBadRequest)
		return
	}
	output := req.Output
	if output != "" && !pdfout.IsRemote(output) {
		if output, err = s.confine(output); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	policy := s.deps.DefaultOnExists
	if req.OnExists != "" {
		if policy, err = pdfout.ParseOnExists(req.OnExists); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	id, err := s.deps.Jobs.Submit(r.Context(), jobs.Request{Input: input, Output: output, OnExists: policy})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		log.Warn().Err(err).Str("input", input).Msg("job rejected")
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusCreated, submitResp{Status: "ok", JobID: id, Message: "job queued"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok, err := s.deps.Jobs.Status(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    st.Status == jobs.StateSuccess,
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
		"metadata":   st.Metadata,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := s.deps.Jobs.Cancel(r.Context(), id)
	if err != nil {
		http.Error(w, "cancel failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "job not found or already finished", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "job_id": id, "status": "cancelling"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok, err := s.deps.Jobs.Status(r.Context(), id)
	if err != nil || !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if st.Status != jobs.StateSuccess {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	p, _ := st.Metadata["result_path"].(string)
	if p == "" {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}
	if pdfout.IsRemote(p) {
		writeJSON(w, http.StatusOK, map[string]any{"job_id": id, "location": p})
		return
	}
	f, err := os.Open(p)
	if err != nil {
		http.Error(w, "failed to read", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		http.Error(w, "failed to read", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(p)))
	http.ServeContent(w, r, filepath.Base(p), fi.ModTime(), f)
}

// confine resolves p against InputRoot and rejects paths that escape it.
func (s *Server) confine(p string) (string, error) {
	root := s.deps.InputRoot
	if root == "" {
		return filepath.Clean(p), nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the input root", p)
	}
	return p, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
