package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

const maxVideosLimit = 200

// analyzeRequest is the body of POST /api/analyze. Preset requests share the
// flag fields and carry Key instead of Company/Product.
type analyzeRequest struct {
	Company           string   `json:"company"`
	Product           string   `json:"product"`
	Key               string   `json:"key"`
	SearchQueries     []string `json:"search_queries"`
	SkipTranscription bool     `json:"skip_transcription"`
	MaxVideos         int      `json:"max_videos"`
	DateFrom          string   `json:"date_from"`
	DateTo            string   `json:"date_to"`
	RegionCode        string   `json:"region_code"`
	UseCaptions       *bool    `json:"use_captions"`
}

func (req *analyzeRequest) options() (pipeline.Options, error) {
	if req.MaxVideos < 0 || req.MaxVideos > maxVideosLimit {
		return pipeline.Options{}, errors.New("max_videos must be between 1 and 200")
	}
	for _, d := range []string{req.DateFrom, req.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, d); err != nil {
			return pipeline.Options{}, errors.New("dates must be RFC 3339 timestamps")
		}
	}
	return pipeline.Options{
		SkipTranscription: req.SkipTranscription,
		MaxVideos:         req.MaxVideos,
		PublishedAfter:    req.DateFrom,
		PublishedBefore:   req.DateTo,
		Region:            req.RegionCode,
		UseCaptions:       req.UseCaptions,
	}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Company == "" || req.Product == "" {
		writeError(w, http.StatusBadRequest, "company and product are required")
		return
	}

	target := model.NewTarget(req.Company, req.Product, req.SearchQueries)
	s.acceptJob(w, r, target, req)
}

func (s *Server) handleAnalyzePreset(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	target, ok := s.registry.Get(req.Key)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown preset key")
		return
	}
	s.acceptJob(w, r, target, req)
}

// acceptJob persists a pending job, kicks off the pipeline in the
// background, and answers 202 with the job record.
func (s *Server) acceptJob(w http.ResponseWriter, r *http.Request, target model.Target, req analyzeRequest) {
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &model.Job{
		ID:          uuid.NewString(),
		Company:     target.Company,
		Product:     target.Product,
		SearchQuery: target.SearchQueries[0],
		Status:      model.JobStatusPending,
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		zap.L().Error("server: create job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	go s.runner.ExecuteJob(s.jobCtx, job.ID, target, opts)

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	type targetView struct {
		Key string `json:"key"`
		model.Target
	}
	all := s.registry.All()
	views := make([]targetView, 0, len(all))
	for _, t := range all {
		views = append(views, targetView{Key: t.Identifier(), Target: t})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status: model.JobStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		zap.L().Error("server: get job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetJob(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		zap.L().Error("server: get job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	results, err := s.store.ResultsForJob(r.Context(), id)
	if err != nil {
		zap.L().Error("server: job results", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		zap.L().Error("server: delete job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	// Reject anything that is not a bare file name.
	if name == "" || name != filepath.Base(name) || name[0] == '.' {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.Report.OutputDir, name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
