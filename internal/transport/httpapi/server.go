// Package httpapi exposes the research pipeline over a small JSON API:
// submit a research job, poll its status, and run pre-flight coverage checks.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prevalidate/researchd/internal/domain"
	"github.com/prevalidate/researchd/internal/logger"
	"github.com/prevalidate/researchd/internal/metrics"
	"github.com/prevalidate/researchd/internal/repository/results"
	"github.com/prevalidate/researchd/internal/usecase/relevance"
	"github.com/prevalidate/researchd/internal/usecase/research"
)

// researchRunner runs one research job to completion.
type researchRunner interface {
	Run(ctx context.Context, rc *research.Context, onProgress relevance.Progress) (research.RunResult, error)
}

// coverageEstimator computes the pre-flight quality estimate.
type coverageEstimator interface {
	Estimate(ctx context.Context, hyp domain.Hypothesis, keywords domain.KeywordSet) (domain.QualitySample, error)
}

// keywordExtractor derives keywords for coverage checks when the caller
// supplies none.
type keywordExtractor interface {
	ExtractKeywords(ctx context.Context, hyp domain.Hypothesis) (domain.KeywordSet, error)
}

// jobStore reads and writes persisted job state.
type jobStore interface {
	UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus, source domain.ErrorSource, errMsg string) error
	GetJobStatus(ctx context.Context, jobID string) (results.JobRecord, error)
	GetModuleResult(ctx context.Context, jobID, module string) (json.RawMessage, error)
}

// RunPolicy is the per-job configuration applied to submitted runs.
type RunPolicy struct {
	MaxCommunities    int
	PerCommunityLimit int
	TimeRangeDays     int
	MaxAttempts       int
	MinYield          int
}

// Server is the HTTP API.
type Server struct {
	research  researchRunner
	coverage  coverageEstimator
	extractor keywordExtractor
	jobs      jobStore
	policy    RunPolicy
	logger    *zap.Logger

	running sync.Map // jobID -> *research.Context, in-flight runs only
}

// NewServer creates the API server.
func NewServer(
	researchSvc researchRunner,
	coverageSvc coverageEstimator,
	extractor keywordExtractor,
	jobs jobStore,
	policy RunPolicy,
	log *zap.Logger,
) *Server {
	return &Server{
		research:  researchSvc,
		coverage:  coverageSvc,
		extractor: extractor,
		jobs:      jobs,
		policy:    policy,
		logger:    log,
	}
}

// Routes mounts the API on a chi router.
func (s *Server) Routes(apiKeys []string) chi.Router {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/v1/research", s.handleSubmitResearch)
	r.Get("/v1/research/{jobID}", s.handleGetResearch)
	r.Post("/v1/coverage", s.handleCoverage)

	return r
}

type researchRequest struct {
	UserID      string                       `json:"user_id"`
	Hypothesis  string                       `json:"hypothesis"`
	Structured  *domain.StructuredHypothesis `json:"structured,omitempty"`
	App         *domain.AppMetadata          `json:"app,omitempty"`
	Communities []string                     `json:"communities,omitempty"`
}

type researchAccepted struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

// handleSubmitResearch accepts a job and runs the pipeline in the background.
func (s *Server) handleSubmitResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	hyp := domain.Hypothesis{Raw: strings.TrimSpace(req.Hypothesis), Structured: req.Structured}
	mode := domain.DetectMode(req.App)
	if hyp.Raw == "" && mode.IsHypothesis() {
		writeError(w, http.StatusBadRequest, "invalid_hypothesis", "hypothesis is required")
		return
	}

	jobID := uuid.NewString()
	rc := research.NewContext(jobID, req.UserID, hyp, req.App, research.RunConfig{
		MaxCommunities:    s.policy.MaxCommunities,
		PerCommunityLimit: s.policy.PerCommunityLimit,
		TimeRangeDays:     s.policy.TimeRangeDays,
		Communities:       req.Communities,
		Retry:             domain.RetryPolicy{MaxAttempts: s.policy.MaxAttempts, MinYield: s.policy.MinYield},
	})

	if err := s.jobs.UpdateJobStatus(r.Context(), jobID, domain.JobPending, domain.SourceNone, ""); err != nil {
		logger.FromContext(r.Context()).Error("failed to register job", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	s.running.Store(jobID, rc)
	go s.runJob(rc)

	writeJSON(w, http.StatusAccepted, researchAccepted{JobID: jobID, Status: domain.JobPending})
}

// runJob owns the background execution of one job. The run outlives the HTTP
// request, so it carries a fresh context with its own usage recorder.
func (s *Server) runJob(rc *research.Context) {
	defer s.running.Delete(rc.JobID())

	ctx, usage := domain.NewContextWithUsage(context.Background())
	ctx = logger.ContextWithLogger(ctx, s.logger)

	log := s.logger.With(zap.String("job_id", rc.JobID()))
	onProgress := func(msg string) { log.Info("research progress", zap.String("message", msg)) }

	if _, err := s.research.Run(ctx, rc, onProgress); err != nil {
		log.Warn("background run finished with error", zap.Error(err))
		return
	}
	log.Info("background run finished",
		zap.Int("classification_tokens", usage.TotalTokens()),
		zap.Int("classification_calls", usage.Calls()))
}

type researchStatus struct {
	JobID    string             `json:"job_id"`
	Status   domain.JobStatus   `json:"status"`
	Source   domain.ErrorSource `json:"error_source,omitempty"`
	Error    string             `json:"error,omitempty"`
	Progress *research.Snapshot `json:"progress,omitempty"`
	Result   json.RawMessage    `json:"result,omitempty"`
}

// handleGetResearch reports a job's status: live progress while it runs, the
// saved research module result once complete.
func (s *Server) handleGetResearch(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	rec, err := s.jobs.GetJobStatus(r.Context(), jobID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := researchStatus{
		JobID:  jobID,
		Status: rec.Status,
		Source: rec.ErrorSource,
		Error:  rec.Error,
	}

	if v, ok := s.running.Load(jobID); ok {
		snap := v.(*research.Context).Snapshot()
		resp.Progress = &snap
	}

	if rec.Status == domain.JobCompleted {
		raw, rerr := s.jobs.GetModuleResult(r.Context(), jobID, research.ModuleResearch)
		if rerr == nil {
			resp.Result = raw
		} else {
			logger.FromContext(r.Context()).Warn("completed job without research result",
				zap.String("job_id", jobID), zap.Error(rerr))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type coverageRequest struct {
	Hypothesis string                       `json:"hypothesis"`
	Structured *domain.StructuredHypothesis `json:"structured,omitempty"`
	Keywords   *domain.KeywordSet           `json:"keywords,omitempty"`
}

// handleCoverage runs the synchronous pre-flight estimate.
func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	var req coverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	hyp := domain.Hypothesis{Raw: strings.TrimSpace(req.Hypothesis), Structured: req.Structured}
	if hyp.Raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_hypothesis", "hypothesis is required")
		return
	}

	var kw domain.KeywordSet
	if req.Keywords != nil {
		kw = *req.Keywords
	} else if extracted, err := s.extractor.ExtractKeywords(r.Context(), hyp); err == nil {
		kw = extracted
	}

	sample, err := s.coverage.Estimate(r.Context(), hyp, kw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDomainError maps sentinel errors onto HTTP statuses without leaking
// internals.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrInvalidHypothesis):
		writeError(w, http.StatusBadRequest, "invalid_hypothesis", domain.ErrInvalidHypothesis.Error())
	case errors.Is(err, domain.ErrSampleTooSmall):
		writeError(w, http.StatusUnprocessableEntity, "sample_too_small", domain.ErrSampleTooSmall.Error())
	case errors.Is(err, domain.ErrClassifierError):
		writeError(w, http.StatusBadGateway, "classifier_error", domain.ErrClassifierError.Error())
	case errors.Is(err, domain.ErrSourceUnavailable):
		writeError(w, http.StatusBadGateway, "source_unavailable", domain.ErrSourceUnavailable.Error())
	default:
		logger.FromContext(r.Context()).Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
