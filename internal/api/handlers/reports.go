package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/api/middleware"
	"github.com/avolkov/pmo-budget/internal/currency"
	"github.com/avolkov/pmo-budget/internal/identity"
	"github.com/avolkov/pmo-budget/internal/jobs"
)

// ReportsHandler enqueues deviation-report generation and exposes job status.
type ReportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	who       identity.Provider
	log       zerolog.Logger
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		publisher: publisher,
		store:     store,
		who:       identity.ContextProvider{},
		log:       log,
	}
}

// EnqueueReport handles POST /api/reports
func (h *ReportsHandler) EnqueueReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"project_id"`
		BasisKey  string `json:"basis"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProjectID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if req.BasisKey == "" {
		req.BasisKey = currency.HomeBasis
	}

	ctx := r.Context()

	job := &jobs.GenerateReportJob{
		ProjectID:   req.ProjectID,
		BasisKey:    req.BasisKey,
		RequestedBy: h.who.CurrentUserID(ctx),
	}

	if err := h.publisher.PublishGenerateReport(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue report job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue report job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("project_id", req.ProjectID).Msg("Report job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"project_id": req.ProjectID,
		"status":     string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *ReportsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *ReportsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		ProjectID: query.Get("project_id"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
