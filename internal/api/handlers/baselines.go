package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/api/middleware"
	"github.com/avolkov/pmo-budget/internal/baseline"
	"github.com/avolkov/pmo-budget/internal/gate"
	"github.com/avolkov/pmo-budget/internal/identity"
)

// BaselinesHandler handles baseline-related endpoints.
type BaselinesHandler struct {
	projects  ProjectRepository
	baselines *baseline.Store
	log       zerolog.Logger
}

// NewBaselinesHandler creates a new baselines handler.
func NewBaselinesHandler(projects ProjectRepository, baselines *baseline.Store, log zerolog.Logger) *BaselinesHandler {
	return &BaselinesHandler{
		projects:  projects,
		baselines: baselines,
		log:       log,
	}
}

// ListBaselines handles GET /api/projects/{id}/baselines
func (h *BaselinesHandler) ListBaselines(w http.ResponseWriter, r *http.Request, projectID string) {
	ctx := r.Context()

	baselines, err := h.baselines.List(ctx, projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to list baselines")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list baselines")
		return
	}

	current, err := h.baselines.Current(ctx, projectID)
	currentID := ""
	if err == nil {
		currentID = current.ID
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"baselines":  baselines,
		"current_id": currentID,
		"count":      len(baselines),
	})
}

// CreateBaseline handles POST /api/projects/{id}/baselines. A request may
// carry a new budget; the change runs through the materiality gate before
// the snapshot is taken. A zero budget snapshots the current budget as-is.
func (h *BaselinesHandler) CreateBaseline(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Budget        float64 `json:"budget"`
		Description   string  `json:"description"`
		Justification string  `json:"justification"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()

	project, err := h.projects.GetProject(ctx, projectID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}

	if req.Budget > 0 && req.Budget != project.Budget {
		if v := gate.CanPersist(project.Budget, req.Budget, req.Justification); !v.Allowed {
			middleware.WriteError(w, http.StatusUnprocessableEntity, v.Reason)
			return
		}
		project.Budget = req.Budget
	}

	author := identity.FromContext(ctx)
	b, err := h.baselines.Create(ctx, project, req.Description, author)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to create baseline")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create baseline")
		return
	}

	h.log.Info().
		Str("project_id", projectID).
		Str("baseline_id", b.ID).
		Str("version", b.Version).
		Float64("budget", b.Budget).
		Str("author", author).
		Msg("Baseline created")

	middleware.WriteJSON(w, http.StatusCreated, b)
}

// RevertBaseline handles POST /api/projects/{id}/baselines/revert. The move
// is a pointer change; nothing is deleted and the revert can be reverted.
func (h *BaselinesHandler) RevertBaseline(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		BaselineID string `json:"baseline_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BaselineID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "baseline_id is required")
		return
	}

	ctx := r.Context()

	b, err := h.baselines.RevertTo(ctx, projectID, req.BaselineID)
	if err != nil {
		if errors.Is(err, baseline.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Baseline not found")
			return
		}
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to revert baseline")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to revert baseline")
		return
	}

	h.log.Info().
		Str("project_id", projectID).
		Str("baseline_id", b.ID).
		Str("version", b.Version).
		Msg("Reverted to baseline")

	middleware.WriteJSON(w, http.StatusOK, b)
}
