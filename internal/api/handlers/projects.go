package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/api/middleware"
	"github.com/avolkov/pmo-budget/internal/baseline"
	"github.com/avolkov/pmo-budget/internal/currency"
	"github.com/avolkov/pmo-budget/internal/domain"
	"github.com/avolkov/pmo-budget/internal/forecast"
	"github.com/avolkov/pmo-budget/internal/identity"
)

// ProjectsHandler handles project-related endpoints.
type ProjectsHandler struct {
	repo      ProjectRepository
	baselines *baseline.Store
	log       zerolog.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(repo ProjectRepository, baselines *baseline.Store, log zerolog.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		repo:      repo,
		baselines: baselines,
		log:       log,
	}
}

// projectResponse is a project decorated with display-currency figures and
// the rollup summary.
type projectResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SAPID        string  `json:"sap_id"`
	HomeCurrency string  `json:"home_currency"`
	Budget       float64 `json:"budget"`
	Committed    float64 `json:"committed"`
	Realized     float64 `json:"realized"`
	BasisLabel   string  `json:"basis_label"`
	StartDate    string  `json:"start_date,omitempty"`
	Deadline     string  `json:"deadline,omitempty"`

	Summary forecast.Summary `json:"summary"`
}

// displayBasis reads the basis/year selectors from the query string,
// defaulting to the home basis and the current fiscal year.
func displayBasis(r *http.Request) (string, int) {
	basis := r.URL.Query().Get("basis")
	if basis == "" {
		basis = currency.HomeBasis
	}
	year := time.Now().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		if parsed, err := strconv.Atoi(y); err == nil {
			year = parsed
		}
	}
	return basis, year
}

func (h *ProjectsHandler) toResponse(r *http.Request, p *domain.Project, initialBudget float64) projectResponse {
	basis, year := displayBasis(r)

	resp := projectResponse{
		ID:           p.ID,
		Name:         p.Name,
		SAPID:        p.SAPID,
		HomeCurrency: p.HomeCurrency,
		Budget:       currency.Convert(p.Budget, basis, year),
		Committed:    currency.Convert(p.Committed, basis, year),
		Realized:     currency.Convert(p.Realized, basis, year),
		BasisLabel:   currency.Label(basis, year),
		Summary:      forecast.BuildSummary(p, initialBudget),
	}
	if p.StartDate != nil {
		resp.StartDate = p.StartDate.Format("2006-01-02")
	}
	if p.Deadline != nil {
		resp.Deadline = p.Deadline.Format("2006-01-02")
	}
	return resp
}

// ListProjects handles GET /api/projects
func (h *ProjectsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects, err := h.repo.ListProjects(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list projects")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list projects")
		return
	}

	responses := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		initial, err := h.baselines.InitialBudget(ctx, p.ID)
		if err != nil {
			initial = 0 // no baseline yet, suppress vs-initial
		}
		responses = append(responses, h.toResponse(r, p, initial))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": responses,
		"count":    len(responses),
	})
}

// GetProject handles GET /api/projects/{id}
func (h *ProjectsHandler) GetProject(w http.ResponseWriter, r *http.Request, projectID string) {
	ctx := r.Context()

	p, err := h.repo.GetProject(ctx, projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to get project")
		middleware.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}

	initial, err := h.baselines.InitialBudget(ctx, p.ID)
	if err != nil {
		initial = 0
	}

	middleware.WriteJSON(w, http.StatusOK, h.toResponse(r, p, initial))
}

// CreateProject handles POST /api/projects. The new project gets its v1.0
// baseline immediately so the initial budget is anchored from the start.
func (h *ProjectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string  `json:"name"`
		SAPID        string  `json:"sap_id"`
		HomeCurrency string  `json:"home_currency"`
		Budget       float64 `json:"budget"`
		StartDate    string  `json:"start_date"`
		Deadline     string  `json:"deadline"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p := &domain.Project{
		ID:           uuid.NewString(),
		Name:         req.Name,
		SAPID:        req.SAPID,
		HomeCurrency: req.HomeCurrency,
		Budget:       req.Budget,
	}
	if p.HomeCurrency == "" {
		p.HomeCurrency = "EUR"
	}
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		p.StartDate = &t
	}
	if req.Deadline != "" {
		t, err := time.Parse("2006-01-02", req.Deadline)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid deadline format")
			return
		}
		p.Deadline = &t
	}

	if err := p.Validate(); err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx := r.Context()
	if err := h.repo.InsertProject(ctx, p); err != nil {
		h.log.Error().Err(err).Str("sap_id", p.SAPID).Msg("Failed to insert project")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create project")
		return
	}

	author := identity.FromContext(ctx)
	b, err := h.baselines.Create(ctx, p, "initial budget", author)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", p.ID).Msg("Failed to create initial baseline")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create initial baseline")
		return
	}

	h.log.Info().
		Str("project_id", p.ID).
		Str("sap_id", p.SAPID).
		Str("baseline", b.Version).
		Str("author", author).
		Msg("Project created")

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"project_id": p.ID,
		"baseline":   b.Version,
	})
}
