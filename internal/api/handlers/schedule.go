package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/api/middleware"
	"github.com/avolkov/pmo-budget/internal/currency"
	"github.com/avolkov/pmo-budget/internal/forecast"
	"github.com/avolkov/pmo-budget/internal/gate"
)

// OverrideSession holds the in-flight forecast overrides per project. Drafts
// live here until a baseline is cut; cancelling simply discards the draft,
// no compensating write is needed. Reverting a baseline does not touch this
// session - a pointer move must not silently drop user drafts.
type OverrideSession struct {
	mu        sync.RWMutex
	overrides map[string]map[string]float64 // projectID -> monthKey -> value
}

// NewOverrideSession creates an empty session.
func NewOverrideSession() *OverrideSession {
	return &OverrideSession{overrides: make(map[string]map[string]float64)}
}

// Get returns a copy of the overrides for a project.
func (s *OverrideSession) Get(projectID string) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.overrides[projectID]))
	for k, v := range s.overrides[projectID] {
		out[k] = v
	}
	return out
}

// Set records an override.
func (s *OverrideSession) Set(projectID, monthKey string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overrides[projectID] == nil {
		s.overrides[projectID] = make(map[string]float64)
	}
	s.overrides[projectID][monthKey] = value
}

// Discard drops the draft for one month, or the whole project draft when
// monthKey is empty.
func (s *OverrideSession) Discard(projectID, monthKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if monthKey == "" {
		delete(s.overrides, projectID)
		return
	}
	delete(s.overrides[projectID], monthKey)
}

// ScheduleHandler handles the derived monthly schedule and its forecast
// overrides.
type ScheduleHandler struct {
	projects ProjectRepository
	txs      TransactionRepository
	session  *OverrideSession
	now      func() time.Time
	log      zerolog.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(projects ProjectRepository, txs TransactionRepository, session *OverrideSession, log zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		projects: projects,
		txs:      txs,
		session:  session,
		now:      time.Now,
		log:      log,
	}
}

// scheduleEntryResponse is one schedule row converted for display.
type scheduleEntryResponse struct {
	MonthKey    string  `json:"month"`
	Planned     float64 `json:"planned"`
	Forecast    float64 `json:"forecast"`
	Realized    float64 `json:"realized"`
	Status      string  `json:"status"`
	Tier        string  `json:"tier"`
	DeviationPc float64 `json:"deviation_percent"`
}

// buildSchedule loads the inputs and derives the schedule for a project.
func (h *ScheduleHandler) buildSchedule(r *http.Request, projectID string) ([]forecast.Entry, error) {
	ctx := r.Context()

	project, err := h.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := h.now()
	start := now.AddDate(0, -6, 0)
	if project.StartDate != nil {
		start = *project.StartDate
	}
	end := now.AddDate(0, 6, 0)
	if project.Deadline != nil {
		end = *project.Deadline
	}

	txs, err := h.txs.QueryTransactions(ctx, projectID, start, end)
	if err != nil {
		return nil, err
	}

	return forecast.BuildSchedule(project, txs, h.session.Get(projectID), now), nil
}

// GetSchedule handles GET /api/projects/{id}/schedule
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request, projectID string) {
	entries, err := h.buildSchedule(r, projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to build schedule")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build schedule")
		return
	}

	basis, year := displayBasis(r)
	responses := make([]scheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, scheduleEntryResponse{
			MonthKey:    e.MonthKey,
			Planned:     currency.Convert(e.Planned, basis, year),
			Forecast:    currency.Convert(e.Forecast, basis, year),
			Realized:    currency.Convert(e.Realized, basis, year),
			Status:      string(e.Status),
			Tier:        string(e.Tier),
			DeviationPc: e.DeviationPc,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"schedule":    responses,
		"basis_label": currency.Label(basis, year),
		"count":       len(responses),
	})
}

// SaveOverride handles POST /api/projects/{id}/forecast. The edit targets a
// single month; executed months are read-only, and material changes need a
// justification before the draft is accepted.
func (h *ScheduleHandler) SaveOverride(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Month         string  `json:"month"`
		Value         float64 `json:"value"`
		Justification string  `json:"justification"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Month == "" {
		middleware.WriteError(w, http.StatusBadRequest, "month is required")
		return
	}

	entries, err := h.buildSchedule(r, projectID)
	if err != nil {
		h.log.Error().Err(err).Str("project_id", projectID).Msg("Failed to build schedule")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build schedule")
		return
	}

	var target *forecast.Entry
	for i := range entries {
		if entries[i].MonthKey == req.Month {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		middleware.WriteError(w, http.StatusNotFound, "Month outside project window")
		return
	}
	if target.Status == forecast.StatusExecuted {
		middleware.WriteError(w, http.StatusConflict, "Executed months are read-only")
		return
	}

	if v := gate.CanPersist(target.Forecast, req.Value, req.Justification); !v.Allowed {
		middleware.WriteError(w, http.StatusUnprocessableEntity, v.Reason)
		return
	}

	h.session.Set(projectID, req.Month, req.Value)

	h.log.Info().
		Str("project_id", projectID).
		Str("month", req.Month).
		Float64("value", req.Value).
		Msg("Forecast override saved")

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"month": req.Month,
		"value": req.Value,
	})
}

// DiscardOverride handles DELETE /api/projects/{id}/forecast. An empty month
// query parameter discards the whole draft for the project.
func (h *ScheduleHandler) DiscardOverride(w http.ResponseWriter, r *http.Request, projectID string) {
	month := r.URL.Query().Get("month")
	h.session.Discard(projectID, month)

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "discarded",
	})
}
