package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/avolkov/pmo-budget/internal/api/middleware"
	"github.com/avolkov/pmo-budget/internal/domain"
	"github.com/avolkov/pmo-budget/internal/gate"
	"github.com/avolkov/pmo-budget/internal/ledger"
)

// LineItemsHandler handles the versioned committed-budget ledger endpoints.
type LineItemsHandler struct {
	arena     *ledger.Arena
	persister EditPersister // nil keeps edits in memory only
	log       zerolog.Logger
}

// NewLineItemsHandler creates a new line items handler.
func NewLineItemsHandler(arena *ledger.Arena, persister EditPersister, log zerolog.Logger) *LineItemsHandler {
	return &LineItemsHandler{
		arena:     arena,
		persister: persister,
		log:       log,
	}
}

// ListLineItems handles GET /api/lineitems
func (h *LineItemsHandler) ListLineItems(w http.ResponseWriter, r *http.Request) {
	lines := h.arena.ActiveLines()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"line_items": lines,
		"count":      len(lines),
	})
}

// GetHistory handles GET /api/lineitems/{sapId}/history. The version chain
// is the audit trail: every row ever active, newest first.
func (h *LineItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request, sapID string) {
	history := h.arena.History(sapID)
	if len(history) == 0 {
		middleware.WriteError(w, http.StatusNotFound, "Line item not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"versions": history,
		"count":    len(history),
	})
}

// CreateLineItem handles POST /api/lineitems. Seeds version 1 of a new line.
func (h *LineItemsHandler) CreateLineItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SAPID       string     `json:"sap_id"`
		Category    string     `json:"category"`
		ProjectName string     `json:"project_name"`
		Months      [12]float64 `json:"months"`
		Provenance  string     `json:"provenance"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SAPID == "" || req.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "sap_id and category are required")
		return
	}

	provenance := domain.Provenance(req.Provenance)
	if provenance == "" {
		provenance = domain.ProvenanceManual
	}

	row := &domain.LineItemVersion{
		SAPID:       req.SAPID,
		Category:    req.Category,
		ProjectName: req.ProjectName,
		Months:      req.Months,
		Provenance:  provenance,
		UpdatedAt:   time.Now(),
	}

	seeded, err := h.arena.Seed(row)
	if err != nil {
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}

	if h.persister != nil {
		if err := h.persister.InsertLineItemVersion(r.Context(), seeded); err != nil {
			h.log.Error().Err(err).Str("sap_id", req.SAPID).Msg("Failed to persist line item")
			middleware.WriteError(w, http.StatusBadGateway, "Failed to persist line item")
			return
		}
	}

	middleware.WriteJSON(w, http.StatusCreated, seeded)
}

// EditLineItem handles POST /api/lineitems/{sapId}/edit. The request carries
// the version the client based its edit on; a newer active version rejects
// the write as stale. Provenance and materiality checks run before anything
// is touched.
func (h *LineItemsHandler) EditLineItem(w http.ResponseWriter, r *http.Request, sapID string) {
	var req struct {
		Field         string  `json:"field"`
		Value         float64 `json:"value"`
		SeenVersion   int     `json:"seen_version"`
		Justification string  `json:"justification"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	active := h.arena.Active(sapID)
	if active == nil {
		middleware.WriteError(w, http.StatusNotFound, "Line item not found")
		return
	}

	oldValue, err := ledger.FieldValue(active, req.Field)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := gate.CheckLineItem(active, oldValue, req.Value, req.Justification); err != nil {
		switch {
		case errors.Is(err, gate.ErrRowLocked):
			middleware.WriteError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, gate.ErrJustificationRequired):
			middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	result, err := h.arena.Edit(sapID, req.Field, req.Value, req.SeenVersion, time.Now())
	if err != nil {
		if errors.Is(err, ledger.ErrStaleVersion) {
			middleware.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.persister != nil {
		if err := h.persister.PersistEdit(r.Context(), result); err != nil {
			h.log.Error().Err(err).Str("sap_id", sapID).Msg("Failed to persist ledger edit")
			middleware.WriteError(w, http.StatusBadGateway, "Failed to persist ledger edit")
			return
		}
	}

	h.log.Info().
		Str("sap_id", sapID).
		Str("field", req.Field).
		Float64("value", req.Value).
		Int("version", result.Created.Version).
		Msg("Line item edited")

	middleware.WriteJSON(w, http.StatusOK, result)
}
