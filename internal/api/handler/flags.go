// Package handler provides HTTP handlers for the migration control gateway.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/govmigrate/govmigrate/internal/api/models"
	"github.com/govmigrate/govmigrate/internal/api/response"
	"github.com/govmigrate/govmigrate/internal/flags"
)

// FlagsHandler handles flag, phase and rollback endpoints.
type FlagsHandler struct {
	store *flags.Store
}

// NewFlagsHandler creates a new FlagsHandler.
func NewFlagsHandler(store *flags.Store) *FlagsHandler {
	return &FlagsHandler{store: store}
}

// GetFlags handles GET /v1/flags - the resolved flag state.
func (h *FlagsHandler) GetFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.FlagsResponse{
		Phase: h.store.Phase(),
		Flags: h.store.Flags(),
	})
}

// UpdateFlag handles PUT /v1/flags/{key} - set one flag.
func (h *FlagsHandler) UpdateFlag(w http.ResponseWriter, r *http.Request) {
	key, err := flags.ParseKey(chi.URLParam(r, "key"))
	if err != nil {
		response.NotFound(w, r, "unknown flag key")
		return
	}

	var req models.UpdateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if req.Value == nil {
		response.BadRequest(w, r, "missing flag value", []models.FieldError{
			{Field: "value", Message: "value is required", Code: "required"},
		})
		return
	}

	if err := h.store.UpdateFlag(r.Context(), key, *req.Value); err != nil {
		response.InternalError(w, r, "failed to update flag")
		return
	}

	response.JSON(w, r, http.StatusOK, models.FlagsResponse{
		Phase: h.store.Phase(),
		Flags: h.store.Flags(),
	})
}

// GetPhase handles GET /v1/phase - the active migration phase.
func (h *FlagsHandler) GetPhase(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.PhaseResponse{
		Phase: h.store.Phase(),
		Flags: h.store.Flags(),
	})
}

// UpdatePhase handles PUT /v1/phase - move to a new migration phase.
func (h *FlagsHandler) UpdatePhase(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	phase, err := flags.ParsePhase(req.Phase)
	if err != nil {
		if errors.Is(err, flags.ErrUnknownPhase) {
			response.BadRequest(w, r, "unknown migration phase", []models.FieldError{
				{Field: "phase", Message: "must be one of foundation, services, critical", Code: "invalid"},
			})
			return
		}
		response.InternalError(w, r, "failed to parse phase")
		return
	}

	if err := h.store.SetPhase(phase); err != nil {
		response.InternalError(w, r, "failed to set phase")
		return
	}

	response.JSON(w, r, http.StatusOK, models.PhaseResponse{
		Phase: h.store.Phase(),
		Flags: h.store.Flags(),
	})
}

// TriggerRollback handles POST /v1/rollback - engage the emergency rollback.
func (h *FlagsHandler) TriggerRollback(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TriggerEmergencyRollback(r.Context()); err != nil {
		response.InternalError(w, r, "failed to trigger emergency rollback")
		return
	}

	response.JSON(w, r, http.StatusOK, models.RollbackResponse{
		TriggeredAt: models.Timestamp(time.Now()),
		Flags:       h.store.Flags(),
	})
}

// ListComponents handles GET /v1/components - migratable components with
// their live flag state.
func (h *FlagsHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	configs := flags.Components()
	components := make([]models.ComponentResponse, 0, len(configs))
	for _, c := range configs {
		components = append(components, models.ComponentResponse{
			Name:          c.Name,
			Flag:          c.Flag,
			Enabled:       h.store.IsEnabled(c.Flag),
			Risk:          c.Risk,
			Prerequisites: c.Prerequisites,
			RollbackTime:  c.RollbackTime,
		})
	}

	response.JSON(w, r, http.StatusOK, models.ComponentsResponse{Components: components})
}
