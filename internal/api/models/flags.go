package models

import (
	"github.com/govmigrate/govmigrate/internal/flags"
)

// FlagsResponse is the full resolved flag state.
type FlagsResponse struct {
	Phase flags.Phase        `json:"phase"`
	Flags map[flags.Key]bool `json:"flags"`
}

// UpdateFlagRequest sets one flag.
type UpdateFlagRequest struct {
	Value *bool `json:"value"`
}

// PhaseResponse reports the active migration phase.
type PhaseResponse struct {
	Phase flags.Phase        `json:"phase"`
	Flags map[flags.Key]bool `json:"flags"`
}

// UpdatePhaseRequest moves the migration to a new phase.
type UpdatePhaseRequest struct {
	Phase string `json:"phase"`
}

// RollbackResponse confirms an emergency rollback.
type RollbackResponse struct {
	TriggeredAt Timestamp          `json:"triggeredAt"`
	Flags       map[flags.Key]bool `json:"flags"`
}

// ComponentResponse describes one migratable component and its live state.
type ComponentResponse struct {
	Name          string          `json:"name"`
	Flag          flags.Key       `json:"flag"`
	Enabled       bool            `json:"enabled"`
	Risk          flags.RiskLevel `json:"risk"`
	Prerequisites []flags.Key     `json:"prerequisites,omitempty"`
	RollbackTime  string          `json:"rollbackTime"`
}

// ComponentsResponse lists all migratable components.
type ComponentsResponse struct {
	Components []ComponentResponse `json:"components"`
}
