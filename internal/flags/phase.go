package flags

import (
	"errors"
	"fmt"
)

// ErrUnknownPhase is returned when a phase name is not in the closed phase set.
var ErrUnknownPhase = errors.New("unknown migration phase")

// Phase names a stage of the migration rollout. Each phase maps
// deterministically to a partial flag set; flags the phase does not mention
// keep their current or default values.
type Phase string

// Migration phases, in rollout order.
const (
	// PhaseFoundation enables only the shared infrastructure (theme, auth,
	// layout). This is the fallback when no phase is configured.
	PhaseFoundation Phase = "foundation"

	// PhaseServices additionally cuts the dashboard and monitoring regions
	// over to the shared implementation.
	PhaseServices Phase = "services"

	// PhaseCritical cuts every migratable region over, including the
	// Quantumagi devnet views.
	PhaseCritical Phase = "critical"
)

var phaseSets = map[Phase]Partial{
	PhaseFoundation: {
		KeyUseSharedTheme:  true,
		KeyUseSharedAuth:   true,
		KeyUseSharedLayout: true,
	},
	PhaseServices: {
		KeyUseSharedTheme:      true,
		KeyUseSharedAuth:       true,
		KeyUseSharedLayout:     true,
		KeyUseSharedDashboard:  true,
		KeyUseSharedMonitoring: true,
	},
	PhaseCritical: {
		KeyUseSharedTheme:      true,
		KeyUseSharedAuth:       true,
		KeyUseSharedLayout:     true,
		KeyUseSharedDashboard:  true,
		KeyUseSharedMonitoring: true,
		KeyUseSharedQuantumagi: true,
	},
}

// ParsePhase validates a raw phase name against the closed phase set.
func ParsePhase(s string) (Phase, error) {
	phase := Phase(s)
	if _, ok := phaseSets[phase]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return phase, nil
}

// Phases returns the phases in rollout order.
func Phases() []Phase {
	return []Phase{PhaseFoundation, PhaseServices, PhaseCritical}
}

// PhaseFlags returns the partial flag set for the given phase. The zero
// value falls back to the foundation set.
func PhaseFlags(p Phase) Partial {
	set, ok := phaseSets[p]
	if !ok {
		set = phaseSets[PhaseFoundation]
	}
	out := make(Partial, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}
