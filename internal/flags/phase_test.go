package flags_test

import (
	"errors"
	"testing"

	"github.com/govmigrate/govmigrate/internal/flags"
)

func TestParsePhase(t *testing.T) {
	for _, phase := range flags.Phases() {
		parsed, err := flags.ParsePhase(string(phase))
		if err != nil {
			t.Errorf("unexpected error for %s: %v", phase, err)
		}
		if parsed != phase {
			t.Errorf("expected %s, got %s", phase, parsed)
		}
	}

	_, err := flags.ParsePhase("rollout")
	if !errors.Is(err, flags.ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestPhaseFlags(t *testing.T) {
	foundation := flags.PhaseFlags(flags.PhaseFoundation)
	if !foundation[flags.KeyUseSharedTheme] || !foundation[flags.KeyUseSharedAuth] {
		t.Error("expected foundation to enable infrastructure flags")
	}
	if _, ok := foundation[flags.KeyUseSharedDashboard]; ok {
		t.Error("expected foundation to leave dashboard undefined")
	}

	services := flags.PhaseFlags(flags.PhaseServices)
	if !services[flags.KeyUseSharedDashboard] || !services[flags.KeyUseSharedMonitoring] {
		t.Error("expected services to enable dashboard and monitoring")
	}
	if _, ok := services[flags.KeyUseSharedQuantumagi]; ok {
		t.Error("expected services to leave quantumagi undefined")
	}

	critical := flags.PhaseFlags(flags.PhaseCritical)
	if !critical[flags.KeyUseSharedQuantumagi] {
		t.Error("expected critical to enable quantumagi")
	}

	for _, phase := range flags.Phases() {
		set := flags.PhaseFlags(phase)
		for key := range set {
			switch key {
			case flags.KeyEmergencyRollback, flags.KeyMaintenanceMode:
				t.Errorf("phase %s must not define safety flag %s", phase, key)
			}
		}
	}
}

func TestPhaseFlags_ZeroValueFallsBackToFoundation(t *testing.T) {
	zero := flags.PhaseFlags("")
	foundation := flags.PhaseFlags(flags.PhaseFoundation)

	if len(zero) != len(foundation) {
		t.Fatalf("expected foundation fallback, got %d entries", len(zero))
	}
	for key, value := range foundation {
		if zero[key] != value {
			t.Errorf("expected %s=%v in fallback set", key, value)
		}
	}
}
