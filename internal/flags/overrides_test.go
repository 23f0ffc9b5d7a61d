package flags_test

import (
	"testing"

	"github.com/govmigrate/govmigrate/internal/flags"
)

func TestApplyOverrides_EmergencyRollback(t *testing.T) {
	fs := flags.Defaults()
	fs[flags.KeyUseSharedDashboard] = true
	fs[flags.KeyUseSharedQuantumagi] = true
	fs[flags.KeyEmergencyRollback] = true
	fs[flags.KeyMaintenanceMode] = true // left untouched, not forced off

	out := flags.ApplyOverrides(fs)

	for _, key := range flags.Keys() {
		switch key {
		case flags.KeyEmergencyRollback, flags.KeyMaintenanceMode:
			if !out[key] {
				t.Errorf("expected %s to keep its value during emergency rollback", key)
			}
		default:
			if out[key] {
				t.Errorf("expected %s to be forced off during emergency rollback", key)
			}
		}
	}
}

func TestApplyOverrides_MaintenanceMode(t *testing.T) {
	fs := flags.Defaults()
	fs[flags.KeyUseSharedDashboard] = true
	fs[flags.KeyMaintenanceMode] = true

	out := flags.ApplyOverrides(fs)

	if !out[flags.KeyUseSharedAuth] {
		t.Error("expected useSharedAuth to remain enabled during maintenance")
	}
	if !out[flags.KeyMaintenanceMode] {
		t.Error("expected maintenanceMode to remain set")
	}
	if out[flags.KeyEmergencyRollback] {
		t.Error("expected emergencyRollback to keep its prior (false) value")
	}
	for _, key := range flags.Keys() {
		switch key {
		case flags.KeyUseSharedAuth, flags.KeyEmergencyRollback, flags.KeyMaintenanceMode:
			continue
		}
		if out[key] {
			t.Errorf("expected %s to be forced off during maintenance", key)
		}
	}
}

func TestApplyOverrides_MaintenanceKeepsAuthPriorValue(t *testing.T) {
	fs := flags.Defaults()
	fs[flags.KeyUseSharedAuth] = false
	fs[flags.KeyMaintenanceMode] = true

	out := flags.ApplyOverrides(fs)

	// Maintenance leaves auth untouched rather than forcing it on.
	if out[flags.KeyUseSharedAuth] {
		t.Error("expected useSharedAuth to keep its prior disabled value")
	}
}

func TestApplyOverrides_EmergencyTakesPrecedenceOverMaintenance(t *testing.T) {
	fs := flags.Defaults()
	fs[flags.KeyEmergencyRollback] = true
	fs[flags.KeyMaintenanceMode] = true

	out := flags.ApplyOverrides(fs)

	// Under emergency rollback auth is forced off even though maintenance
	// mode alone would have spared it.
	if out[flags.KeyUseSharedAuth] {
		t.Error("expected useSharedAuth to be forced off when both overrides are set")
	}
}

func TestApplyOverrides_PassThrough(t *testing.T) {
	fs := flags.Defaults()
	fs[flags.KeyUseSharedDashboard] = true

	out := flags.ApplyOverrides(fs)

	for _, key := range flags.Keys() {
		if out[key] != fs[key] {
			t.Errorf("expected %s to pass through unchanged, got %v", key, out[key])
		}
	}
}

func TestApplyOverrides_Idempotent(t *testing.T) {
	cases := []flags.FlagSet{
		flags.Defaults(),
		func() flags.FlagSet {
			fs := flags.Defaults()
			fs[flags.KeyEmergencyRollback] = true
			return fs
		}(),
		func() flags.FlagSet {
			fs := flags.Defaults()
			fs[flags.KeyMaintenanceMode] = true
			fs[flags.KeyUseSharedDashboard] = true
			return fs
		}(),
	}

	for i, fs := range cases {
		once := flags.ApplyOverrides(fs)
		twice := flags.ApplyOverrides(once)
		for _, key := range flags.Keys() {
			if once[key] != twice[key] {
				t.Errorf("case %d: %s differs between first and second application", i, key)
			}
		}
	}
}
