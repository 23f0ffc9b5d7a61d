package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govmigrate/govmigrate/internal/config"
	"github.com/govmigrate/govmigrate/internal/flags"
)

// runCLI executes the root command with the given arguments, capturing
// combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func phaseFilePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "migration-control.yaml")
}

func TestSet_AdvancesPhase(t *testing.T) {
	path := phaseFilePath(t)
	require.NoError(t, config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseFoundation}))

	out, err := runCLI(t, "set", "services", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "migration phase set to services")
	assert.Contains(t, out, "useSharedDashboard     on")
	assert.Contains(t, out, "useSharedQuantumagi    off")

	file, err := config.LoadPhaseFile(path)
	require.NoError(t, err)
	assert.Equal(t, flags.PhaseServices, file.Phase)
	assert.False(t, file.UpdatedAt.IsZero())
}

func TestSet_InvalidPhase(t *testing.T) {
	path := phaseFilePath(t)
	require.NoError(t, config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseFoundation}))

	_, err := runCLI(t, "set", "warp", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, flags.ErrUnknownPhase)

	// The file is untouched.
	file, loadErr := config.LoadPhaseFile(path)
	require.NoError(t, loadErr)
	assert.Equal(t, flags.PhaseFoundation, file.Phase)
}

func TestSet_MissingPhaseFile(t *testing.T) {
	path := phaseFilePath(t)

	_, err := runCLI(t, "set", "services", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrPhaseFileNotFound)
}

func TestStatus_ReadsPhaseFile(t *testing.T) {
	path := phaseFilePath(t)
	require.NoError(t, config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseCritical}))

	out, err := runCLI(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "phase: critical")
	assert.Contains(t, out, "useSharedQuantumagi    on")
}

func TestStatus_MissingFileShowsDefaults(t *testing.T) {
	path := phaseFilePath(t)

	out, err := runCLI(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "phase: foundation")
	assert.Contains(t, out, "useSharedTheme         on")
	assert.Contains(t, out, "useSharedDashboard     off")
}

func TestRollback_ForcesSharedComponentsOff(t *testing.T) {
	path := phaseFilePath(t)
	require.NoError(t, config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseCritical}))

	out, err := runCLI(t, "rollback", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "emergency rollback triggered")
	assert.Contains(t, out, "useSharedQuantumagi    off")
	assert.Contains(t, out, "emergencyRollback      on")

	file, err := config.LoadPhaseFile(path)
	require.NoError(t, err)
	assert.True(t, file.Overrides[flags.KeyEmergencyRollback])
	assert.Equal(t, flags.PhaseCritical, file.Phase, "rollback keeps the phase for later recovery")
}

func TestRollback_SucceedsWithoutPhaseFile(t *testing.T) {
	path := phaseFilePath(t)

	_, err := runCLI(t, "rollback", "--config", path)
	require.NoError(t, err)

	file, err := config.LoadPhaseFile(path)
	require.NoError(t, err)
	assert.True(t, file.Overrides[flags.KeyEmergencyRollback])
}

func TestTest_ReportsDownServicesWithoutFailing(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	// One reachable backend, the rest refused.
	t.Setenv("AUTH_SERVICE_URL", up.URL)
	t.Setenv("PRINCIPLES_SERVICE_URL", "http://127.0.0.1:1")
	t.Setenv("SYNTHESIS_SERVICE_URL", "http://127.0.0.1:1")
	t.Setenv("COMPLIANCE_SERVICE_URL", "http://127.0.0.1:1")
	t.Setenv("DEVNET_RPC_URL", up.URL)

	out, err := runCLI(t, "test", "--config", phaseFilePath(t))
	require.NoError(t, err, "down dependencies must not fail the command")
	assert.Contains(t, out, "UP")
	assert.Contains(t, out, "DOWN")
	assert.Contains(t, out, "3 endpoint(s) down")
}
