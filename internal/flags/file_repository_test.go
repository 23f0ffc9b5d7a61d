package flags_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/govmigrate/govmigrate/internal/flags"
)

func TestFileRepository_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "overrides.json")
	repo := flags.NewFileRepository(path)
	ctx := context.Background()

	// Empty until first write.
	overrides, err := repo.Overrides(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("expected no overrides, got %d", len(overrides))
	}

	if err := repo.SetOverride(ctx, flags.KeyUseSharedDashboard, true); err != nil {
		t.Fatalf("failed to set override: %v", err)
	}
	if err := repo.SetOverride(ctx, flags.KeyMaintenanceMode, false); err != nil {
		t.Fatalf("failed to set override: %v", err)
	}

	// A fresh repository on the same path sees the persisted values.
	overrides, err = flags.NewFileRepository(path).Overrides(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := overrides[flags.KeyUseSharedDashboard]; !ok || !v {
		t.Error("expected persisted dashboard override")
	}
	if v, ok := overrides[flags.KeyMaintenanceMode]; !ok || v {
		t.Error("expected persisted maintenance override false")
	}
}

func TestFileRepository_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	repo := flags.NewFileRepository(path)
	ctx := context.Background()

	if err := repo.SetOverride(ctx, flags.KeyUseSharedTheme, false); err != nil {
		t.Fatalf("failed to set override: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected overrides file removed")
	}

	// Clearing an already-empty repository is not an error.
	if err := repo.Clear(ctx); err != nil {
		t.Errorf("unexpected error clearing twice: %v", err)
	}
}

func TestFileRepository_RejectsUnknownPersistedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	if err := os.WriteFile(path, []byte(`{"overrides":{"useSharedNothing":true}}`), 0o644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	_, err := flags.NewFileRepository(path).Overrides(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown persisted key")
	}
}
