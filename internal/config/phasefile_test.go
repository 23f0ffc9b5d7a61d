package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/govmigrate/govmigrate/internal/config"
	"github.com/govmigrate/govmigrate/internal/flags"
)

func TestPhaseFile_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration.yaml")

	in := config.PhaseFile{
		Phase: flags.PhaseServices,
		Overrides: map[flags.Key]bool{
			flags.KeyUseSharedMonitoring: true,
		},
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := config.SavePhaseFile(path, in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, err := config.LoadPhaseFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if out.Phase != flags.PhaseServices {
		t.Errorf("expected phase services, got %q", out.Phase)
	}
	if !out.Overrides[flags.KeyUseSharedMonitoring] {
		t.Error("expected monitoring override to survive the roundtrip")
	}
}

func TestLoadPhaseFile_Missing(t *testing.T) {
	_, err := config.LoadPhaseFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, config.ErrPhaseFileNotFound) {
		t.Errorf("expected ErrPhaseFileNotFound, got %v", err)
	}
}

func TestLoadPhaseFile_RejectsUnknownPhase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration.yaml")
	if err := os.WriteFile(path, []byte("phase: warp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := config.LoadPhaseFile(path); !errors.Is(err, flags.ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
}

func TestLoadPhaseFile_RejectsUnknownOverrideKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration.yaml")
	content := "phase: foundation\noverrides:\n  useSharedEverything: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := config.LoadPhaseFile(path); !errors.Is(err, flags.ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestSavePhaseFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration.yaml")
	err := config.SavePhaseFile(path, config.PhaseFile{Phase: "warp"})
	if !errors.Is(err, flags.ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("expected no file to be written for an invalid document")
	}
}

func TestWatcher_ReloadsOnAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migration.yaml")
	if err := config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseFoundation}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := make(chan config.PhaseFile, 1)
	watcher, err := config.NewWatcher(config.WatcherConfig{
		Path:     path,
		Logger:   zerolog.Nop(),
		Debounce: 20 * time.Millisecond,
		OnReload: func(f config.PhaseFile) {
			select {
			case reloaded <- f:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)

	if err := config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseCritical}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	select {
	case file := <-reloaded:
		if file.Phase != flags.PhaseCritical {
			t.Errorf("expected reloaded phase critical, got %q", file.Phase)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_KeepsPreviousConfigOnBadWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migration.yaml")
	if err := config.SavePhaseFile(path, config.PhaseFile{Phase: flags.PhaseFoundation}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := make(chan config.PhaseFile, 1)
	watcher, err := config.NewWatcher(config.WatcherConfig{
		Path:     path,
		Logger:   zerolog.Nop(),
		Debounce: 20 * time.Millisecond,
		OnReload: func(f config.PhaseFile) {
			select {
			case reloaded <- f:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("phase: warp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case file := <-reloaded:
		t.Errorf("expected no reload for an invalid file, got phase %q", file.Phase)
	case <-time.After(300 * time.Millisecond):
	}
}
