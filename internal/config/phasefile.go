// Package config loads and watches the migration phase file, the on-disk
// source of truth the CLI writes and the gateway reads.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/govmigrate/govmigrate/internal/flags"
)

// ErrPhaseFileNotFound is returned when the phase file does not exist.
var ErrPhaseFileNotFound = errors.New("phase file not found")

// PhaseFile is the on-disk migration control document.
type PhaseFile struct {
	// Phase is the active migration phase.
	Phase flags.Phase `yaml:"phase"`

	// Overrides are explicit per-flag values layered on top of the phase.
	Overrides map[flags.Key]bool `yaml:"overrides,omitempty"`

	// UpdatedAt records the last write, informational only.
	UpdatedAt time.Time `yaml:"updatedAt,omitempty"`
}

// Validate checks the phase and every override key against the known sets.
func (f PhaseFile) Validate() error {
	if f.Phase != "" {
		if _, err := flags.ParsePhase(string(f.Phase)); err != nil {
			return err
		}
	}
	for key := range f.Overrides {
		if _, err := flags.ParseKey(string(key)); err != nil {
			return err
		}
	}
	return nil
}

// OverridesPartial converts the override map to a flag partial.
func (f PhaseFile) OverridesPartial() flags.Partial {
	if len(f.Overrides) == 0 {
		return nil
	}
	partial := make(flags.Partial, len(f.Overrides))
	for key, value := range f.Overrides {
		partial[key] = value
	}
	return partial
}

// LoadPhaseFile reads and validates the phase file at path.
func LoadPhaseFile(path string) (PhaseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PhaseFile{}, fmt.Errorf("%w: %s", ErrPhaseFileNotFound, path)
		}
		return PhaseFile{}, fmt.Errorf("reading phase file: %w", err)
	}

	var file PhaseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return PhaseFile{}, fmt.Errorf("parsing phase file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return PhaseFile{}, fmt.Errorf("invalid phase file: %w", err)
	}
	return file, nil
}

// SavePhaseFile validates and writes the phase file atomically, creating
// parent directories as needed. A reader never observes a partial write.
func SavePhaseFile(path string, file PhaseFile) error {
	if err := file.Validate(); err != nil {
		return fmt.Errorf("invalid phase file: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding phase file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating phase file directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".phasefile-*")
	if err != nil {
		return fmt.Errorf("creating temp phase file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing phase file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing phase file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing phase file: %w", err)
	}
	return nil
}
