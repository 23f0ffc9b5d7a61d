package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRepository persists overrides to a JSON file, the server-side
// analogue of the per-browser storage namespace the dashboards used. Writes
// are atomic (temp file + rename) so a crash never leaves a torn file.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

type fileOverrides struct {
	Overrides map[string]bool `json:"overrides"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewFileRepository creates a repository backed by the given file path.
// The file does not have to exist yet.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Overrides returns every persisted override. Entries whose key is no
// longer in the definition table are a configuration error.
func (r *FileRepository) Overrides(_ context.Context) (Partial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.read()
	if err != nil {
		return nil, err
	}

	out := make(Partial, len(stored.Overrides))
	for raw, value := range stored.Overrides {
		key, err := ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("persisted override: %w", err)
		}
		out[key] = value
	}
	return out, nil
}

// SetOverride persists a single override.
func (r *FileRepository) SetOverride(_ context.Context, key Key, value bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.read()
	if err != nil {
		return err
	}
	stored.Overrides[string(key)] = value
	stored.UpdatedAt = time.Now()
	return r.write(stored)
}

// Clear removes all persisted overrides.
func (r *FileRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove overrides file: %w", err)
	}
	return nil
}

func (r *FileRepository) read() (*fileOverrides, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileOverrides{Overrides: make(map[string]bool)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var stored fileOverrides
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}
	if stored.Overrides == nil {
		stored.Overrides = make(map[string]bool)
	}
	return &stored, nil
}

func (r *FileRepository) write(stored *fileOverrides) error {
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create overrides dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".overrides-*.json")
	if err != nil {
		return fmt.Errorf("create temp overrides file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write overrides: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close overrides file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace overrides file: %w", err)
	}
	return nil
}

// Ensure FileRepository implements Repository interface.
var _ Repository = (*FileRepository)(nil)
