package flags

import "context"

// Repository persists explicit flag overrides across restarts. Persisted
// values participate at the initial-override tier of the resolution
// pipeline, below runtime updates made during the current process lifetime.
type Repository interface {
	// Overrides returns every persisted override.
	Overrides(ctx context.Context) (Partial, error)

	// SetOverride persists a single override.
	SetOverride(ctx context.Context, key Key, value bool) error

	// Clear removes all persisted overrides.
	Clear(ctx context.Context) error
}
