package flags

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository, used
// when multiple control-plane replicas must agree on persisted overrides.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL override repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the override table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS migration_flag_overrides (
			key TEXT PRIMARY KEY,
			value BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`

	_, err := r.pool.Exec(ctx, query)
	return err
}

// Overrides returns every persisted override.
func (r *PostgresRepository) Overrides(ctx context.Context) (Partial, error) {
	query := `
		SELECT key, value
		FROM migration_flag_overrides
		ORDER BY key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make(Partial)
	for rows.Next() {
		var (
			raw   string
			value bool
		)
		if err := rows.Scan(&raw, &value); err != nil {
			return nil, err
		}

		key, err := ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("persisted override: %w", err)
		}
		overrides[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return overrides, nil
}

// SetOverride persists a single override.
func (r *PostgresRepository) SetOverride(ctx context.Context, key Key, value bool) error {
	query := `
		INSERT INTO migration_flag_overrides (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, string(key), value, time.Now())
	return err
}

// Clear removes all persisted overrides.
func (r *PostgresRepository) Clear(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM migration_flag_overrides`)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
