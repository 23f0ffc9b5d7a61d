// Package flags implements the migration feature flag resolution pipeline:
// a closed registry of boolean flags, staged migration phases, environment
// overrides, and the global safety overrides (emergency rollback and
// maintenance mode) that gate the legacy-to-shared frontend migration.
package flags

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned when an operation references a flag key that is
// not in the canonical definition table. This indicates a deploy/config
// mismatch and is never silently substituted with a default.
var ErrUnknownKey = errors.New("unknown feature flag key")

// Key identifies a feature flag. The set of keys is closed: every key has
// exactly one entry in the canonical definition table.
type Key string

// Well-known feature flag keys.
const (
	// KeyUseSharedTheme gates the shared theme provider.
	KeyUseSharedTheme Key = "useSharedTheme"

	// KeyUseSharedAuth gates the shared authentication context.
	KeyUseSharedAuth Key = "useSharedAuth"

	// KeyUseSharedLayout gates the shared page layout shell.
	KeyUseSharedLayout Key = "useSharedLayout"

	// KeyUseSharedDashboard gates the shared governance dashboard.
	KeyUseSharedDashboard Key = "useSharedDashboard"

	// KeyUseSharedQuantumagi gates the shared Quantumagi devnet views.
	KeyUseSharedQuantumagi Key = "useSharedQuantumagi"

	// KeyUseSharedMonitoring gates the shared monitoring views.
	KeyUseSharedMonitoring Key = "useSharedMonitoring"

	// KeyEmergencyRollback forces all non-safety flags off when set.
	KeyEmergencyRollback Key = "emergencyRollback"

	// KeyMaintenanceMode forces all flags off except authentication when set.
	KeyMaintenanceMode Key = "maintenanceMode"
)

// Category groups flags by how defaults and the override rules treat them.
type Category string

// Flag categories.
const (
	// CategoryInfrastructure flags gate shared plumbing and default to enabled.
	CategoryInfrastructure Category = "infrastructure"

	// CategoryFeature flags gate migratable UI regions and default to disabled.
	CategoryFeature Category = "feature"

	// CategorySafety flags are the global overrides themselves.
	CategorySafety Category = "safety"
)

// Definition describes one flag: its default value, its category, and the
// environment variable that may override it at startup.
type Definition struct {
	Key      Key
	Category Category
	Default  bool
	EnvVar   string
}

// definitions is the canonical flag table. Exactly one entry per declared
// Key; buildIndex panics on duplicates so a bad table fails at boot.
var definitions = []Definition{
	{Key: KeyUseSharedTheme, Category: CategoryInfrastructure, Default: true, EnvVar: "MIGRATION_USE_SHARED_THEME"},
	{Key: KeyUseSharedAuth, Category: CategoryInfrastructure, Default: true, EnvVar: "MIGRATION_USE_SHARED_AUTH"},
	{Key: KeyUseSharedLayout, Category: CategoryInfrastructure, Default: true, EnvVar: "MIGRATION_USE_SHARED_LAYOUT"},
	{Key: KeyUseSharedDashboard, Category: CategoryFeature, Default: false, EnvVar: "MIGRATION_USE_SHARED_DASHBOARD"},
	{Key: KeyUseSharedQuantumagi, Category: CategoryFeature, Default: false, EnvVar: "MIGRATION_USE_SHARED_QUANTUMAGI"},
	{Key: KeyUseSharedMonitoring, Category: CategoryFeature, Default: false, EnvVar: "MIGRATION_USE_SHARED_MONITORING"},
	{Key: KeyEmergencyRollback, Category: CategorySafety, Default: false, EnvVar: "MIGRATION_EMERGENCY_ROLLBACK"},
	{Key: KeyMaintenanceMode, Category: CategorySafety, Default: false, EnvVar: "MIGRATION_MAINTENANCE_MODE"},
}

var definitionIndex = buildIndex()

func buildIndex() map[Key]Definition {
	idx := make(map[Key]Definition, len(definitions))
	for _, def := range definitions {
		if def.Key == "" || def.EnvVar == "" {
			panic(fmt.Sprintf("flags: incomplete definition for %q", def.Key))
		}
		if _, dup := idx[def.Key]; dup {
			panic(fmt.Sprintf("flags: duplicate definition for %q", def.Key))
		}
		idx[def.Key] = def
	}
	return idx
}

// Lookup returns the definition for the given key.
func Lookup(key Key) (Definition, error) {
	def, ok := definitionIndex[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return def, nil
}

// ParseKey validates a raw string (API path segment, CLI argument, config
// file entry) against the closed key set.
func ParseKey(s string) (Key, error) {
	key := Key(s)
	if _, ok := definitionIndex[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
	return key, nil
}

// Keys returns every flag key in table order.
func Keys() []Key {
	keys := make([]Key, 0, len(definitions))
	for _, def := range definitions {
		keys = append(keys, def.Key)
	}
	return keys
}

// Definitions returns a copy of the canonical flag table in declaration order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// FlagSet is a complete mapping from flag key to resolved boolean value.
// Every key in the definition table is present.
type FlagSet map[Key]bool

// Partial is a sparse flag mapping used by the merge tiers of the
// resolution pipeline (phase sets, environment overrides, runtime updates).
type Partial map[Key]bool

// Clone returns an independent copy of the flag set.
func (fs FlagSet) Clone() FlagSet {
	out := make(FlagSet, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// Merge overlays the partial set onto the flag set, last-applied wins.
func (fs FlagSet) Merge(p Partial) {
	for k, v := range p {
		fs[k] = v
	}
}

// Defaults returns the canonical default flag set: infrastructure flags on,
// feature and safety flags off.
func Defaults() FlagSet {
	fs := make(FlagSet, len(definitions))
	for _, def := range definitions {
		fs[def.Key] = def.Default
	}
	return fs
}
