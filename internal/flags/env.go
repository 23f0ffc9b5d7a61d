package flags

import (
	"fmt"
	"os"
	"strconv"
)

// EnvPhaseVar is the environment variable naming the active migration phase.
const EnvPhaseVar = "MIGRATION_PHASE"

// LookupFunc resolves environment variables. os.LookupEnv in production;
// tests supply a map-backed lookup.
type LookupFunc func(key string) (string, bool)

// OSLookup reads from the process environment.
func OSLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// EnvironmentOverrides reads the per-flag environment variables from the
// definition table and returns the explicitly set values. A variable that
// is set but not parseable as a boolean is a configuration error.
func EnvironmentOverrides(lookup LookupFunc) (Partial, error) {
	if lookup == nil {
		lookup = OSLookup
	}
	overrides := make(Partial)
	for _, def := range definitions {
		raw, ok := lookup(def.EnvVar)
		if !ok || raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s=%q: %w", def.EnvVar, raw, err)
		}
		overrides[def.Key] = value
	}
	return overrides, nil
}

// EnvironmentFlags returns the default flag set merged with environment
// overrides. This is the startup baseline before phase and runtime tiers
// are applied.
func EnvironmentFlags(lookup LookupFunc) (FlagSet, error) {
	overrides, err := EnvironmentOverrides(lookup)
	if err != nil {
		return nil, err
	}
	fs := Defaults()
	fs.Merge(overrides)
	return fs, nil
}

// EnvironmentPhase reads MIGRATION_PHASE. An unset variable falls back to
// the foundation phase; a set but invalid name is a configuration error.
func EnvironmentPhase(lookup LookupFunc) (Phase, error) {
	if lookup == nil {
		lookup = OSLookup
	}
	raw, ok := lookup(EnvPhaseVar)
	if !ok || raw == "" {
		return PhaseFoundation, nil
	}
	return ParsePhase(raw)
}
