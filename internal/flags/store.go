package flags

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/govmigrate/govmigrate/internal/events"
)

// Subscriber receives the resolved flag set after every change.
// Subscribers run synchronously on the updating goroutine; a panicking
// subscriber is isolated and never blocks the others.
type Subscriber func(FlagSet)

// StoreConfig holds configuration for the flag store.
type StoreConfig struct {
	// Phase is the active migration phase. Zero value falls back to
	// foundation.
	Phase Phase

	// Env resolves environment variables. Defaults to the process
	// environment; tests supply a map-backed lookup.
	Env LookupFunc

	// Initial is the caller-supplied override tier, used mainly for tests
	// and manual control. Applied above persisted overrides.
	Initial Partial

	// Repository persists explicit overrides. Optional; overrides are
	// process-lifetime only when nil.
	Repository Repository

	// Events receives rollback and phase-change broadcasts. Optional.
	Events *events.Bus

	Logger zerolog.Logger
}

// Store owns the resolved flag set. It is an explicitly constructed state
// container: the resolution inputs (defaults, phase set, environment
// overrides, persisted and initial overrides, runtime updates) are merged
// in precedence order and the safety override transform is applied as a
// final derived pass. All reads go through the post-override values.
type Store struct {
	logger zerolog.Logger
	repo   Repository
	bus    *events.Bus

	mu        sync.RWMutex
	phase     Phase
	env       Partial
	persisted Partial
	initial   Partial
	updates   Partial
	resolved  FlagSet

	subMu  sync.Mutex
	nextID int
	subs   map[int]Subscriber
}

// NewStore builds a store and synchronously resolves the initial flag set.
// Configuration errors (malformed environment values, unknown keys in the
// initial or persisted tiers) fail construction; they indicate a
// deploy/config mismatch and must be visible at boot.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	env, err := EnvironmentOverrides(cfg.Env)
	if err != nil {
		return nil, err
	}

	initial := make(Partial, len(cfg.Initial))
	for key, value := range cfg.Initial {
		if _, err := Lookup(key); err != nil {
			return nil, fmt.Errorf("initial override: %w", err)
		}
		initial[key] = value
	}

	persisted := make(Partial)
	if cfg.Repository != nil {
		persisted, err = cfg.Repository.Overrides(ctx)
		if err != nil {
			return nil, fmt.Errorf("load persisted overrides: %w", err)
		}
	}

	s := &Store{
		logger:    cfg.Logger,
		repo:      cfg.Repository,
		bus:       cfg.Events,
		phase:     cfg.Phase,
		env:       env,
		persisted: persisted,
		initial:   initial,
		updates:   make(Partial),
		subs:      make(map[int]Subscriber),
	}
	s.resolveLocked()
	return s, nil
}

// resolveLocked recomputes the resolved set. Callers must hold s.mu or be
// inside construction.
func (s *Store) resolveLocked() {
	fs := Defaults()
	fs.Merge(PhaseFlags(s.phase))
	fs.Merge(s.env)
	fs.Merge(s.persisted)
	fs.Merge(s.initial)
	fs.Merge(s.updates)
	s.resolved = ApplyOverrides(fs)
}

// Flags returns a copy of the resolved, post-override flag set.
func (s *Store) Flags() FlagSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved.Clone()
}

// IsEnabled returns the post-override value for the given key. This is the
// only sanctioned way to branch on a flag; pre-override values can be stale
// relative to an active emergency or maintenance condition.
func (s *Store) IsEnabled(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolved[key]
}

// Phase returns the active migration phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.phase == "" {
		return PhaseFoundation
	}
	return s.phase
}

// UpdateFlag sets one flag at the runtime tier, persists it when a
// repository is configured, re-runs the override transform, and notifies
// subscribers. Unknown keys are configuration errors.
func (s *Store) UpdateFlag(ctx context.Context, key Key, value bool) error {
	if _, err := Lookup(key); err != nil {
		return err
	}

	if s.repo != nil {
		if err := s.repo.SetOverride(ctx, key, value); err != nil {
			return fmt.Errorf("persist override: %w", err)
		}
	}

	s.mu.Lock()
	s.updates[key] = value
	s.resolveLocked()
	snapshot := s.resolved.Clone()
	s.mu.Unlock()

	s.logger.Info().
		Str("flag", string(key)).
		Bool("value", value).
		Msg("flag updated")

	s.notify(snapshot)
	return nil
}

// SetPhase switches the active migration phase and re-resolves. The phase
// must come from ParsePhase; the store broadcasts the change on the bus.
func (s *Store) SetPhase(phase Phase) error {
	if _, err := ParsePhase(string(phase)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.phase == phase {
		s.mu.Unlock()
		return nil
	}
	s.phase = phase
	s.resolveLocked()
	snapshot := s.resolved.Clone()
	s.mu.Unlock()

	s.logger.Info().Str("phase", string(phase)).Msg("migration phase changed")

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Name:      events.EventPhaseChanged,
			Timestamp: time.Now(),
			Metadata:  map[string]string{"phase": string(phase)},
		})
	}

	s.notify(snapshot)
	return nil
}

// TriggerEmergencyRollback engages the emergency override, forcing every
// non-safety flag off on the next resolution, and broadcasts a single
// emergency-rollback event. The event is fire-and-forget with no
// acknowledgement; callers must not assume synchronous propagation.
func (s *Store) TriggerEmergencyRollback(ctx context.Context) error {
	if err := s.UpdateFlag(ctx, KeyEmergencyRollback, true); err != nil {
		return err
	}

	s.logger.Warn().Msg("emergency rollback triggered")

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Name:      events.EventEmergencyRollback,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// Reset discards the runtime update tier and re-resolves, for test
// isolation and operator-driven "back to configured state" resets.
// Persisted overrides are left intact; use the repository's Clear to drop
// those as well.
func (s *Store) Reset() {
	s.mu.Lock()
	s.updates = make(Partial)
	s.resolveLocked()
	snapshot := s.resolved.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
}

// Subscribe registers a subscriber and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snapshot FlagSet) {
	s.subMu.Lock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		s.safeNotify(fn, snapshot)
	}
}

func (s *Store) safeNotify(fn Subscriber, snapshot FlagSet) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("flag subscriber panicked")
		}
	}()
	fn(snapshot.Clone())
}
