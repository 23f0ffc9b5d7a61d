package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadFunc receives the freshly loaded phase file after a change.
type ReloadFunc func(PhaseFile)

// WatcherConfig holds configuration for the phase file watcher.
type WatcherConfig struct {
	// Path is the phase file location.
	Path string

	// OnReload is invoked with each successfully reloaded file.
	OnReload ReloadFunc

	Logger zerolog.Logger

	// Debounce collapses write bursts from editors and atomic replaces.
	// Default: 200ms.
	Debounce time.Duration
}

// Watcher reloads the phase file when it changes on disk. The parent
// directory is watched rather than the file itself so atomic replaces
// (temp file plus rename) are observed.
type Watcher struct {
	path     string
	onReload ReloadFunc
	logger   zerolog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given phase file.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	debounce := cfg.Debounce
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(cfg.Path)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:     cfg.Path,
		onReload: cfg.OnReload,
		logger:   cfg.Logger,
		debounce: debounce,
		fsw:      fsw,
	}, nil
}

// Run processes change events until the context is cancelled. A malformed
// file logs an error and keeps the last good configuration; the watcher
// never stops on a bad write.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("phase file watcher error")
		}
	}
}

func (w *Watcher) reload() {
	file, err := LoadPhaseFile(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("phase file reload failed, keeping previous configuration")
		return
	}

	w.logger.Info().
		Str("phase", string(file.Phase)).
		Int("overrides", len(file.Overrides)).
		Msg("phase file reloaded")

	if w.onReload != nil {
		w.onReload(file)
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
