package history

import (
	"log/slog"
	"sync"
)

// PlayedHook is called once for every finished sound
type PlayedHook func(event Event)

// Tracker fans finished sounds out to its hooks
type Tracker struct {
	hooks []PlayedHook
}

// TrackerOption is a functional option for configuring Tracker
type TrackerOption func(*Tracker)

// NewTracker creates a Tracker with optional hooks
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithHook adds a hook to be called for every event
func WithHook(hook PlayedHook) TrackerOption {
	return func(t *Tracker) {
		t.hooks = append(t.hooks, hook)
	}
}

// Played reports event to every hook in registration order
func (t *Tracker) Played(event Event) {
	for _, hook := range t.hooks {
		hook(event)
	}
}

// SlogHook logs every event for debugging
type SlogHook struct {
	logger *slog.Logger
}

// NewSlogHook creates a SlogHook; a nil logger means the default logger
func NewSlogHook(logger *slog.Logger) *SlogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHook{logger: logger}
}

func (s *SlogHook) GetHook() PlayedHook {
	return func(event Event) {
		s.logger.Debug("sound finished",
			"kind", event.Kind,
			"path", event.Path,
			"backend", event.Backend,
			"frames", event.Frames,
			"duration", event.Duration,
			"completed", event.Completed)
	}
}

// DBHook writes events to the history database. After the first failed insert it
// disables itself so playback never stalls on a broken database.
type DBHook struct {
	store    *Store
	disabled bool
	mutex    sync.Mutex
}

func NewDBHook(store *Store) *DBHook {
	return &DBHook{store: store}
}

func (d *DBHook) GetHook() PlayedHook {
	return func(event Event) {
		d.mutex.Lock()
		defer d.mutex.Unlock()
		if d.disabled {
			return
		}
		if _, err := d.store.Record(event); err != nil {
			slog.Warn("playback history failed, disabling", "error", err, "path", event.Path)
			d.disabled = true
		}
	}
}

// Disabled reports whether an earlier insert failed
func (d *DBHook) Disabled() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.disabled
}
