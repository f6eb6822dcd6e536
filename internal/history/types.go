package history

import (
	"time"
)

// Kind says which command produced an event
type Kind string

const (
	KindPlay   Kind = "play"
	KindTone   Kind = "tone"
	KindRender Kind = "render"
	KindExport Kind = "export"
)

// Event is one sound that went through a device or was exported
type Event struct {
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Kind      Kind          `json:"kind"`
	Path      string        `json:"path"`    // file path, or a description for generated tones
	Backend   string        `json:"backend"` // backend name, or "" for export
	Format    string        `json:"format"`  // source format as Format.String()
	Frames    int64         `json:"frames"`
	Duration  time.Duration `json:"duration"`
	Completed bool          `json:"completed"` // false when interrupted or the device failed
}

// SoundUsage aggregates the events of one path
type SoundUsage struct {
	Path          string        `json:"path"`
	PlayCount     int           `json:"play_count"`
	TotalDuration time.Duration `json:"total_duration"`
	LastPlayed    time.Time     `json:"last_played"`
}

// Summary aggregates every event matching a filter
type Summary struct {
	TotalEvents   int            `json:"total_events"`
	UniquePaths   int            `json:"unique_paths"`
	Completed     int            `json:"completed"`
	TotalDuration time.Duration  `json:"total_duration"`
	Backends      map[string]int `json:"backends"`
}
