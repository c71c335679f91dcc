package backends

import "errors"

// State represents the playback state of a single clip
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

// String returns the lower-case name used in logs and control responses
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// ErrNoSource is returned by Play when no clip has been loaded
var ErrNoSource = errors.New("no audio source loaded")

// Source describes the clip and options a ClipPlayer should use
type Source struct {
	Path   string
	Volume int // 0..100
	Loop   bool
}

// ClipPlayer defines the interface that audio backends must implement.
// Implementations manage their own decode/output concurrency.
type ClipPlayer interface {
	// Load replaces the audio source and options. It does not start playback.
	Load(src Source) error

	// Playback control
	Play() error // Start from the beginning, or resume when paused
	Pause()
	Stop()

	// SetDucking attenuates output while enabled
	SetDucking(enabled bool)

	// SetOnFinished registers fn to be called when a non-looping clip runs
	// out by itself. fn runs on an audio goroutine with no player lock held.
	SetOnFinished(fn func())

	// State returns the state after the last commanded operation,
	// or Stopped once a non-looping clip has run out.
	State() State

	Close()
}

// Factory creates a new ClipPlayer instance
type Factory func() (ClipPlayer, error)
