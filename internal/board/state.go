package board

import (
	"path/filepath"
	"strings"
)

// Slot volume bounds
const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 100
)

// SlotState is the persisted configuration of one slot.
// The label is fixed when the owning slot is constructed.
type SlotState struct {
	FilePath string // empty means unconfigured
	Volume   int    // MinVolume..MaxVolume
	Loop     bool
	Ducking  bool

	label Label
}

// Label returns the slot this state belongs to
func (s SlotState) Label() Label {
	return s.label
}

// Configured reports whether a clip has been assigned
func (s SlotState) Configured() bool {
	return s.FilePath != ""
}

// DisplayName is the clip's base file name without extension
func (s SlotState) DisplayName() string {
	if s.FilePath == "" {
		return ""
	}
	base := filepath.Base(s.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ClampVolume bounds a volume to MinVolume..MaxVolume
func ClampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}
