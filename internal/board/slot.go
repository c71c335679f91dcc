package board

import (
	"errors"
	"fmt"
	"log"

	"github.com/famish99/casterboard/internal/backends"
)

// ErrLoadFailure is returned when a slot's clip is missing or unreadable.
// The failure is local to the slot.
var ErrLoadFailure = errors.New("clip load failure")

// PlayerSlot binds one ClipPlayer to one SlotState and owns the hotkey state machine
type PlayerSlot struct {
	label  Label
	state  SlotState
	player backends.ClipPlayer
	notify func(Event)

	reported backends.State // status carried by the last transition event
}

func newPlayerSlot(label Label, player backends.ClipPlayer, notify func(Event)) *PlayerSlot {
	return &PlayerSlot{
		label:  label,
		state:  SlotState{Volume: DefaultVolume, label: label},
		player: player,
		notify: notify,
	}
}

// Label returns the slot's immutable label
func (s *PlayerSlot) Label() Label {
	return s.label
}

// State returns a copy of the slot configuration
func (s *PlayerSlot) State() SlotState {
	return s.state
}

// SetState replaces the configuration wholesale without touching the player.
// Call ReloadFromState afterwards to apply it.
func (s *PlayerSlot) SetState(st SlotState) {
	st.label = s.label
	st.Volume = ClampVolume(st.Volume)
	s.state = st
}

// Configure applies a new configuration supplied by the user or a remote.
// Playback status is unchanged; the new clip is used from the next start.
func (s *PlayerSlot) Configure(st SlotState) error {
	s.SetState(st)
	err := s.ReloadFromState()
	s.emit(EventReconfigured)
	return err
}

// CurrentStatus returns the player's playback state
func (s *PlayerSlot) CurrentStatus() backends.State {
	return s.player.State()
}

// ClipFinished reports a clip that ran out by itself. It must run on the event
// thread; it emits the Stopped transition unless one was already reported.
func (s *PlayerSlot) ClipFinished() {
	if s.CurrentStatus() != backends.StateStopped || s.reported == backends.StateStopped {
		return
	}
	s.emit(EventTransition)
}

// HandleHotKey runs one key-release transition:
// Playing stops, Paused resumes, Stopped plays from the start.
func (s *PlayerSlot) HandleHotKey() error {
	switch s.CurrentStatus() {
	case backends.StatePlaying:
		s.StopSound()
		return nil
	case backends.StatePaused:
		return s.PlaySound()
	default:
		return s.PlaySound()
	}
}

// PlaySound starts the clip, or resumes it when paused
func (s *PlayerSlot) PlaySound() error {
	if s.CurrentStatus() == backends.StatePlaying {
		return nil
	}

	if !s.state.Configured() {
		err := fmt.Errorf("%w: slot %s has no clip assigned", ErrLoadFailure, s.label)
		log.Printf("Slot %s: %v", s.label, err)
		return err
	}

	if err := s.player.Play(); err != nil {
		err = fmt.Errorf("%w: slot %s: %v", ErrLoadFailure, s.label, err)
		log.Printf("Slot %s: failed to play %s: %v", s.label, s.state.FilePath, err)
		return err
	}

	s.emit(EventTransition)
	return nil
}

// PauseSound pauses a playing clip; other states are left untouched
func (s *PlayerSlot) PauseSound() {
	if s.CurrentStatus() != backends.StatePlaying {
		return
	}
	s.player.Pause()
	s.emit(EventTransition)
}

// StopSound stops the clip. Stopping a stopped slot is a no-op.
func (s *PlayerSlot) StopSound() {
	if s.CurrentStatus() == backends.StateStopped {
		return
	}
	s.player.Stop()
	s.emit(EventTransition)
}

// SetDucking updates the ducking flag and applies it to the player
func (s *PlayerSlot) SetDucking(enabled bool) {
	s.state.Ducking = enabled
	s.player.SetDucking(enabled)
	s.emit(EventDucking)
}

// ReloadFromState pushes the configuration into the player.
// It never starts playback and emits no transition.
func (s *PlayerSlot) ReloadFromState() error {
	err := s.player.Load(backends.Source{
		Path:   s.state.FilePath,
		Volume: s.state.Volume,
		Loop:   s.state.Loop,
	})
	s.player.SetDucking(s.state.Ducking)

	if err != nil {
		log.Printf("Slot %s: failed to load %s: %v", s.label, s.state.FilePath, err)
		return fmt.Errorf("%w: slot %s: %v", ErrLoadFailure, s.label, err)
	}
	return nil
}

func (s *PlayerSlot) emit(kind EventKind) {
	status := s.CurrentStatus()
	if kind == EventTransition {
		s.reported = status
	}
	if s.notify == nil {
		return
	}
	s.notify(Event{
		Label:  s.label,
		Kind:   kind,
		Status: status,
		State:  s.state,
	})
}

func (s *PlayerSlot) close() {
	s.player.Close()
}
