// Package nullclip is a silent ClipPlayer for hosts without an audio device.
// It keeps the same state machine as the audible backends, so remote control
// and persistence work unchanged.
package nullclip

import (
	"fmt"
	"os"
	"sync"

	"github.com/famish99/casterboard/internal/backends"
)

// Player tracks playback state without producing sound
type Player struct {
	mu      sync.Mutex
	src     backends.Source
	loadErr error
	state   backends.State
	ducking bool
	starts  int

	onFinished func()
}

// NewFactory returns a backends.Factory producing silent players
func NewFactory() backends.Factory {
	return func() (backends.ClipPlayer, error) {
		return &Player{}, nil
	}
}

// Load checks that the clip exists
func (p *Player) Load(src backends.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.src = src
	p.loadErr = nil
	if src.Path == "" {
		return nil
	}
	if _, err := os.Stat(src.Path); err != nil {
		p.loadErr = fmt.Errorf("failed to open clip: %w", err)
	}
	return p.loadErr
}

// Play starts or resumes the clip
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case backends.StatePlaying:
		return nil
	case backends.StatePaused:
		p.state = backends.StatePlaying
		return nil
	}
	if p.loadErr != nil {
		return p.loadErr
	}
	if p.src.Path == "" {
		return backends.ErrNoSource
	}
	p.starts++
	p.state = backends.StatePlaying
	return nil
}

// Pause pauses a playing clip
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == backends.StatePlaying {
		p.state = backends.StatePaused
	}
}

// Stop stops the clip
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = backends.StateStopped
}

// SetDucking records the ducking flag
func (p *Player) SetDucking(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ducking = enabled
}

// SetOnFinished registers the callback Finish runs
func (p *Player) SetOnFinished(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinished = fn
}

// Finish ends a playing or paused clip as if it had run out
func (p *Player) Finish() {
	p.mu.Lock()
	if p.state == backends.StateStopped {
		p.mu.Unlock()
		return
	}
	p.state = backends.StateStopped
	fn := p.onFinished
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// State returns the current playback state
func (p *Player) State() backends.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close stops the clip
func (p *Player) Close() {
	p.Stop()
}

// Source returns the last loaded source
func (p *Player) Source() backends.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

// Ducking reports the ducking flag
func (p *Player) Ducking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ducking
}

// Starts counts plays from the beginning
func (p *Player) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}
