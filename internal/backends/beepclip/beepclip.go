package beepclip

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"github.com/famish99/casterboard/internal/backends"
)

// resampleQuality is passed to beep.Resample when a clip's rate differs from the mixer
const resampleQuality = 4

// Init opens the shared speaker mixer. All players created by this package
// play through it, so it must be called once before the first Play.
func Init(sampleRate int, bufferSize time.Duration) error {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(bufferSize)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	log.Printf("Speaker initialized at %d Hz (buffer %v)", sampleRate, bufferSize)
	return nil
}

// Player implements the backends.ClipPlayer interface on top of the beep speaker mixer.
// Clips are decoded fully into memory on Load.
type Player struct {
	mu        sync.Mutex
	rate      beep.SampleRate
	duckLevel float64 // base-2 gain offset applied while ducking

	src     backends.Source
	buffer  *beep.Buffer
	loadErr error

	state   backends.State
	ducking bool
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	gen     uint64 // bumped on every start/stop so stale end callbacks are ignored

	onFinished func()
}

// New creates a player that resamples clips to sampleRate.
// duckLevel is a base-2 exponent, e.g. -2 plays at a quarter amplitude while ducked.
func New(sampleRate int, duckLevel float64) *Player {
	return &Player{
		rate:      beep.SampleRate(sampleRate),
		duckLevel: duckLevel,
		state:     backends.StateStopped,
	}
}

// NewFactory returns a backends.Factory producing beep players
func NewFactory(sampleRate int, duckLevel float64) backends.Factory {
	return func() (backends.ClipPlayer, error) {
		return New(sampleRate, duckLevel), nil
	}
}

// Load decodes the clip at src.Path into memory. An empty path unloads the player.
// A clip that is already sounding keeps playing; volume applies immediately,
// a new path and the loop flag take effect on the next start.
func (p *Player) Load(src backends.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sameClip := src.Path == p.src.Path && p.buffer != nil
	p.src = src

	if p.volume != nil {
		speaker.Lock()
		p.applyGain()
		speaker.Unlock()
	}

	if src.Path == "" {
		p.buffer = nil
		p.loadErr = nil
		return nil
	}
	if sameClip {
		return nil
	}

	buf, err := p.decode(src.Path)
	if err != nil {
		p.buffer = nil
		p.loadErr = err
		return err
	}

	p.buffer = buf
	p.loadErr = nil
	log.Printf("Loaded clip %s (%v)", src.Path, p.rate.D(buf.Len()).Round(time.Millisecond))
	return nil
}

func (p *Player) decode(path string) (*beep.Buffer, error) {
	streamer, format, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(resampleQuality, format.SampleRate, p.rate, streamer)
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: p.rate, NumChannels: 2, Precision: 2})
	buf.Append(s)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return buf, nil
}

// decodeFile picks a beep decoder by file extension
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".mp3", ".flac", ".ogg":
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open clip: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return streamer, format, nil
}

// Play starts the clip from the beginning, or resumes it when paused
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case backends.StatePlaying:
		return nil
	case backends.StatePaused:
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		p.state = backends.StatePlaying
		return nil
	}

	if p.loadErr != nil {
		return p.loadErr
	}
	if p.buffer == nil {
		return backends.ErrNoSource
	}

	var s beep.Streamer = p.buffer.Streamer(0, p.buffer.Len())
	if p.src.Loop {
		s = beep.Loop(-1, p.buffer.Streamer(0, p.buffer.Len()))
	}

	p.volume = &effects.Volume{Streamer: s, Base: 2}
	p.applyGain()
	p.ctrl = &beep.Ctrl{Streamer: p.volume}

	p.gen++
	gen := p.gen
	// The callback runs inside the speaker lock; hand off to avoid lock inversion with p.mu.
	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		go p.finished(gen)
	})))

	p.state = backends.StatePlaying
	return nil
}

// Pause pauses a playing clip; other states are left untouched
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != backends.StatePlaying {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = backends.StatePaused
}

// Stop halts the clip and rewinds it
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	p.gen++
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Streamer = nil
		speaker.Unlock()
	}
	p.ctrl = nil
	p.volume = nil
	p.state = backends.StateStopped
}

// SetDucking attenuates the clip by the configured duck level
func (p *Player) SetDucking(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ducking = enabled
	if p.volume != nil {
		speaker.Lock()
		p.applyGain()
		speaker.Unlock()
	}
}

// SetOnFinished registers the end-of-clip callback
func (p *Player) SetOnFinished(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinished = fn
}

// applyGain must be called with the speaker locked if the volume effect is live
func (p *Player) applyGain() {
	p.volume.Volume, p.volume.Silent = gain(p.src.Volume, p.ducking, p.duckLevel)
}

// State returns the current playback state
func (p *Player) State() backends.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close stops playback and releases the decoded clip
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.buffer = nil
}

// finished marks a clip that ran to its end as stopped and reports it
func (p *Player) finished(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.state == backends.StateStopped {
		p.mu.Unlock()
		return
	}
	p.ctrl = nil
	p.volume = nil
	p.state = backends.StateStopped
	fn := p.onFinished
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// gain converts a 0..100 slot volume to a base-2 effects.Volume exponent
func gain(volume int, ducking bool, duckLevel float64) (exponent float64, silent bool) {
	if volume <= 0 {
		return 0, true
	}
	if volume > 100 {
		volume = 100
	}
	exponent = math.Log2(float64(volume) / 100)
	if ducking {
		exponent += duckLevel
	}
	return exponent, false
}
