package otoclip

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/famish99/casterboard/internal/backends"
)

// Engine owns the process-wide oto context. Only one may exist per process.
type Engine struct {
	ctx  *oto.Context
	rate int
}

// NewEngine creates the oto context and waits for the audio device
func NewEngine(sampleRate int) (*Engine, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	log.Printf("Oto context ready at %d Hz", sampleRate)
	return &Engine{ctx: ctx, rate: sampleRate}, nil
}

// Factory returns a backends.Factory producing players on this engine.
// duckVolume is the amplitude multiplier applied while ducking (0..1).
func (e *Engine) Factory(duckVolume float64) backends.Factory {
	return func() (backends.ClipPlayer, error) {
		return &Player{engine: e, duckVolume: duckVolume}, nil
	}
}

// Player implements the backends.ClipPlayer interface with one oto player per start
type Player struct {
	mu         sync.Mutex
	engine     *Engine
	duckVolume float64

	src     backends.Source
	pcm     []byte
	loadErr error

	player  *oto.Player
	state   backends.State
	ducking bool

	onFinished func()
}

// drainPoll is how often a one-shot clip is checked for its end
const drainPoll = 50 * time.Millisecond

// Load decodes the clip to interleaved 16-bit stereo PCM.
// A sounding clip is not interrupted; the new clip is used from the next start.
func (p *Player) Load(src backends.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sameClip := src.Path == p.src.Path && p.pcm != nil
	p.src = src

	if p.player != nil {
		p.player.SetVolume(p.volumeLocked())
	}

	if src.Path == "" {
		p.pcm = nil
		p.loadErr = nil
		return nil
	}
	if sameClip {
		return nil
	}

	pcm, err := decodePCM(src.Path, p.engine.rate)
	if err != nil {
		p.pcm = nil
		p.loadErr = err
		return err
	}

	p.pcm = pcm
	p.loadErr = nil
	log.Printf("Loaded clip %s (%d bytes PCM)", src.Path, len(pcm))
	return nil
}

// Play starts the clip from the beginning, or resumes it when paused
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fn := p.refreshLocked(); fn != nil {
		go fn()
	}
	switch p.state {
	case backends.StatePlaying:
		return nil
	case backends.StatePaused:
		p.player.Play()
		p.state = backends.StatePlaying
		return nil
	}

	if p.loadErr != nil {
		return p.loadErr
	}
	if p.pcm == nil {
		return backends.ErrNoSource
	}

	var r io.Reader = bytes.NewReader(p.pcm)
	if p.src.Loop {
		r = &loopReader{data: p.pcm}
	}

	p.player = p.engine.ctx.NewPlayer(r)
	p.player.SetVolume(p.volumeLocked())
	p.player.Play()
	p.state = backends.StatePlaying
	if !p.src.Loop {
		go p.watch(p.player)
	}
	return nil
}

// watch reports the end of a one-shot clip. It exits once pl is replaced.
func (p *Player) watch(pl *oto.Player) {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.player != pl {
			p.mu.Unlock()
			return
		}
		fn := p.refreshLocked()
		p.mu.Unlock()

		if fn != nil {
			fn()
			return
		}
	}
}

// Pause pauses a playing clip
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fn := p.refreshLocked(); fn != nil {
		go fn()
	}
	if p.state != backends.StatePlaying {
		return
	}
	p.player.Pause()
	p.state = backends.StatePaused
}

// Stop halts and discards the current oto player
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			log.Printf("Error closing oto player: %v", err)
		}
		p.player = nil
	}
	p.state = backends.StateStopped
}

// SetDucking scales output by the duck volume while enabled
func (p *Player) SetDucking(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ducking = enabled
	if p.player != nil {
		p.player.SetVolume(p.volumeLocked())
	}
}

// State returns the current playback state
func (p *Player) State() backends.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn := p.refreshLocked(); fn != nil {
		go fn()
	}
	return p.state
}

// Close stops playback and drops the decoded clip
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.pcm = nil
}

// refreshLocked notices a non-looping clip that has drained. It returns the
// end callback for the caller to run once the lock is released.
func (p *Player) refreshLocked() func() {
	if p.state != backends.StatePlaying || p.player == nil || p.player.IsPlaying() {
		return nil
	}
	p.stopLocked()
	if p.onFinished == nil {
		return func() {}
	}
	return p.onFinished
}

// SetOnFinished registers the end-of-clip callback
func (p *Player) SetOnFinished(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinished = fn
}

func (p *Player) volumeLocked() float64 {
	return outputVolume(p.src.Volume, p.ducking, p.duckVolume)
}

// outputVolume maps a 0..100 slot volume to oto's 0..1 range
func outputVolume(volume int, ducking bool, duckVolume float64) float64 {
	v := float64(volume) / 100
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	if ducking {
		v *= duckVolume
	}
	return v
}

// loopReader replays data forever
type loopReader struct {
	data []byte
	pos  int
}

func (l *loopReader) Read(p []byte) (int, error) {
	if len(l.data) == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) {
		c := copy(p[n:], l.data[l.pos:])
		n += c
		l.pos = (l.pos + c) % len(l.data)
	}
	return n, nil
}
