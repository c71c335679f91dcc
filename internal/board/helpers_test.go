package board

import (
	"errors"
	"sync"

	"github.com/hypebeast/go-osc/osc"

	"github.com/famish99/casterboard/internal/backends"
)

// fakePlayer records commands and reports state the way a real backend would
type fakePlayer struct {
	src     backends.Source
	loadErr error
	state   backends.State
	ducking bool
	closed  bool

	onFinished func()

	loads int
	plays int
}

var errUnreadable = errors.New("unreadable clip")

func (p *fakePlayer) Load(src backends.Source) error {
	p.loads++
	p.src = src
	if src.Path == "/missing.wav" {
		p.loadErr = errUnreadable
		return p.loadErr
	}
	p.loadErr = nil
	return nil
}

func (p *fakePlayer) Play() error {
	if p.state == backends.StatePlaying {
		return nil
	}
	if p.state == backends.StatePaused {
		p.state = backends.StatePlaying
		return nil
	}
	if p.loadErr != nil {
		return p.loadErr
	}
	if p.src.Path == "" {
		return backends.ErrNoSource
	}
	p.plays++
	p.state = backends.StatePlaying
	return nil
}

func (p *fakePlayer) Pause() {
	if p.state == backends.StatePlaying {
		p.state = backends.StatePaused
	}
}

func (p *fakePlayer) Stop() { p.state = backends.StateStopped }
func (p *fakePlayer) SetDucking(enabled bool) { p.ducking = enabled }
func (p *fakePlayer) State() backends.State { return p.state }
func (p *fakePlayer) Close() { p.closed = true }
func (p *fakePlayer) SetOnFinished(fn func()) { p.onFinished = fn }

// runOut ends the clip the way a backend does when it drains
func (p *fakePlayer) runOut() {
	p.state = backends.StateStopped
	if p.onFinished != nil {
		p.onFinished()
	}
}

// fakeTransport collects sent messages
type fakeTransport struct {
	mu   sync.Mutex
	msgs []*osc.Message
	err  error
}

func (t *fakeTransport) Send(packet osc.Packet) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg, ok := packet.(*osc.Message); ok {
		t.msgs = append(t.msgs, msg)
	}
	return t.err
}

func (t *fakeTransport) addresses() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.msgs))
	for i, m := range t.msgs {
		out[i] = m.Address
	}
	return out
}

// newTestBoard builds a board backed by fake players
func newTestBoard(name string) (*Board, []*fakePlayer) {
	var players []*fakePlayer
	b, err := New(name, func() (backends.ClipPlayer, error) {
		p := &fakePlayer{}
		players = append(players, p)
		return p, nil
	})
	if err != nil {
		panic(err)
	}
	return b, players
}
