package board

import (
	"errors"
	"fmt"
	"log"

	"github.com/hypebeast/go-osc/osc"

	"github.com/famish99/casterboard/internal/backends"
	"github.com/famish99/casterboard/internal/remote"
)

// DefaultName is used for boards that have never been named
const DefaultName = "No Name"

// Board owns one PlayerSlot per label for its whole lifetime
type Board struct {
	name   string
	active bool // whether this board currently owns the remote-sync channel

	slots [NumLabels]*PlayerSlot
	keys  KeyBinding

	transport   remote.Transport
	onGlobalKey func(KeyCode)
	onFinished  func(Label)
	listeners   []Listener
}

// New creates a board with one player per label from factory
func New(name string, factory backends.Factory) (*Board, error) {
	if name == "" {
		name = DefaultName
	}
	b := &Board{
		name: name,
		keys: DefaultKeyBinding(),
	}

	for _, l := range Labels() {
		player, err := factory()
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create player for slot %s: %w", l, err)
		}
		b.slots[l] = newPlayerSlot(l, player, b.handleSlotEvent)
		label := l
		player.SetOnFinished(func() {
			if fn := b.onFinished; fn != nil {
				fn(label)
			}
		})
	}
	return b, nil
}

// Name returns the board name
func (b *Board) Name() string {
	return b.name
}

// SetName renames the board
func (b *Board) SetName(name string) {
	b.name = name
}

// IsActive reports whether the board mirrors its state to the remote
func (b *Board) IsActive() bool {
	return b.active
}

// SetActive is called by the coordinator owning the remote channel
func (b *Board) SetActive(active bool) {
	b.active = active
}

// SetTransport sets the outbound remote-control transport (nil disables it)
func (b *Board) SetTransport(t remote.Transport) {
	b.transport = t
}

// SetGlobalKeyHandler receives key codes the board does not bind
func (b *Board) SetGlobalKeyHandler(fn func(KeyCode)) {
	b.onGlobalKey = fn
}

// SetFinishedHandler receives the label of every clip that runs out by itself.
// fn is called on an audio goroutine and must hand the label to the event
// thread, which then calls ClipFinished.
func (b *Board) SetFinishedHandler(fn func(Label)) {
	b.onFinished = fn
}

// ClipFinished mirrors the end of a clip on slot l
func (b *Board) ClipFinished(l Label) {
	if s := b.Slot(l); s != nil {
		s.ClipFinished()
	}
}

// Subscribe registers a listener for every slot event
func (b *Board) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

// Slot returns the slot for a label
func (b *Board) Slot(l Label) *PlayerSlot {
	if !l.Valid() {
		return nil
	}
	return b.slots[l]
}

// Slots returns every slot in label order
func (b *Board) Slots() []*PlayerSlot {
	return b.slots[:]
}

// RouteKeyRelease runs the hotkey transition of the slot bound to code.
// Unbound codes are forwarded to the global key handler.
func (b *Board) RouteKeyRelease(code KeyCode) error {
	label, ok := b.keys[code]
	if !ok {
		if b.onGlobalKey != nil {
			b.onGlobalKey(code)
		}
		return nil
	}
	return b.slots[label].HandleHotKey()
}

// StopAllSounds stops every slot in label order
func (b *Board) StopAllSounds() {
	for _, s := range b.slots {
		s.StopSound()
	}
}

// SetAllDucking applies the ducking flag to every slot in label order
func (b *Board) SetAllDucking(enabled bool) {
	for _, s := range b.slots {
		s.SetDucking(enabled)
	}
}

// ReloadAllFromState reloads every slot, continuing past failures
func (b *Board) ReloadAllFromState() error {
	var errs []error
	for _, s := range b.slots {
		if err := s.ReloadFromState(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SyncAll mirrors the board name and every slot label to the remote.
// Inactive boards send nothing.
func (b *Board) SyncAll() {
	if !b.active || b.transport == nil {
		return
	}
	b.send(remote.TabNameMessage(b.name))
	for _, s := range b.slots {
		b.send(remote.SlotMessage(remote.AttrLabel, s.label.String(), s.state.DisplayName()))
	}
}

// Close releases every player
func (b *Board) Close() {
	for _, s := range b.slots {
		if s != nil {
			s.close()
		}
	}
}

func (b *Board) handleSlotEvent(ev Event) {
	for _, l := range b.listeners {
		l(ev)
	}

	if !b.active || b.transport == nil {
		return
	}
	for _, msg := range eventMessages(ev) {
		b.send(msg)
	}
}

func (b *Board) send(msg *osc.Message) {
	if err := b.transport.Send(msg); err != nil {
		log.Printf("Failed to send OSC message %s: %v", msg.Address, err)
	}
}

// eventMessages encodes the attributes an event changed
func eventMessages(ev Event) []*osc.Message {
	label := ev.Label.String()
	switch ev.Kind {
	case EventTransition:
		return []*osc.Message{
			remote.SlotMessage(remote.AttrState, label, int(ev.Status)),
		}
	case EventDucking:
		return []*osc.Message{
			remote.SlotMessage(remote.AttrDuck, label, remote.BoolInt(ev.State.Ducking)),
		}
	case EventReconfigured:
		return []*osc.Message{
			remote.SlotMessage(remote.AttrLabel, label, ev.State.DisplayName()),
			remote.SlotMessage(remote.AttrVolume, label, float32(ev.State.Volume)/MaxVolume),
			remote.SlotMessage(remote.AttrLoop, label, remote.BoolInt(ev.State.Loop)),
			remote.SlotMessage(remote.AttrDuck, label, remote.BoolInt(ev.State.Ducking)),
		}
	default:
		return nil
	}
}
