// Package deck coordinates the open boards. Exactly one board at a time is
// active and owns the remote-sync channel.
package deck

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/famish99/casterboard/internal/backends"
	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/remote"
	"github.com/famish99/casterboard/internal/store"
)

// ErrNoBoard is returned when a lookup matches no open board
var ErrNoBoard = errors.New("no such board")

// Entry is one open board
type Entry struct {
	ID    uuid.UUID
	Board *board.Board
	Path  string // board file; empty until first saved
}

// Deck owns every open board. It is not safe for concurrent use;
// all calls happen on the event thread.
type Deck struct {
	factory   backends.Factory
	transport remote.Transport
	format    store.Format

	entries []*Entry
	active  int

	listeners   []board.Listener
	onGlobalKey func(board.KeyCode)
	onFinished  func(uuid.UUID, board.Label)
}

// New creates an empty deck. transport may be nil to disable remote sync.
func New(factory backends.Factory, transport remote.Transport, format store.Format) *Deck {
	return &Deck{
		factory:   factory,
		transport: transport,
		format:    format,
		active:    -1,
	}
}

// Subscribe registers a listener on every current and future board
func (d *Deck) Subscribe(l board.Listener) {
	d.listeners = append(d.listeners, l)
	for _, e := range d.entries {
		e.Board.Subscribe(l)
	}
}

// SetGlobalKeyHandler receives key codes no board binds
func (d *Deck) SetGlobalKeyHandler(fn func(board.KeyCode)) {
	d.onGlobalKey = fn
	for _, e := range d.entries {
		e.Board.SetGlobalKeyHandler(fn)
	}
}

// SetFinishedHandler receives clip ends from every current and future board.
// fn is called on an audio goroutine; pass the ids back through ClipFinished
// on the event thread.
func (d *Deck) SetFinishedHandler(fn func(uuid.UUID, board.Label)) {
	d.onFinished = fn
	for _, e := range d.entries {
		d.watchFinished(e)
	}
}

func (d *Deck) watchFinished(e *Entry) {
	fn, id := d.onFinished, e.ID
	if fn == nil {
		e.Board.SetFinishedHandler(nil)
		return
	}
	e.Board.SetFinishedHandler(func(l board.Label) { fn(id, l) })
}

// ClipFinished mirrors a clip end on the board with the given id.
// Boards closed in the meantime are ignored.
func (d *Deck) ClipFinished(id uuid.UUID, l board.Label) {
	for _, e := range d.entries {
		if e.ID == id {
			e.Board.ClipFinished(l)
			return
		}
	}
}

// NewBoard opens an empty board and returns its entry
func (d *Deck) NewBoard(name string) (*Entry, error) {
	b, err := board.New(name, d.factory)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	return d.add(b, ""), nil
}

// Open loads a board file into a new board. Clips that fail to load are
// logged and leave their slot unplayable; the board still opens.
func (d *Deck) Open(path string) (*Entry, error) {
	b, err := board.New("", d.factory)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	if err := store.LoadFile(path, b); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.ReloadAllFromState(); err != nil {
		log.Printf("Board %q opened with unplayable clips: %v", b.Name(), err)
	}
	return d.add(b, path), nil
}

func (d *Deck) add(b *board.Board, path string) *Entry {
	b.SetTransport(d.transport)
	b.SetGlobalKeyHandler(d.onGlobalKey)
	for _, l := range d.listeners {
		b.Subscribe(l)
	}

	e := &Entry{ID: uuid.New(), Board: b, Path: path}
	d.watchFinished(e)
	d.entries = append(d.entries, e)
	log.Printf("Opened board %q (%s)", b.Name(), e.ID)

	if d.active < 0 {
		d.activate(len(d.entries) - 1)
	}
	return e
}

// Entries returns the open boards in tab order
func (d *Deck) Entries() []*Entry {
	return d.entries
}

// Len returns the number of open boards
func (d *Deck) Len() int {
	return len(d.entries)
}

// ActiveIndex returns the active board's position, or -1 when the deck is empty
func (d *Deck) ActiveIndex() int {
	return d.active
}

// Active returns the active board
func (d *Deck) Active() (*Entry, error) {
	if d.active < 0 {
		return nil, ErrNoBoard
	}
	return d.entries[d.active], nil
}

// Find looks a board up by index, id, or case-insensitive name
func (d *Deck) Find(ref string) (int, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 || idx >= len(d.entries) {
			return -1, fmt.Errorf("%w: index %d", ErrNoBoard, idx)
		}
		return idx, nil
	}
	if id, err := uuid.Parse(ref); err == nil {
		for i, e := range d.entries {
			if e.ID == id {
				return i, nil
			}
		}
	}
	for i, e := range d.entries {
		if strings.EqualFold(e.Board.Name(), ref) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoBoard, ref)
}

// Activate hands the remote channel to board i and syncs it
func (d *Deck) Activate(i int) error {
	if i < 0 || i >= len(d.entries) {
		return fmt.Errorf("%w: index %d", ErrNoBoard, i)
	}
	d.activate(i)
	return nil
}

func (d *Deck) activate(i int) {
	for j, e := range d.entries {
		e.Board.SetActive(j == i)
	}
	d.active = i
	d.entries[i].Board.SyncAll()
}

// ActivateNext cycles to the next board
func (d *Deck) ActivateNext() error {
	if len(d.entries) == 0 {
		return ErrNoBoard
	}
	return d.Activate((d.active + 1) % len(d.entries))
}

// Save writes board i to its file, or to path when given
func (d *Deck) Save(i int, path string) error {
	if i < 0 || i >= len(d.entries) {
		return fmt.Errorf("%w: index %d", ErrNoBoard, i)
	}
	e := d.entries[i]
	if path == "" {
		path = e.Path
	}
	if path == "" {
		return fmt.Errorf("board %q has no file path", e.Board.Name())
	}
	if filepath.Ext(path) == "" {
		path += ".board"
	}

	if err := store.SaveFile(path, e.Board, d.format); err != nil {
		return err
	}
	e.Path = path
	return nil
}

// CloseBoard stops and removes board i. The next board becomes active.
func (d *Deck) CloseBoard(i int) error {
	if i < 0 || i >= len(d.entries) {
		return fmt.Errorf("%w: index %d", ErrNoBoard, i)
	}
	e := d.entries[i]
	e.Board.StopAllSounds()
	e.Board.Close()
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	log.Printf("Closed board %q", e.Board.Name())

	switch {
	case len(d.entries) == 0:
		d.active = -1
	case i < d.active:
		d.active--
	case i == d.active:
		d.activate(min(i, len(d.entries)-1))
	}
	return nil
}

// StopAll stops every slot on every board
func (d *Deck) StopAll() {
	for _, e := range d.entries {
		e.Board.StopAllSounds()
	}
}

// Close releases every board
func (d *Deck) Close() {
	for _, e := range d.entries {
		e.Board.StopAllSounds()
		e.Board.Close()
	}
	d.entries = nil
	d.active = -1
}
