package control

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/deck"
	"github.com/famish99/casterboard/internal/remote"
	"github.com/famish99/casterboard/internal/store"
)

// GlobalKeys maps key codes no board binds to commands
var GlobalKeys = map[board.KeyCode]string{
	' ': "stopall",
	'X': "duck toggle",
}

// Engine executes commands against the deck. It must only be used from the
// event thread.
type Engine struct {
	deck *deck.Deck
	idle *Idle
}

// NewEngine wires the engine into the deck's global keys and slot events
func NewEngine(d *deck.Deck, idle *Idle) *Engine {
	e := &Engine{deck: d, idle: idle}
	d.SetGlobalKeyHandler(e.globalKey)
	d.Subscribe(idle.Listener())
	return e
}

// Deck returns the coordinated boards
func (e *Engine) Deck() *deck.Deck {
	return e.deck
}

// Idle returns the change notifier
func (e *Engine) Idle() *Idle {
	return e.idle
}

// Ducked reports whether every slot of the active board is ducked
func (e *Engine) Ducked() bool {
	entry, err := e.deck.Active()
	if err != nil {
		return false
	}
	for _, s := range entry.Board.Slots() {
		if !s.State().Ducking {
			return false
		}
	}
	return true
}

// WatchClipEnds posts an "ended" command to q whenever a clip runs out by
// itself, so the event thread can mirror the Stopped state.
func (e *Engine) WatchClipEnds(q Queue) {
	e.deck.SetFinishedHandler(func(id uuid.UUID, l board.Label) {
		q.Post(Command{Verb: "ended", Args: []string{id.String(), l.String()}})
	})
}

// ExecuteLine parses and executes one control line
func (e *Engine) ExecuteLine(line string) (string, error) {
	cmd, err := Parse(line)
	if err != nil {
		return "", err
	}
	return e.Execute(cmd)
}

// Execute runs a command and returns its response body ("key: value" lines)
func (e *Engine) Execute(cmd Command) (string, error) {
	args := cmd.Args

	switch cmd.Verb {
	case "", "ping":
		return "", nil

	case "hotkey", "play", "pause", "stop":
		return "", e.slotCommand(cmd.Verb, args)

	case "key":
		return "", e.cmdKey(args)

	case "ended":
		return "", e.cmdEnded(args)

	case "stopall":
		return "", e.withActive(func(b *board.Board) error {
			b.StopAllSounds()
			return nil
		})

	case "duck":
		return "", e.cmdDuck(args)

	case "set":
		return "", e.cmdSet(args)

	case "clear":
		return "", e.cmdClear(args)

	case "name":
		return "", e.cmdName(args)

	case "sync":
		return "", e.withActive(func(b *board.Board) error {
			b.SyncAll()
			return nil
		})

	case "status":
		return e.cmdStatus()

	case "boards":
		return e.cmdBoards(), nil

	case "board":
		return "", e.cmdBoard(args)

	case "next":
		return "", e.changed(SubsystemDeck, e.deck.ActivateNext())

	case "new":
		return "", e.cmdNew(args)

	case "load":
		return "", e.cmdLoad(args)

	case "save":
		return "", e.cmdSave(args)

	case "closeboard":
		return "", e.cmdCloseBoard(args)

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Verb)
	}
}

// Key routes a key release to the active board
func (e *Engine) Key(code board.KeyCode) error {
	return e.withActive(func(b *board.Board) error {
		return b.RouteKeyRelease(code)
	})
}

func (e *Engine) globalKey(code board.KeyCode) {
	line, ok := GlobalKeys[code]
	if !ok {
		return
	}
	if _, err := e.ExecuteLine(line); err != nil {
		log.Printf("Global key %q failed: %v", rune(code), err)
	}
}

func (e *Engine) withActive(fn func(*board.Board) error) error {
	entry, err := e.deck.Active()
	if err != nil {
		return err
	}
	return fn(entry.Board)
}

func (e *Engine) changed(subsystem string, err error) error {
	if err == nil {
		e.idle.Notify(subsystem)
	}
	return err
}

func (e *Engine) slot(b *board.Board, args []string) (*board.PlayerSlot, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing slot label", ErrBadArgument)
	}
	l, err := board.ParseLabel(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	return b.Slot(l), nil
}

func (e *Engine) slotCommand(verb string, args []string) error {
	return e.withActive(func(b *board.Board) error {
		s, err := e.slot(b, args)
		if err != nil {
			return err
		}
		switch verb {
		case "hotkey":
			return s.HandleHotKey()
		case "play":
			return s.PlaySound()
		case "pause":
			s.PauseSound()
		case "stop":
			s.StopSound()
		}
		return nil
	})
}

func (e *Engine) cmdKey(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: key takes one character or code", ErrBadArgument)
	}
	arg := args[0]

	var code board.KeyCode
	switch {
	case len([]rune(arg)) == 1:
		code = board.KeyCodeForRune([]rune(arg)[0])
	case arg == "space":
		code = ' '
	default:
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%w: bad key %q", ErrBadArgument, arg)
		}
		code = board.KeyCode(n)
	}
	return e.Key(code)
}

// cmdEnded handles "ended <board id> <label>" posted by WatchClipEnds
func (e *Engine) cmdEnded(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: ended <board id> <label>", ErrBadArgument)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: bad board id %q", ErrBadArgument, args[0])
	}
	l, err := board.ParseLabel(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	e.deck.ClipFinished(id, l)
	return nil
}

func (e *Engine) cmdDuck(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: duck takes on, off, or toggle", ErrBadArgument)
	}

	enabled := !e.Ducked()
	if strings.ToLower(args[0]) != "toggle" {
		v, err := parseFlag(args[0])
		if err != nil {
			return err
		}
		enabled = v
	}

	return e.withActive(func(b *board.Board) error {
		b.SetAllDucking(enabled)
		return nil
	})
}

// cmdSet handles "set <label> <path|volume|loop|duck> <value>"
func (e *Engine) cmdSet(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: set <label> <path|volume|loop|duck> <value>", ErrBadArgument)
	}

	return e.withActive(func(b *board.Board) error {
		s, err := e.slot(b, args)
		if err != nil {
			return err
		}
		st := s.State()

		value := args[2]
		switch strings.ToLower(args[1]) {
		case "path", "file":
			st.FilePath = value
		case "volume":
			v, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: bad volume %q", ErrBadArgument, value)
			}
			st.Volume = v
		case "loop":
			if st.Loop, err = parseFlag(value); err != nil {
				return err
			}
		case "duck":
			if st.Ducking, err = parseFlag(value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown slot field %q", ErrBadArgument, args[1])
		}
		return s.Configure(st)
	})
}

func (e *Engine) cmdClear(args []string) error {
	return e.withActive(func(b *board.Board) error {
		s, err := e.slot(b, args)
		if err != nil {
			return err
		}
		s.StopSound()
		return s.Configure(board.SlotState{Volume: board.DefaultVolume})
	})
}

func (e *Engine) cmdName(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: name takes one argument", ErrBadArgument)
	}
	return e.withActive(func(b *board.Board) error {
		b.SetName(args[0])
		b.SyncAll()
		e.idle.Notify(SubsystemBoard)
		return nil
	})
}

func (e *Engine) cmdStatus() (string, error) {
	entry, err := e.deck.Active()
	if err != nil {
		return "", err
	}
	b := entry.Board

	var sb strings.Builder
	fmt.Fprintf(&sb, "board: %s\n", b.Name())
	fmt.Fprintf(&sb, "id: %s\n", entry.ID)
	fmt.Fprintf(&sb, "boardfile: %s\n", entry.Path)
	fmt.Fprintf(&sb, "ducking: %d\n", remote.BoolInt(e.Ducked()))
	for _, s := range b.Slots() {
		st := s.State()
		fmt.Fprintf(&sb, "slot: %s\n", s.Label())
		fmt.Fprintf(&sb, "state: %s\n", s.CurrentStatus())
		fmt.Fprintf(&sb, "file: %s\n", st.FilePath)
		fmt.Fprintf(&sb, "volume: %d\n", st.Volume)
		fmt.Fprintf(&sb, "loop: %d\n", remote.BoolInt(st.Loop))
		fmt.Fprintf(&sb, "duck: %d\n", remote.BoolInt(st.Ducking))
	}
	return sb.String(), nil
}

func (e *Engine) cmdBoards() string {
	var sb strings.Builder
	for i, entry := range e.deck.Entries() {
		fmt.Fprintf(&sb, "index: %d\n", i)
		fmt.Fprintf(&sb, "board: %s\n", entry.Board.Name())
		fmt.Fprintf(&sb, "id: %s\n", entry.ID)
		fmt.Fprintf(&sb, "active: %d\n", remote.BoolInt(entry.Board.IsActive()))
	}
	return sb.String()
}

func (e *Engine) cmdBoard(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: board takes an index, id, or name", ErrBadArgument)
	}
	i, err := e.deck.Find(args[0])
	if err != nil {
		return err
	}
	return e.changed(SubsystemDeck, e.deck.Activate(i))
}

func (e *Engine) cmdNew(args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	entry, err := e.deck.NewBoard(name)
	if err != nil {
		return err
	}
	return e.changed(SubsystemDeck, e.activate(entry))
}

func (e *Engine) cmdLoad(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: load takes a board file path", ErrBadArgument)
	}
	entry, err := e.deck.Open(args[0])
	if err != nil {
		return err
	}
	return e.changed(SubsystemDeck, e.activate(entry))
}

func (e *Engine) activate(entry *deck.Entry) error {
	for i, candidate := range e.deck.Entries() {
		if candidate == entry {
			return e.deck.Activate(i)
		}
	}
	return deck.ErrNoBoard
}

func (e *Engine) cmdSave(args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	i := e.deck.ActiveIndex()
	if i < 0 {
		return deck.ErrNoBoard
	}
	return e.deck.Save(i, path)
}

func (e *Engine) cmdCloseBoard(args []string) error {
	i := e.deck.ActiveIndex()
	if len(args) > 0 {
		var err error
		if i, err = e.deck.Find(args[0]); err != nil {
			return err
		}
	}
	return e.changed(SubsystemDeck, e.deck.CloseBoard(i))
}

// AckCode classifies an error for the line protocol, following MPD's codes
func AckCode(err error) int {
	switch {
	case errors.Is(err, ErrBadArgument):
		return 2
	case errors.Is(err, ErrUnknownCommand):
		return 5
	case errors.Is(err, deck.ErrNoBoard), errors.Is(err, board.ErrLoadFailure):
		return 50
	case errors.Is(err, store.ErrBadFormat):
		return 53
	default:
		return 52
	}
}

// FormatResponse renders a command result in the line protocol
func FormatResponse(verb, body string, err error) string {
	if err != nil {
		return fmt.Sprintf("ACK [%d@0] {%s} %s\n", AckCode(err), verb, err.Error())
	}
	return body + "OK\n"
}
