package control

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/casterboard/internal/backends"
	"github.com/famish99/casterboard/internal/backends/nullclip"
	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/deck"
	"github.com/famish99/casterboard/internal/store"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	d := deck.New(nullclip.NewFactory(), nil, store.FormatTagged)
	t.Cleanup(d.Close)
	e := NewEngine(d, NewIdle())
	_, err := d.NewBoard("Main")
	require.NoError(t, err)
	return e
}

func clip(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
	return path
}

func activeSlot(t *testing.T, e *Engine, l board.Label) *board.PlayerSlot {
	t.Helper()
	entry, err := e.Deck().Active()
	require.NoError(t, err)
	return entry.Board.Slot(l)
}

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"", Command{}},
		{"  PLAY q ", Command{Verb: "play", Args: []string{"q"}}},
		{`set Q path "/my clips/air horn.wav"`, Command{Verb: "set", Args: []string{"Q", "path", "/my clips/air horn.wav"}}},
		{`name "say \"hi\""`, Command{Verb: "name", Args: []string{`say "hi"`}}},
		{`name ""`, Command{Verb: "name", Args: []string{""}}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := Parse(tc.line)
			require.NoError(t, err)
			if len(tc.want.Args) == 0 {
				assert.Equal(t, tc.want.Verb, got.Verb)
				assert.Empty(t, got.Args)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := Parse(`name "open`)
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestQuoteRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "with space", `q"uote`, `back\slash`, ""} {
		cmd, err := Parse("name " + Quote(s))
		require.NoError(t, err)
		require.Len(t, cmd.Args, 1)
		assert.Equal(t, s, cmd.Args[0])
	}
	assert.Equal(t, `set Q path "/a b.wav"`, Command{Verb: "set", Args: []string{"Q", "path", "/a b.wav"}}.String())
}

func TestUnknownCommand(t *testing.T) {
	e := newEngine(t)
	_, err := e.ExecuteLine("explode Q")
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, 5, AckCode(err))
	assert.Equal(t, "ACK [5@0] {explode} unknown command: explode\n", FormatResponse("explode", "", err))
}

func TestSlotCommands(t *testing.T) {
	e := newEngine(t)
	path := clip(t, "horn.wav")

	_, err := e.ExecuteLine("set q path " + Quote(path))
	require.NoError(t, err)
	s := activeSlot(t, e, board.LabelQ)
	assert.Equal(t, path, s.State().FilePath)

	_, err = e.ExecuteLine("hotkey Q")
	require.NoError(t, err)
	assert.Equal(t, backends.StatePlaying, s.CurrentStatus())

	_, err = e.ExecuteLine("pause Q")
	require.NoError(t, err)
	assert.Equal(t, backends.StatePaused, s.CurrentStatus())

	_, err = e.ExecuteLine("hotkey Q")
	require.NoError(t, err)
	assert.Equal(t, backends.StatePlaying, s.CurrentStatus())

	_, err = e.ExecuteLine("stop Q")
	require.NoError(t, err)
	assert.Equal(t, backends.StateStopped, s.CurrentStatus())

	_, err = e.ExecuteLine("play W")
	require.ErrorIs(t, err, board.ErrLoadFailure)
	assert.Equal(t, 50, AckCode(err))

	_, err = e.ExecuteLine("play Z")
	require.ErrorIs(t, err, ErrBadArgument)
	_, err = e.ExecuteLine("play")
	require.ErrorIs(t, err, ErrBadArgument)
}

func TestSetFields(t *testing.T) {
	e := newEngine(t)
	s := activeSlot(t, e, board.LabelR)

	for _, line := range []string{"set R volume 35", "set R loop on", "set R duck 1"} {
		_, err := e.ExecuteLine(line)
		require.NoError(t, err, line)
	}
	st := s.State()
	assert.Equal(t, 35, st.Volume)
	assert.True(t, st.Loop)
	assert.True(t, st.Ducking)

	_, err := e.ExecuteLine("set R volume loud")
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = e.ExecuteLine("set R color red")
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = e.ExecuteLine("set R loop maybe")
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = e.ExecuteLine("clear R")
	require.NoError(t, err)
	assert.False(t, s.State().Configured())
	assert.Equal(t, board.DefaultVolume, s.State().Volume)
}

func TestKeyAndGlobalKeys(t *testing.T) {
	e := newEngine(t)
	path := clip(t, "a.wav")
	_, err := e.ExecuteLine("set A path " + Quote(path))
	require.NoError(t, err)
	s := activeSlot(t, e, board.LabelA)

	_, err = e.ExecuteLine("key a")
	require.NoError(t, err)
	assert.Equal(t, backends.StatePlaying, s.CurrentStatus())

	// space is not a slot key; it is forwarded and stops everything
	_, err = e.ExecuteLine("key space")
	require.NoError(t, err)
	assert.Equal(t, backends.StateStopped, s.CurrentStatus())

	require.NoError(t, e.Key(board.KeyCode('X')))
	assert.True(t, e.Ducked())
	assert.True(t, s.State().Ducking)

	_, err = e.ExecuteLine("key 88")
	require.NoError(t, err)
	assert.False(t, e.Ducked())

	_, err = e.ExecuteLine("key ctrl")
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestDuck(t *testing.T) {
	e := newEngine(t)

	_, err := e.ExecuteLine("duck on")
	require.NoError(t, err)
	for _, l := range board.Labels() {
		assert.True(t, activeSlot(t, e, l).State().Ducking)
	}

	_, err = e.ExecuteLine("duck toggle")
	require.NoError(t, err)
	assert.False(t, activeSlot(t, e, board.LabelF).State().Ducking)

	_, err = e.ExecuteLine("duck")
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestStatus(t *testing.T) {
	e := newEngine(t)
	_, err := e.ExecuteLine("name " + Quote("Friday Show"))
	require.NoError(t, err)

	body, err := e.ExecuteLine("status")
	require.NoError(t, err)
	assert.Contains(t, body, "board: Friday Show\n")
	assert.Contains(t, body, "slot: Q\nstate: stopped\nfile: \nvolume: 100\nloop: 0\nduck: 0\n")
	assert.Contains(t, body, "slot: F\n")
	assert.Equal(t, body+"OK\n", FormatResponse("status", body, nil))
}

func TestBoardsCommands(t *testing.T) {
	e := newEngine(t)

	_, err := e.ExecuteLine("new Second")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Deck().ActiveIndex())

	body, err := e.ExecuteLine("boards")
	require.NoError(t, err)
	assert.Contains(t, body, "index: 0\nboard: Main\n")
	assert.Contains(t, body, "board: Second\n")

	_, err = e.ExecuteLine("board main")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Deck().ActiveIndex())

	_, err = e.ExecuteLine("next")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Deck().ActiveIndex())

	_, err = e.ExecuteLine("board nowhere")
	require.ErrorIs(t, err, deck.ErrNoBoard)

	_, err = e.ExecuteLine("closeboard")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Deck().Len())
}

func TestSaveAndLoad(t *testing.T) {
	e := newEngine(t)
	path := clip(t, "s.wav")
	_, err := e.ExecuteLine("set S path " + Quote(path))
	require.NoError(t, err)

	_, err = e.ExecuteLine("save")
	assert.Error(t, err, "board has no file yet")

	file := filepath.Join(t.TempDir(), "show.board")
	_, err = e.ExecuteLine("save " + Quote(file))
	require.NoError(t, err)

	_, err = e.ExecuteLine("load " + Quote(file))
	require.NoError(t, err)
	assert.Equal(t, 2, e.Deck().Len())
	assert.Equal(t, 1, e.Deck().ActiveIndex())
	assert.Equal(t, path, activeSlot(t, e, board.LabelS).State().FilePath)

	bad := filepath.Join(t.TempDir(), "bad.board")
	require.NoError(t, os.WriteFile(bad, []byte("CSBD\x07"), 0644))
	_, err = e.ExecuteLine("load " + Quote(bad))
	require.ErrorIs(t, err, store.ErrBadFormat)
	assert.Equal(t, 53, AckCode(err))
}

func TestNoActiveBoard(t *testing.T) {
	d := deck.New(nullclip.NewFactory(), nil, store.FormatTagged)
	e := NewEngine(d, NewIdle())

	_, err := e.ExecuteLine("stopall")
	require.ErrorIs(t, err, deck.ErrNoBoard)
	_, err = e.ExecuteLine("status")
	require.ErrorIs(t, err, deck.ErrNoBoard)
	_, err = e.ExecuteLine("save")
	require.ErrorIs(t, err, deck.ErrNoBoard)
}

func TestIdleNotifications(t *testing.T) {
	e := newEngine(t)
	all := e.Idle().Register()
	mixer := e.Idle().Register(SubsystemMixer)
	defer e.Idle().Unregister(all)
	defer e.Idle().Unregister(mixer)

	path := clip(t, "d.wav")
	_, err := e.ExecuteLine("set D path " + Quote(path))
	require.NoError(t, err)
	assert.Equal(t, SubsystemBoard, <-all.C())

	_, err = e.ExecuteLine("play D")
	require.NoError(t, err)
	assert.Equal(t, SubsystemPlayer, <-all.C())

	_, err = e.ExecuteLine("new Other")
	require.NoError(t, err)
	assert.Equal(t, SubsystemDeck, <-all.C())

	assert.Empty(t, mixer.C())
	_, err = e.ExecuteLine("duck on")
	require.NoError(t, err)
	assert.Equal(t, SubsystemMixer, <-mixer.C())
}

func TestIdleFullChannelDoesNotBlock(t *testing.T) {
	idle := NewIdle()
	w := idle.Register()
	for i := 0; i < 50; i++ {
		idle.Notify(SubsystemPlayer)
	}
	assert.Len(t, w.C(), cap(w.notify))

	idle.Unregister(w)
	idle.Notify(SubsystemPlayer)
	assert.Len(t, w.C(), cap(w.notify))
}

func TestQueueRun(t *testing.T) {
	e := newEngine(t)
	q := NewQueue(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, q, e) }()

	body, err := q.SubmitLine(ctx, "boards")
	require.NoError(t, err)
	assert.Contains(t, body, "board: Main")

	_, err = q.SubmitLine(ctx, "bogus")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	q.Post(FromTokens([]string{"DUCK", "on"}))
	require.Eventually(t, func() bool {
		body, err := q.SubmitLine(ctx, "status")
		return err == nil && strings.Contains(body, "ducking: 1\n")
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, err = q.SubmitLine(ctx, "ping")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClipEndReachesIdleThroughQueue(t *testing.T) {
	var players []*nullclip.Player
	d := deck.New(func() (backends.ClipPlayer, error) {
		p := &nullclip.Player{}
		players = append(players, p)
		return p, nil
	}, nil, store.FormatTagged)
	t.Cleanup(d.Close)
	e := NewEngine(d, NewIdle())
	_, err := d.NewBoard("Main")
	require.NoError(t, err)

	q := NewQueue(4)
	e.WatchClipEnds(q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Run(ctx, q, e)

	path := clip(t, "q.wav")
	_, err = q.SubmitLine(ctx, "set Q path "+Quote(path))
	require.NoError(t, err)
	_, err = q.SubmitLine(ctx, "play Q")
	require.NoError(t, err)

	w := e.Idle().Register(SubsystemPlayer)
	defer e.Idle().Unregister(w)

	players[board.LabelQ].Finish()

	select {
	case subsystem := <-w.C():
		assert.Equal(t, SubsystemPlayer, subsystem)
	case <-time.After(time.Second):
		t.Fatal("clip end was not reported")
	}

	body, err := q.SubmitLine(ctx, "status")
	require.NoError(t, err)
	assert.Contains(t, body, "slot: Q\nstate: stopped\n")
}

func TestEndedRejectsBadArguments(t *testing.T) {
	e := newEngine(t)

	_, err := e.ExecuteLine("ended")
	assert.ErrorIs(t, err, ErrBadArgument)
	_, err = e.ExecuteLine("ended not-a-uuid Q")
	assert.ErrorIs(t, err, ErrBadArgument)

	entry, err := e.Deck().Active()
	require.NoError(t, err)
	_, err = e.ExecuteLine("ended " + entry.ID.String() + " Z")
	assert.ErrorIs(t, err, ErrBadArgument)

	// an end report for a stopped slot is a no-op
	_, err = e.ExecuteLine("ended " + entry.ID.String() + " Q")
	assert.NoError(t, err)
}

func TestDuckToggleFollowsActiveBoard(t *testing.T) {
	e := newEngine(t)

	_, err := e.ExecuteLine("duck on")
	require.NoError(t, err)
	assert.True(t, e.Ducked())

	// the new board was never ducked, so toggle ducks it
	_, err = e.ExecuteLine("new Second")
	require.NoError(t, err)
	assert.False(t, e.Ducked())
	_, err = e.ExecuteLine("duck toggle")
	require.NoError(t, err)
	assert.True(t, activeSlot(t, e, board.LabelQ).State().Ducking)
	assert.True(t, e.Ducked())

	_, err = e.ExecuteLine("board Main")
	require.NoError(t, err)
	assert.True(t, e.Ducked())
	_, err = e.ExecuteLine("duck toggle")
	require.NoError(t, err)
	assert.False(t, activeSlot(t, e, board.LabelQ).State().Ducking)

	body, err := e.ExecuteLine("status")
	require.NoError(t, err)
	assert.Contains(t, body, "ducking: 0\n")
}
