package deck

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/casterboard/internal/backends"
	"github.com/famish99/casterboard/internal/backends/nullclip"
	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/store"
)

type recorder struct {
	mu   sync.Mutex
	msgs []*osc.Message
}

func (r *recorder) Send(packet osc.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, packet.(*osc.Message))
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func newDeck(t *testing.T) (*Deck, *recorder) {
	t.Helper()
	rec := &recorder{}
	d := New(nullclip.NewFactory(), rec, store.FormatTagged)
	t.Cleanup(d.Close)
	return d, rec
}

func clip(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
	return path
}

func activeCount(d *Deck) int {
	n := 0
	for _, e := range d.Entries() {
		if e.Board.IsActive() {
			n++
		}
	}
	return n
}

func TestFirstBoardBecomesActive(t *testing.T) {
	d, rec := newDeck(t)

	_, err := d.Active()
	assert.ErrorIs(t, err, ErrNoBoard)

	first, err := d.NewBoard("One")
	require.NoError(t, err)
	_, err = d.NewBoard("Two")
	require.NoError(t, err)

	active, err := d.Active()
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, 1, activeCount(d))

	// activation synced the first board only
	require.Len(t, rec.msgs, 9)
	assert.Equal(t, []interface{}{"One"}, rec.msgs[0].Arguments)
}

func TestActivateExactlyOne(t *testing.T) {
	d, rec := newDeck(t)
	for _, name := range []string{"A", "B", "C"} {
		_, err := d.NewBoard(name)
		require.NoError(t, err)
	}

	rec.reset()
	require.NoError(t, d.Activate(2))
	assert.Equal(t, 2, d.ActiveIndex())
	assert.Equal(t, 1, activeCount(d))
	assert.True(t, d.Entries()[2].Board.IsActive())
	require.Len(t, rec.msgs, 9)
	assert.Equal(t, []interface{}{"C"}, rec.msgs[0].Arguments)

	require.NoError(t, d.ActivateNext())
	assert.Equal(t, 0, d.ActiveIndex())
	assert.Equal(t, 1, activeCount(d))

	assert.ErrorIs(t, d.Activate(5), ErrNoBoard)
}

func TestOnlyActiveBoardMirrorsEvents(t *testing.T) {
	d, rec := newDeck(t)
	a, err := d.NewBoard("A")
	require.NoError(t, err)
	b, err := d.NewBoard("B")
	require.NoError(t, err)

	path := clip(t, "horn.wav")
	require.NoError(t, a.Board.Slot(board.LabelQ).Configure(board.SlotState{FilePath: path, Volume: 50}))
	require.NoError(t, b.Board.Slot(board.LabelQ).Configure(board.SlotState{FilePath: path, Volume: 50}))

	rec.reset()
	require.NoError(t, b.Board.RouteKeyRelease(board.KeyCode('Q')))
	assert.Empty(t, rec.msgs)
	assert.Equal(t, backends.StatePlaying, b.Board.Slot(board.LabelQ).CurrentStatus())

	require.NoError(t, a.Board.RouteKeyRelease(board.KeyCode('Q')))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "/board/state/Q", rec.msgs[0].Address)
}

func TestSubscribeAndGlobalKeysReachNewBoards(t *testing.T) {
	d, _ := newDeck(t)

	var events []board.Event
	d.Subscribe(func(ev board.Event) { events = append(events, ev) })
	var keys []board.KeyCode
	d.SetGlobalKeyHandler(func(k board.KeyCode) { keys = append(keys, k) })

	e, err := d.NewBoard("Late")
	require.NoError(t, err)
	require.NoError(t, e.Board.Slot(board.LabelW).Configure(board.SlotState{FilePath: clip(t, "w.wav")}))
	require.NoError(t, e.Board.RouteKeyRelease(board.KeyCode(' ')))

	assert.Len(t, events, 1)
	assert.Equal(t, []board.KeyCode{' '}, keys)
}

func TestSaveAndOpen(t *testing.T) {
	d, _ := newDeck(t)
	e, err := d.NewBoard("Saved")
	require.NoError(t, err)
	path := clip(t, "drums.ogg")
	require.NoError(t, e.Board.Slot(board.LabelD).Configure(board.SlotState{FilePath: path, Volume: 33, Loop: true}))

	assert.Error(t, d.Save(0, ""), "no path yet")

	target := filepath.Join(t.TempDir(), "saved")
	require.NoError(t, d.Save(0, target))
	assert.Equal(t, target+".board", e.Path)

	opened, err := d.Open(e.Path)
	require.NoError(t, err)
	assert.Equal(t, "Saved", opened.Board.Name())
	assert.NotEqual(t, e.ID, opened.ID)
	st := opened.Board.Slot(board.LabelD).State()
	assert.Equal(t, path, st.FilePath)
	assert.Equal(t, 33, st.Volume)
	assert.True(t, st.Loop)

	_, err = d.Open(filepath.Join(t.TempDir(), "missing.board"))
	assert.Error(t, err)
	assert.Equal(t, 2, d.Len())
}

func TestOpenWithMissingClipStillOpens(t *testing.T) {
	d, _ := newDeck(t)
	e, err := d.NewBoard("Broken")
	require.NoError(t, err)
	path := clip(t, "gone.wav")
	require.NoError(t, e.Board.Slot(board.LabelA).Configure(board.SlotState{FilePath: path}))
	require.NoError(t, d.Save(0, filepath.Join(t.TempDir(), "broken.board")))
	require.NoError(t, os.Remove(path))

	opened, err := d.Open(e.Path)
	require.NoError(t, err)
	assert.ErrorIs(t, opened.Board.Slot(board.LabelA).PlaySound(), board.ErrLoadFailure)
}

func TestFind(t *testing.T) {
	d, _ := newDeck(t)
	_, err := d.NewBoard("Intro")
	require.NoError(t, err)
	e, err := d.NewBoard("Outro")
	require.NoError(t, err)

	i, err := d.Find("1")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = d.Find("outro")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = d.Find(e.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = d.Find("7")
	assert.ErrorIs(t, err, ErrNoBoard)
	_, err = d.Find("nope")
	assert.ErrorIs(t, err, ErrNoBoard)
}

func TestCloseBoard(t *testing.T) {
	d, _ := newDeck(t)
	for _, name := range []string{"A", "B", "C"} {
		_, err := d.NewBoard(name)
		require.NoError(t, err)
	}
	require.NoError(t, d.Activate(2))

	require.NoError(t, d.CloseBoard(0))
	assert.Equal(t, 1, d.ActiveIndex())
	assert.Equal(t, "C", d.Entries()[d.ActiveIndex()].Board.Name())

	require.NoError(t, d.CloseBoard(1))
	assert.Equal(t, 0, d.ActiveIndex())
	assert.Equal(t, 1, activeCount(d))

	require.NoError(t, d.CloseBoard(0))
	assert.Equal(t, -1, d.ActiveIndex())
	assert.ErrorIs(t, d.ActivateNext(), ErrNoBoard)
}

func TestStopAll(t *testing.T) {
	d, _ := newDeck(t)
	a, err := d.NewBoard("A")
	require.NoError(t, err)
	b, err := d.NewBoard("B")
	require.NoError(t, err)

	for _, e := range []*Entry{a, b} {
		require.NoError(t, e.Board.Slot(board.LabelF).Configure(board.SlotState{FilePath: clip(t, "f.wav")}))
		require.NoError(t, e.Board.Slot(board.LabelF).PlaySound())
	}

	d.StopAll()
	assert.Equal(t, backends.StateStopped, a.Board.Slot(board.LabelF).CurrentStatus())
	assert.Equal(t, backends.StateStopped, b.Board.Slot(board.LabelF).CurrentStatus())
}

func TestClipEndsRoutedByBoardID(t *testing.T) {
	rec := &recorder{}
	var players []*nullclip.Player
	d := New(func() (backends.ClipPlayer, error) {
		p := &nullclip.Player{}
		players = append(players, p)
		return p, nil
	}, rec, store.FormatTagged)
	t.Cleanup(d.Close)

	first, err := d.NewBoard("First")
	require.NoError(t, err)

	type end struct {
		id    uuid.UUID
		label board.Label
	}
	var ends []end
	d.SetFinishedHandler(func(id uuid.UUID, l board.Label) { ends = append(ends, end{id, l}) })

	second, err := d.NewBoard("Second")
	require.NoError(t, err)

	path := clip(t, "horn.wav")
	for _, e := range []*Entry{first, second} {
		require.NoError(t, e.Board.Slot(board.LabelS).Configure(board.SlotState{FilePath: path, Volume: 70}))
		require.NoError(t, e.Board.Slot(board.LabelS).PlaySound())
	}

	// players are created eight per board in label order
	players[board.LabelS].Finish()
	players[board.NumLabels+int(board.LabelS)].Finish()
	require.Equal(t, []end{{first.ID, board.LabelS}, {second.ID, board.LabelS}}, ends)

	rec.reset()
	d.ClipFinished(first.ID, board.LabelS)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "/board/state/S", rec.msgs[0].Address)
	assert.Equal(t, []interface{}{int32(backends.StateStopped)}, rec.msgs[0].Arguments)

	// the inactive board updates its listeners but sends nothing
	d.ClipFinished(second.ID, board.LabelS)
	assert.Len(t, rec.msgs, 1)

	d.ClipFinished(uuid.New(), board.LabelS)
	assert.Len(t, rec.msgs, 1)
}
