// Package tui is the full-screen soundboard. Key presses become hotkey
// releases on the active board; the Update loop is the event thread.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/famish99/casterboard/internal/backends"
	"github.com/famish99/casterboard/internal/board"
	"github.com/famish99/casterboard/internal/control"
)

// refreshInterval picks up clips that ran out on their own
const refreshInterval = 250 * time.Millisecond

// repeatWindow is how soon the same key must arrive again to count as
// terminal auto-repeat of a held key. Typical repeat delays are 250-500ms.
const repeatWindow = 550 * time.Millisecond

// requestMsg carries a queued control request into Update
type requestMsg control.Request

// tickMsg triggers a redraw
type tickMsg time.Time

// Model is the bubbletea model
type Model struct {
	engine *control.Engine
	keys   KeyMap
	help   help.Model
	prompt textinput.Model

	prompting bool
	status    string
	err       error

	now       func() time.Time
	lastCode  board.KeyCode
	lastKeyAt time.Time
}

// New creates the model around an engine
func New(engine *control.Engine) Model {
	ti := textinput.New()
	ti.Prompt = ":"
	ti.Placeholder = "set Q volume 50"
	ti.CharLimit = 4096
	ti.Width = 60

	return Model{
		engine: engine,
		keys:   DefaultKeyMap,
		help:   help.New(),
		prompt: ti,
		now:    time.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the redraw ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case requestMsg:
		m.engine.Serve(control.Request(msg))
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prevCode, prevAt := m.lastCode, m.lastKeyAt
	m.lastKeyAt = time.Time{}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Deck().StopAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.NextBoard):
		m.run("next")
		return m, nil

	case key.Matches(msg, m.keys.Save):
		m.run("save")
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.prompting = true
		m.prompt.SetValue("")
		return m, m.prompt.Focus()
	}

	code, ok := keyCode(msg)
	if !ok {
		return m, nil
	}

	// A held key keeps extending the window until it is let go
	now := m.now()
	m.lastCode, m.lastKeyAt = code, now
	if code == prevCode && !prevAt.IsZero() && now.Sub(prevAt) < repeatWindow {
		return m, nil
	}

	m.err = m.engine.Key(code)
	if m.err == nil {
		m.status = ""
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.prompting = false
		m.prompt.Blur()
		return m, nil
	case tea.KeyEnter:
		m.prompting = false
		m.prompt.Blur()
		m.run(m.prompt.Value())
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// run executes a control line and records the outcome for the status bar
func (m *Model) run(line string) {
	body, err := m.engine.ExecuteLine(line)
	m.err = err
	if err != nil {
		return
	}
	m.status = strings.TrimSpace(strings.ReplaceAll(body, "\n", "  "))
	if m.status == "" {
		m.status = "ok: " + line
	}
}

// keyCode maps a terminal key to a board key code. Terminals report
// presses only, so every press outside an auto-repeat burst is treated
// as a release.
func keyCode(msg tea.KeyMsg) (board.KeyCode, bool) {
	switch msg.Type {
	case tea.KeySpace:
		return board.KeyCode(' '), true
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && !msg.Alt {
			return board.KeyCodeForRune(msg.Runes[0]), true
		}
	}
	return 0, false
}

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	entry, err := m.engine.Deck().Active()
	if err != nil {
		b.WriteString(dimStyle.Render("No board loaded. Press : and type new or load <file>."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderGrid(entry.Board))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.prompting {
		b.WriteString(m.prompt.View())
	} else {
		b.WriteString(m.help.View(m.keys))
	}

	return b.String()
}

func (m Model) renderTabs() string {
	parts := []string{titleStyle.Render("casterboard")}
	d := m.engine.Deck()
	for i, e := range d.Entries() {
		name := fmt.Sprintf("%d %s", i, e.Board.Name())
		if i == d.ActiveIndex() {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	if m.engine.Ducked() {
		parts = append(parts, pausedStyle.Render("DUCKED"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderGrid(b *board.Board) string {
	var rows []string
	var cells []string
	for _, slot := range b.Slots() {
		cells = append(cells, renderCell(slot))
		if len(cells) == board.GridColumns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
			cells = nil
		}
	}
	if len(cells) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCell(slot *board.PlayerSlot) string {
	st := slot.State()
	status := slot.CurrentStatus()

	style := cellStyle
	icon := "■"
	switch status {
	case backends.StatePlaying:
		style = playingCellStyle
		icon = "▶"
	case backends.StatePaused:
		style = pausedCellStyle
		icon = "⏸"
	}

	name := dimStyle.Render("(empty)")
	if st.Configured() {
		name = st.DisplayName()
	}

	var flags []string
	flags = append(flags, fmt.Sprintf("vol %d", st.Volume))
	if st.Loop {
		flags = append(flags, "loop")
	}
	if st.Ducking {
		flags = append(flags, "duck")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render(slot.Label().String())+" "+icon+" "+status.String(),
		name,
		dimStyle.Render(strings.Join(flags, " ")),
	)
	return style.Render(content)
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("error: " + m.err.Error())
	}
	return statusStyle.Render(m.status)
}

// Forward delivers queued requests to the program until ctx is done
func Forward(ctx context.Context, q control.Queue, send func(tea.Msg)) {
	for {
		select {
		case req := <-q:
			send(requestMsg(req))
		case <-ctx.Done():
			return
		}
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
// Logging should already be redirected away from the terminal.
func Run(ctx context.Context, engine *control.Engine, q control.Queue) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(engine), tea.WithAltScreen(), tea.WithContext(ctx))
	go Forward(ctx, q, p.Send)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
