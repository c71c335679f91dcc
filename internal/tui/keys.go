package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the keys the TUI handles itself. Every other key is
// released to the active board as a hotkey.
type KeyMap struct {
	NextBoard key.Binding
	Save      key.Binding
	Command   key.Binding
	Help      key.Binding
	Quit      key.Binding

	// Shown in help only; handled by the board's global keys
	StopAll key.Binding
	Duck    key.Binding
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.StopAll, k.Duck, k.NextBoard, k.Command, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.StopAll, k.Duck},
		{k.NextBoard, k.Save, k.Command},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap is the default key layout
var DefaultKeyMap = KeyMap{
	NextBoard: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next board"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
	Command: key.NewBinding(
		key.WithKeys(":"),
		key.WithHelp(":", "command"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	StopAll: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "stop all"),
	),
	Duck: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "duck"),
	),
}
