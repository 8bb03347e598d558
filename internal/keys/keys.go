// Package keys defines the wizard's keyboard bindings.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings for the report wizard.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Next      key.Binding
	Back      key.Binding
	Pick      key.Binding
	BodyDone  key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Next: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "next"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Pick: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "pick suggestion"),
		),
		BodyDone: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "done"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "enter"),
			key.WithHelp("q", "close"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Back, k.ForceQuit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Pick},
		{k.Next, k.Back, k.BodyDone},
		{k.Quit, k.ForceQuit},
	}
}
