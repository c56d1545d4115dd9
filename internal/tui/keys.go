package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the viewer
type KeyMap struct {
	Keep    key.Binding
	Discard key.Binding
	Maybe   key.Binding
	Undo    key.Binding
	Theme   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Keep: key.NewBinding(
			key.WithKeys("right", "k", " "),
			key.WithHelp("→/k/space", "keep"),
		),
		Discard: key.NewBinding(
			key.WithKeys("down", "n"),
			key.WithHelp("↓/n", "discard"),
		),
		Maybe: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "maybe"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z", "u"),
			key.WithHelp("C-z/u", "undo"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Keep, k.Discard, k.Maybe, k.Undo, k.Quit}
}

// FullHelp returns every binding.
func (k KeyMap) FullHelp() []key.Binding {
	return []key.Binding{k.Keep, k.Discard, k.Maybe, k.Undo, k.Theme, k.Help, k.Quit}
}
