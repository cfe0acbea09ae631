package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
)

// KeyMap defines the keybindings of the compass screen
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	PanNorth  key.Binding
	PanSouth  key.Binding
	PanWest   key.Binding
	PanEast   key.Binding
	Recenter  key.Binding
	Select    key.Binding
	SelectPOI key.Binding
	Refresh   key.Binding
	Dismiss   key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var defaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PanNorth: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w/a/s/d", "pan map"),
	),
	PanSouth: key.NewBinding(key.WithKeys("s")),
	PanWest:  key.NewBinding(key.WithKeys("a")),
	PanEast:  key.NewBinding(key.WithKeys("d")),
	Recenter: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "current location"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "show on map"),
	),
	SelectPOI: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "select store"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "refresh"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("enter", "esc", " "),
		key.WithHelp("enter", "확인"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PanNorth, k.Recenter, k.Select, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.SelectPOI},
		{k.PanNorth, k.Recenter, k.Refresh},
		{k.Help, k.Quit},
	}
}

// tableKeyMap leaves letters free for the map bindings
func tableKeyMap() table.KeyMap {
	return table.KeyMap{
		LineUp:       key.NewBinding(key.WithKeys("up", "k")),
		LineDown:     key.NewBinding(key.WithKeys("down", "j")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		GotoTop:      key.NewBinding(key.WithKeys("home")),
		GotoBottom:   key.NewBinding(key.WithKeys("end")),
	}
}
