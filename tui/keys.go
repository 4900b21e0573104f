package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/dolly"
)

// KeyMap binds terminal keys to slider keys.
type KeyMap struct {
	Increase key.Binding
	Decrease key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Quit     key.Binding
}

// DefaultKeyMap uses the arrow keys plus vim-style letters.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Increase: key.NewBinding(key.WithKeys("right", "up", "l", "k"), key.WithHelp("→/↑", "increase")),
		Decrease: key.NewBinding(key.WithKeys("left", "down", "h", "j"), key.WithHelp("←/↓", "decrease")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "page down")),
		Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("home", "minimum")),
		End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("end", "maximum")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Increase, k.Decrease, k.PageUp, k.PageDown, k.Home, k.End, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// resolve maps a key message to the slider key of the binding it matched.
// Letters map to the horizontal arrows; up and down keep their own identity
// when bound in their natural direction.
func (k KeyMap) resolve(msg tea.KeyMsg) (dolly.Key, bool) {
	var bound, vertical dolly.Key
	switch {
	case key.Matches(msg, k.Increase):
		bound, vertical = dolly.KeyArrowRight, dolly.KeyArrowUp
	case key.Matches(msg, k.Decrease):
		bound, vertical = dolly.KeyArrowLeft, dolly.KeyArrowDown
	case key.Matches(msg, k.PageUp):
		bound = dolly.KeyPageUp
	case key.Matches(msg, k.PageDown):
		bound = dolly.KeyPageDown
	case key.Matches(msg, k.Home):
		bound = dolly.KeyHome
	case key.Matches(msg, k.End):
		bound = dolly.KeyEnd
	default:
		return "", false
	}

	if vertical != "" && dolly.ParseKey(msg.String()) == vertical {
		return vertical, true
	}
	return bound, true
}
