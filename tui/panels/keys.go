package panels

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard's key bindings.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Next  key.Binding
	Prev  key.Binding
	Pause key.Binding
	Quit  key.Binding
}

// Keys is the default key map.
var Keys = KeyMap{
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "down")),
	Next:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
	Prev:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous panel")),
	Pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var keys = Keys
