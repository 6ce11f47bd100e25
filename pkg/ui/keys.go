package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Run    key.Binding
	Pause  key.Binding
	Resume key.Binding
	Cancel key.Binding
	Clear  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var defaultKeyMap = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Run:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run transfers")),
	Pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
	Resume: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "resume")),
	Cancel: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
	Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear finished")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Pause, k.Resume, k.Cancel, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Run, k.Pause, k.Resume, k.Cancel},
		{k.Clear, k.Help, k.Quit},
	}
}
