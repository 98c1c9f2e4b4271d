package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	left    key.Binding
	right   key.Binding
	enter   key.Binding
	back    key.Binding
	nextTab key.Binding
	prevTab key.Binding
	add     key.Binding
	addDir  key.Binding
	remove  key.Binding
	dropDir key.Binding
	clear   key.Binding
	submit  key.Binding
	open    key.Binding
	jump    key.Binding
	export  key.Binding
	format  key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		nextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
		prevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous page")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add path")),
		addDir:  key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "add folder tree")),
		remove:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove file")),
		dropDir: key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "remove folder")),
		clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		submit:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "upload")),
		open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open image")),
		jump:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "jump")),
		export:  key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "export")),
		format:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "format")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextTab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right, k.enter, k.back},
		{k.add, k.addDir, k.remove, k.dropDir, k.clear, k.submit},
		{k.open, k.jump, k.export, k.format, k.refresh},
		{k.nextTab, k.prevTab, k.quit},
	}
}
