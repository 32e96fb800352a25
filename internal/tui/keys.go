package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Edit    key.Binding
	Refresh key.Binding
	SignOut key.Binding
	Quit    key.Binding

	Commit key.Binding
	Cancel key.Binding

	PrevDay   key.Binding
	NextDay   key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	PrevYear  key.Binding
	NextYear  key.Binding
	Earlier   key.Binding
	Later     key.Binding
	Today     key.Binding

	Inc     key.Binding
	Dec     key.Binding
	IncTen  key.Binding
	DecTen  key.Binding
	Flip    key.Binding
	TurnOn  key.Binding
	TurnOff key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Edit:    key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		SignOut: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign out")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		Commit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),

		PrevDay:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "day")),
		NextDay:   key.NewBinding(key.WithKeys("right", "l")),
		PrevMonth: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↑/↓", "month")),
		NextMonth: key.NewBinding(key.WithKeys("up", "k")),
		PrevYear:  key.NewBinding(key.WithKeys("pgdown", "["), key.WithHelp("[/]", "year")),
		NextYear:  key.NewBinding(key.WithKeys("pgup", "]")),
		Earlier:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↑/↓", "15 min")),
		Later:     key.NewBinding(key.WithKeys("up", "k")),
		Today:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "now")),

		Inc:     key.NewBinding(key.WithKeys("up", "k", "+", "="), key.WithHelp("+/-", "step")),
		Dec:     key.NewBinding(key.WithKeys("down", "j", "-")),
		IncTen:  key.NewBinding(key.WithKeys("right", "l", "pgup"), key.WithHelp("←/→", "±10")),
		DecTen:  key.NewBinding(key.WithKeys("left", "h", "pgdown")),
		Flip:    key.NewBinding(key.WithKeys(" ", "space", "tab", "left", "right"), key.WithHelp("space", "toggle")),
		TurnOn:  key.NewBinding(key.WithKeys("y")),
		TurnOff: key.NewBinding(key.WithKeys("n")),
	}
}
