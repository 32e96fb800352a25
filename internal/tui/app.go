package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/attredit/internal/attribute"
	"github.com/jask/attredit/internal/config"
	"github.com/jask/attredit/internal/workflow"
)

// App is the attribute screen: a list of the signed-in user's attributes and,
// while one is selected, the editor control for its kind.
type App struct {
	ctx    context.Context
	wf     *workflow.Workflow
	logger *slog.Logger
	keys   keyMap

	tz             *time.Location
	dateFormat     string
	dateTimeFormat string

	attrs     []attribute.Attribute
	cursor    int
	draft     *attribute.Draft
	input     textinput.Model
	status    string
	busy      string
	signedOut bool
	width     int
	height    int
}

func New(ctx context.Context, wf *workflow.Workflow, ui config.UIConfig, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dateFormat := ui.DateFormat
	if dateFormat == "" {
		dateFormat = "02 Jan 2006"
	}
	dateTimeFormat := ui.DateTimeFormat
	if dateTimeFormat == "" {
		dateTimeFormat = "02 Jan 2006 15:04"
	}
	return &App{
		ctx:            ctx,
		wf:             wf,
		logger:         logger,
		keys:           defaultKeys(),
		tz:             ui.Location(),
		dateFormat:     dateFormat,
		dateTimeFormat: dateTimeFormat,
		input:          textinput.New(),
	}
}

func (a *App) Init() tea.Cmd {
	a.busy = "loading..."
	return a.loadCmd()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.input.Width = max(10, m.Width-8)
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.busy != "" {
			return a, nil
		}
		if a.draft != nil {
			return a.handleEditorKey(m)
		}
		return a.handleListKey(m)
	case loadedMsg:
		a.busy = ""
		a.sync()
		if m.err == nil {
			a.status = fmt.Sprintf("loaded %d attributes", len(a.attrs))
		}
	case committedMsg:
		a.busy = ""
		a.sync()
		if m.err == nil {
			a.status = "saved " + rowLabel(m.key)
		}
	case signedOutMsg:
		a.busy = ""
		a.sync()
		if m.err == nil {
			a.signedOut = true
			a.cursor = 0
			a.status = "signed out"
		}
	}
	return a, nil
}

func (a *App) handleListKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		return a, tea.Quit
	case a.signedOut:
		return a, nil
	case key.Matches(m, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursor < len(a.attrs)-1 {
			a.cursor++
		}
	case key.Matches(m, a.keys.Refresh):
		a.busy = "loading..."
		return a, a.loadCmd()
	case key.Matches(m, a.keys.SignOut):
		a.busy = "signing out..."
		return a, a.signOutCmd()
	case key.Matches(m, a.keys.Edit):
		if len(a.attrs) == 0 {
			return a, nil
		}
		return a, a.openEditor(a.attrs[a.cursor])
	}
	return a, nil
}

func (a *App) openEditor(attr attribute.Attribute) tea.Cmd {
	if err := a.wf.SelectForEdit(attr); err != nil {
		a.status = "cannot edit " + attr.Key + ": " + err.Error()
		return nil
	}
	a.sync()
	a.logger.Debug("editor opened", "key", attr.Key, "kind", a.draft.Kind)
	if a.draft.Kind != attribute.KindText {
		a.input.Blur()
		return nil
	}
	a.input.Reset()
	a.input.Prompt = ""
	a.input.SetValue(a.draft.Value)
	a.input.CursorEnd()
	return a.input.Focus()
}

func (a *App) handleEditorKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Cancel):
		a.wf.CancelEdit()
		a.input.Blur()
		a.sync()
		a.status = "edit cancelled"
		return a, nil
	case key.Matches(m, a.keys.Commit):
		a.busy = "saving..."
		a.status = ""
		return a, a.commitCmd()
	}

	switch a.draft.Kind {
	case attribute.KindText:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(m)
		if v := a.input.Value(); v != a.draft.Value {
			a.edit(func(d *attribute.Draft) { d.SetText(v) })
		}
		return a, cmd
	case attribute.KindDate, attribute.KindDateTime:
		a.handleDateKey(m)
	case attribute.KindStepper:
		switch {
		case key.Matches(m, a.keys.Inc):
			a.edit(func(d *attribute.Draft) { d.Step(1) })
		case key.Matches(m, a.keys.Dec):
			a.edit(func(d *attribute.Draft) { d.Step(-1) })
		case key.Matches(m, a.keys.IncTen):
			a.edit(func(d *attribute.Draft) { d.Step(10) })
		case key.Matches(m, a.keys.DecTen):
			a.edit(func(d *attribute.Draft) { d.Step(-10) })
		}
	case attribute.KindToggle:
		switch {
		case key.Matches(m, a.keys.Flip):
			a.edit(func(d *attribute.Draft) { d.Flip() })
		case key.Matches(m, a.keys.TurnOn):
			a.edit(func(d *attribute.Draft) { d.SetEnabled(true) })
		case key.Matches(m, a.keys.TurnOff):
			a.edit(func(d *attribute.Draft) { d.SetEnabled(false) })
		}
	}
	return a, nil
}

func (a *App) handleDateKey(m tea.KeyMsg) {
	withTime := a.draft.Kind == attribute.KindDateTime
	switch {
	case key.Matches(m, a.keys.PrevDay):
		a.edit(func(d *attribute.Draft) { d.ShiftDays(-1) })
	case key.Matches(m, a.keys.NextDay):
		a.edit(func(d *attribute.Draft) { d.ShiftDays(1) })
	case withTime && key.Matches(m, a.keys.Later):
		a.edit(func(d *attribute.Draft) { d.ShiftMinutes(15) })
	case withTime && key.Matches(m, a.keys.Earlier):
		a.edit(func(d *attribute.Draft) { d.ShiftMinutes(-15) })
	case key.Matches(m, a.keys.NextMonth):
		a.edit(func(d *attribute.Draft) { d.SetTime(d.Time().AddDate(0, 1, 0)) })
	case key.Matches(m, a.keys.PrevMonth):
		a.edit(func(d *attribute.Draft) { d.SetTime(d.Time().AddDate(0, -1, 0)) })
	case key.Matches(m, a.keys.NextYear):
		a.edit(func(d *attribute.Draft) { d.SetTime(d.Time().AddDate(1, 0, 0)) })
	case key.Matches(m, a.keys.PrevYear):
		a.edit(func(d *attribute.Draft) { d.SetTime(d.Time().AddDate(-1, 0, 0)) })
	case key.Matches(m, a.keys.Today):
		a.edit(func(d *attribute.Draft) { d.Today() })
	}
}

func (a *App) edit(fn func(d *attribute.Draft)) {
	if err := a.wf.EditDraft(fn); err != nil {
		a.status = err.Error()
	}
	a.sync()
}

// sync copies the workflow state the view renders from.
func (a *App) sync() {
	snap := a.wf.Snapshot()
	a.attrs = snap.Attributes
	a.draft = snap.Draft
	if snap.State != workflow.StateEditing {
		a.draft = nil
		a.input.Blur()
	}
	if a.cursor >= len(a.attrs) {
		a.cursor = max(0, len(a.attrs)-1)
	}
}

// commands
func (a *App) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: a.wf.LoadAttributes(a.ctx)}
	}
}

func (a *App) commitCmd() tea.Cmd {
	k := a.draft.Key
	return func() tea.Msg {
		err := a.wf.CommitEdit(a.ctx)
		if err != nil {
			a.logger.Warn("commit", "key", k, "err", err)
		}
		return committedMsg{key: k, err: err}
	}
}

func (a *App) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{err: a.wf.SignOut(a.ctx)}
	}
}

// messages
type loadedMsg struct{ err error }

type committedMsg struct {
	key string
	err error
}

type signedOutMsg struct{ err error }
