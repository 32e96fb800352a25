package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/attredit/internal/attribute"
)

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteString("\n\n")
	if a.signedOut {
		b.WriteString(labelStyle.Render("You are signed out."))
	} else {
		b.WriteString(a.renderList())
	}
	if a.draft != nil {
		b.WriteString("\n\n")
		b.WriteString(a.renderEditor())
	}
	b.WriteString("\n\n")
	b.WriteString(a.renderStatus())
	b.WriteString("\n")
	b.WriteString(a.renderHelp())
	return b.String()
}

func (a *App) renderHeader() string {
	name := a.wf.Username()
	if name == "" {
		return titleStyle.Render("Attributes")
	}
	return titleStyle.Render("Welcome, " + name)
}

func (a *App) renderList() string {
	if len(a.attrs) == 0 {
		if a.busy != "" {
			return labelStyle.Render("loading attributes...")
		}
		return labelStyle.Render("No attributes.")
	}
	width := 0
	for _, attr := range a.attrs {
		width = max(width, ansi.StringWidth(rowLabel(attr.Key)))
	}
	lines := make([]string, 0, len(a.attrs))
	for i, attr := range a.attrs {
		marker := "  "
		style := valueStyle
		if i == a.cursor {
			marker = "▶ "
			style = selectedStyle
		}
		label := rowLabel(attr.Key)
		pad := strings.Repeat(" ", width-ansi.StringWidth(label))
		line := marker + labelStyle.Render(label) + pad + "  " + style.Render(a.displayValue(attr))
		if a.width > 0 {
			line = ansi.Truncate(line, a.width, "…")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderEditor() string {
	d := a.draft
	lines := []string{titleStyle.Render(attribute.Label(d.Key))}
	switch d.Kind {
	case attribute.KindDate:
		lines = append(lines, controlStyle.Render("◀ "+d.Time().UTC().Format(a.dateFormat)+" ▶"))
	case attribute.KindDateTime:
		lines = append(lines, controlStyle.Render("◀ "+d.Time().In(a.tz).Format(a.dateTimeFormat)+" ▶"))
	case attribute.KindStepper:
		lines = append(lines, controlStyle.Render(fmt.Sprintf("- %3d +", d.Number())), labelStyle.Render(fmt.Sprintf("range %d..%d", attribute.StepperMin, attribute.StepperMax)))
	case attribute.KindToggle:
		box := "[ ] off"
		if d.Enabled() {
			box = "[x] on"
		}
		lines = append(lines, controlStyle.Render(box))
	default:
		lines = append(lines, a.input.View())
	}
	if !d.Touched && !d.Decodes() {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("stored value %q could not be read; it is kept unless you change it", d.Value)))
	}
	if s := attribute.SuggestKey(d.Key); s != "" {
		lines = append(lines, hintStyle.Render(fmt.Sprintf("%q is edited as text; did you mean %q?", d.Key, s)))
	}
	if d.Dirty() {
		lines = append(lines, labelStyle.Render("modified"))
	}
	box := editorStyle
	if a.width > 4 {
		box = box.Width(min(a.width-2, 60))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (a *App) renderStatus() string {
	if msg := a.wf.LatestError(); msg != "" {
		return statusErrStyle.Render(msg)
	}
	if a.busy != "" {
		return statusStyle.Render(a.busy)
	}
	if a.status == "" {
		return statusStyle.Render("ready")
	}
	return statusStyle.Render(a.status)
}

func (a *App) renderHelp() string {
	var bindings []key.Binding
	switch {
	case a.draft != nil:
		switch a.draft.Kind {
		case attribute.KindDate:
			bindings = append(bindings, a.keys.PrevDay, a.keys.PrevMonth, a.keys.PrevYear, a.keys.Today)
		case attribute.KindDateTime:
			bindings = append(bindings, a.keys.PrevDay, a.keys.Earlier, a.keys.PrevYear, a.keys.Today)
		case attribute.KindStepper:
			bindings = append(bindings, a.keys.Inc, a.keys.IncTen)
		case attribute.KindToggle:
			bindings = append(bindings, a.keys.Flip)
		}
		bindings = append(bindings, a.keys.Commit, a.keys.Cancel)
	case a.signedOut:
		bindings = append(bindings, a.keys.Quit)
	default:
		bindings = append(bindings, a.keys.Up, a.keys.Down, a.keys.Edit, a.keys.Refresh, a.keys.SignOut, a.keys.Quit)
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+" "+helpDescStyle.Render(h.Desc))
	}
	line := strings.Join(parts, "  ")
	if a.width > 0 {
		line = ansi.Truncate(line, a.width, "")
	}
	return line
}

// displayValue renders the stored value the way its editor would show it.
// Values that do not decode are shown verbatim.
func (a *App) displayValue(attr attribute.Attribute) string {
	switch attribute.ResolveEditor(attr.Key) {
	case attribute.KindDate:
		if t, ok := attribute.DecodeTime(attr.Value); ok {
			return t.UTC().Format(a.dateFormat)
		}
	case attribute.KindDateTime:
		if t, ok := attribute.DecodeTime(attr.Value); ok {
			return t.In(a.tz).Format(a.dateTimeFormat)
		}
	case attribute.KindToggle:
		if attribute.DecodeBool(attr.Value) {
			return "yes"
		}
		return "no"
	}
	return attr.Value
}

func rowLabel(k string) string {
	if slices.Contains(attribute.WellKnownKeys(), k) {
		return attribute.Label(k)
	}
	return k
}
