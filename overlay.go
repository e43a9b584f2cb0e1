package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	overlayTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// editOverlay is the text editor shown while an inline edit is open.
// Titles and labels get a single-line input; descriptions a textarea.
type editOverlay struct {
	target EditTarget
	input  textinput.Model
	area   textarea.Model
}

func newEditOverlay(e EditSession, width int) *editOverlay {
	o := &editOverlay{target: e.Target}
	inner := width - 6
	if inner < 20 {
		inner = 20
	}
	if e.Target.Multiline() {
		o.area = textarea.New()
		o.area.ShowLineNumbers = false
		o.area.CharLimit = 0
		o.area.SetWidth(inner)
		o.area.SetHeight(6)
		o.area.SetValue(e.Value)
		o.area.Focus()
		return o
	}
	o.input = textinput.New()
	o.input.Prompt = ""
	o.input.CharLimit = 200
	o.input.Width = inner
	o.input.SetValue(e.Value)
	o.input.CursorEnd()
	o.input.Focus()
	return o
}

func (o *editOverlay) Value() string {
	if o.target.Multiline() {
		return o.area.Value()
	}
	return o.input.Value()
}

// commits reports whether key closes the edit with its value.
func (o *editOverlay) commits(msg tea.KeyMsg) bool {
	if !o.target.Multiline() {
		return msg.Type == tea.KeyEnter
	}
	if isAltEnter(msg) {
		return true
	}
	switch msg.String() {
	case "shift+enter", "ctrl+s":
		return true
	}
	return false
}

func (o *editOverlay) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if o.target.Multiline() {
		o.area, cmd = o.area.Update(msg)
	} else {
		o.input, cmd = o.input.Update(msg)
	}
	return cmd
}

func (o *editOverlay) View() string {
	heading := "Edit " + o.target.String()
	hint := "enter save · esc cancel"
	body := o.input.View()
	if o.target.Multiline() {
		hint = "alt+enter or ctrl+s save · enter newline · esc cancel"
		body = o.area.View()
	}
	return overlayStyle.Render(overlayTitleStyle.Render(heading) + "\n" + body + "\n" + hintStyle.Render(hint))
}

func isAltEnter(msg tea.KeyMsg) bool {
	if msg.Alt && msg.Type == tea.KeyEnter {
		return true
	}
	// Different terminals report this differently.
	switch msg.String() {
	case "alt+enter", "alt+return", "alt+\r":
		return true
	}
	return false
}

// filePrompt asks for a file name. For opens it also offers the recent
// projects, selectable with the arrow keys.
type filePrompt struct {
	op       FileOperation
	input    textinput.Model
	recent   []RecentProject
	selected int
}

func newFilePrompt(op FileOperation, initial string, recent []RecentProject) *filePrompt {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 255
	in.Width = 48
	in.SetValue(initial)
	in.CursorEnd()
	in.Focus()
	p := &filePrompt{op: op, input: in, selected: -1}
	if op == FileOpOpen {
		p.recent = recent
	}
	return p
}

func (p *filePrompt) label() string {
	switch p.op {
	case FileOpOpen:
		return "Open"
	case FileOpExport:
		return "Export image"
	}
	return "Save"
}

// Value is the chosen name: the selected recent project while the user
// has not typed, otherwise the typed text.
func (p *filePrompt) Value() string {
	if p.selected >= 0 && p.selected < len(p.recent) && p.input.Value() == p.recent[p.selected].Name {
		return p.recent[p.selected].FilePath
	}
	return strings.TrimSpace(p.input.Value())
}

func (p *filePrompt) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok && len(p.recent) > 0 {
		switch km.String() {
		case "up":
			p.selected--
			if p.selected < 0 {
				p.selected = len(p.recent) - 1
			}
			p.input.SetValue(p.recent[p.selected].Name)
			p.input.CursorEnd()
			return nil
		case "down":
			p.selected = (p.selected + 1) % len(p.recent)
			p.input.SetValue(p.recent[p.selected].Name)
			p.input.CursorEnd()
			return nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *filePrompt) View() string {
	var b strings.Builder
	b.WriteString(overlayTitleStyle.Render(p.label() + " file"))
	b.WriteString("\n")
	b.WriteString(p.input.View())
	for i, r := range p.recent {
		line := fmt.Sprintf("  %s  %s", r.Name, hintStyle.Render(r.Modified.Format("2006-01-02 15:04")))
		if i == p.selected {
			line = "> " + line[2:]
		}
		b.WriteString("\n" + line)
	}
	hint := "enter confirm · esc cancel"
	if len(p.recent) > 0 {
		hint = "↑/↓ recent · " + hint
	}
	b.WriteString("\n" + hintStyle.Render(hint))
	return overlayStyle.Render(b.String())
}
