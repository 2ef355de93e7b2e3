package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label       string
	placeholder string
	secret      bool
}

// form is a vertical stack of text inputs with one focused at a time.
type form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(title string, fields ...field) form {
	f := form{title: title}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Placeholder = fd.placeholder
		ti.CharLimit = 256
		ti.Width = 40
		if fd.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, ti)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) set(i int, v string) {
	f.inputs[i].SetValue(v)
}

func (f form) onLast() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) move(delta int) {
	n := len(f.inputs)
	if n == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + n) % n
	f.inputs[f.focus].Focus()
}

// update routes navigation keys and forwards everything else to the focused
// input. The returned bool is true when enter was pressed on the last field.
func (f form) update(msg tea.Msg) (form, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down":
			f.move(1)
			return f, nil, false
		case "shift+tab", "up":
			f.move(-1)
			return f, nil, false
		case "enter":
			if f.onLast() {
				return f, nil, true
			}
			f.move(1)
			return f, nil, false
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f form) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := labelStyle.Render(f.labels[i])
		if i == f.focus {
			label = focusedStyle.Render(labelStyle.Render(f.labels[i]))
		}
		b.WriteString(label)
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	return b.String()
}
