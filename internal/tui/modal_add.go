package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldName = iota
	fieldUDID
)

// AddModal is the two-field add-device form.
type AddModal struct {
	inputs     [2]textinput.Model
	focus      int
	err        string
	submitting bool
	width      int
}

// NewAddModal creates an empty form with the name field focused.
func NewAddModal(width int) *AddModal {
	name := textinput.New()
	name.Placeholder = "e.g. iPhone 13 #4"
	name.CharLimit = 64
	name.Prompt = "Name: "

	udid := textinput.New()
	udid.Placeholder = "00008110-001A2B3C4D5E6F70"
	udid.CharLimit = 64
	udid.Prompt = "UDID: "

	m := &AddModal{inputs: [2]textinput.Model{name, udid}}
	m.SetSize(width)
	m.inputs[fieldName].Focus()
	return m
}

// SetSize updates the form width.
func (m *AddModal) SetSize(width int) {
	m.width = min(max(40, width*3/5), 72)
	for i := range m.inputs {
		m.inputs[i].Width = m.width - 12
	}
}

// Values returns the raw field values.
func (m *AddModal) Values() (name, udid string) {
	return m.inputs[fieldName].Value(), m.inputs[fieldUDID].Value()
}

// SetError shows a message under the fields and re-enables submit.
func (m *AddModal) SetError(msg string) {
	m.err = msg
	m.submitting = false
}

// Submitting reports whether a submit is in flight.
func (m *AddModal) Submitting() bool {
	return m.submitting
}

// Update handles a key. It returns submit=true when the form should be sent.
func (m *AddModal) Update(msg tea.KeyMsg) (cmd tea.Cmd, submit bool) {
	switch msg.String() {
	case "tab", "down":
		m.setFocus((m.focus + 1) % len(m.inputs))
		return nil, false
	case "shift+tab", "up":
		m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		return nil, false
	case "enter":
		if m.focus == fieldName {
			m.setFocus(fieldUDID)
			return nil, false
		}
		if m.submitting {
			return nil, false
		}
		m.err = ""
		m.submitting = true
		return nil, true
	}

	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd, false
}

func (m *AddModal) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// View renders the form.
func (m *AddModal) View() string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Render("Add Device"))
	sb.WriteString("\n\n")
	for _, in := range m.inputs {
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	switch {
	case m.submitting:
		sb.WriteString(InfoStyle.Render("Adding..."))
	case m.err != "":
		sb.WriteString(ErrorStyle.Render(m.err))
	default:
		sb.WriteString(MutedStyle.Render("Both fields are required."))
	}
	sb.WriteString("\n")
	sb.WriteString(HelpStyle.Render("[tab] next field  [enter] add  [esc] cancel"))

	return ModalStyle(m.width).Padding(1, 2).Render(sb.String())
}
