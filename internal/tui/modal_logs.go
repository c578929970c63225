package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/view"
)

// LogsModal is the live log tail of one device.
type LogsModal struct {
	index      int
	name       string
	viewport   viewport.Model
	autoScroll bool
	text       string
	width      int
	height     int
}

// NewLogsModal creates a log modal sized for a width x height screen.
func NewLogsModal(index int, name string, autoScroll bool, width, height int) *LogsModal {
	m := &LogsModal{
		index:      index,
		name:       name,
		autoScroll: autoScroll,
		viewport:   viewport.New(0, 0),
		text:       "Loading logs...",
	}
	m.SetSize(width, height)
	m.viewport.SetContent(m.text)
	return m
}

// Index returns the device the modal shows.
func (m *LogsModal) Index() int {
	return m.index
}

// SetSize fits the modal to 90% of the screen.
func (m *LogsModal) SetSize(width, height int) {
	m.width = max(20, width*9/10)
	m.height = max(8, height*9/10)
	// Border, padding, title and footer.
	m.viewport.Width = m.width - 4
	m.viewport.Height = m.height - 6
}

// ScrollState returns the current scroll position in rows.
func (m *LogsModal) ScrollState() view.ScrollState {
	return view.ScrollState{
		Offset:         m.viewport.YOffset,
		ContentHeight:  m.viewport.TotalLineCount(),
		ViewportHeight: m.viewport.Height,
	}
}

// Apply replaces the log text with a fresh snapshot, following the end only
// when auto-scroll is on or the viewer was already near it.
func (m *LogsModal) Apply(snap fleet.LogSnapshot) {
	m.show(view.RenderLogView(m.ScrollState(), snap.Logs, m.autoScroll))
}

// Clear blanks the display until the next snapshot arrives.
func (m *LogsModal) Clear() {
	m.show(view.ClearedLogView())
}

// ToggleAutoScroll flips auto-scroll and jumps to the end when enabling it.
func (m *LogsModal) ToggleAutoScroll() {
	m.autoScroll = !m.autoScroll
	if m.autoScroll {
		m.viewport.GotoBottom()
	}
}

// AutoScroll reports whether auto-scroll is on.
func (m *LogsModal) AutoScroll() bool {
	return m.autoScroll
}

// Text returns the displayed log text without styling.
func (m *LogsModal) Text() string {
	return m.text
}

func (m *LogsModal) show(lv view.LogView) {
	m.text = lv.Text
	m.viewport.SetContent(colorizeLogs(lv.Text))
	if lv.Scroll.ToBottom {
		m.viewport.GotoBottom()
	} else {
		m.viewport.SetYOffset(lv.Scroll.Offset)
	}
}

// Update forwards scrolling keys and mouse wheel events to the viewport.
func (m *LogsModal) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

// View renders the modal box.
func (m *LogsModal) View() string {
	var sb strings.Builder

	title := HeaderStyle.Render(fmt.Sprintf("Logs: %s", Truncate(m.name, m.width-20)))
	sb.WriteString(title + " " + LiveStyle.Render("LIVE"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.viewport.Width))
	sb.WriteString("\n")
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	auto := MutedStyle.Render("[a] auto-scroll: off")
	if m.autoScroll {
		auto = SuccessStyle.Render("[a] auto-scroll: on")
	}
	pos := MutedStyle.Render(fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100))
	sb.WriteString(auto + "  " + HelpStyle.Render("[c] clear  [g/G] top/bottom  [esc] close") + "  " + pos)

	return ModalStyle(m.width).Render(sb.String())
}

// colorizeLogs tints each line by its apparent level. The row count is
// unchanged, so scroll math on the plain text still holds.
func colorizeLogs(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		level := detectLogLevel(line)
		if level == "info" {
			continue
		}
		lines[i] = lipgloss.NewStyle().Foreground(LogLevelColor(level)).Render(line)
	}
	return strings.Join(lines, "\n")
}

// detectLogLevel guesses a line's level from its content.
func detectLogLevel(line string) string {
	lower := strings.ToLower(line)

	switch {
	case strings.Contains(lower, "error") ||
		strings.Contains(lower, "failed") ||
		strings.Contains(lower, "❌"):
		return "error"
	case strings.Contains(lower, "warn") ||
		strings.Contains(lower, "⚠"):
		return "warn"
	case strings.Contains(lower, "success") ||
		strings.Contains(lower, "✅"):
		return "success"
	case strings.Contains(lower, "debug"):
		return "debug"
	default:
		return "info"
	}
}
