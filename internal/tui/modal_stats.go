package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bkonkle/fleetdash/internal/view"
)

// StatsModal renders the detailed counters of one device.
type StatsModal struct {
	index  int
	name   string
	stats  *view.StatsView
	width  int
	height int
}

// NewStatsModal creates a stats modal. It shows a loading line until the
// first snapshot arrives.
func NewStatsModal(index int, name string, width, height int) *StatsModal {
	m := &StatsModal{index: index, name: name}
	m.SetSize(width, height)
	return m
}

// Index returns the device the modal shows.
func (m *StatsModal) Index() int {
	return m.index
}

// SetSize updates the screen size.
func (m *StatsModal) SetSize(width, height int) {
	m.width = min(max(30, width*4/5), 64)
	m.height = height
}

// Apply replaces the displayed counters.
func (m *StatsModal) Apply(v view.StatsView) {
	m.stats = &v
}

// View renders the stats modal.
func (m *StatsModal) View() string {
	var sb strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Width(m.width - 4)
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Stats: %s", m.name)))
	sb.WriteString("\n\n")

	if m.stats == nil {
		sb.WriteString(MutedStyle.Render("Loading..."))
	} else {
		colWidth := (m.width - 6) / 2
		columns := make([]string, 0, len(m.stats.Groups))
		for i, g := range m.stats.Groups {
			columns = append(columns, renderStatGroup(g, colWidth, groupColor(i)))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	}

	sb.WriteString("\n\n")
	sb.WriteString(MutedStyle.Render("[Press Esc to close]"))

	return ModalStyle(m.width).Padding(1, 2).Render(sb.String())
}

func renderStatGroup(g view.StatGroup, width int, color lipgloss.Color) string {
	var sb strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(color)
	sb.WriteString(header.Render(g.Title))
	sb.WriteString("\n")

	total := 0
	for _, row := range g.Rows {
		total += row.Value
		label := lipgloss.NewStyle().Width(width - 6).Render(row.Label)
		sb.WriteString(fmt.Sprintf("%s%5d\n", label, row.Value))
	}
	sb.WriteString(MutedStyle.Render(strings.Repeat("─", width-1)))
	sb.WriteString("\n")
	label := lipgloss.NewStyle().Width(width - 6).Bold(true).Render("Total")
	sb.WriteString(fmt.Sprintf("%s%5d", label, total))

	return lipgloss.NewStyle().Width(width).Render(sb.String())
}

func groupColor(i int) lipgloss.Color {
	if i == 0 {
		return ColorSuccess
	}
	return ColorOrange
}
