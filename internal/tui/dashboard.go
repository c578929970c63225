package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bkonkle/fleetdash/internal/engine"
	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/view"
)

// cardWidth is the outer width of one device card.
const cardWidth = 38

// Modal identifies the overlay currently shown.
type Modal int

const (
	// ModalNone means the device grid has focus.
	ModalNone Modal = iota
	// ModalLogs is the live log tail.
	ModalLogs
	// ModalStats is the detailed stats view.
	ModalStats
	// ModalAdd is the add-device form.
	ModalAdd
)

// Actions performs operator actions. *engine.Dispatcher implements it.
type Actions interface {
	Start(ctx context.Context, index int) error
	Stop(ctx context.Context, index int) error
	Delete(ctx context.Context, index int, name string) error
	Add(ctx context.Context, name, udid string) (*fleet.DeviceConfig, error)
}

// Session is one drill-down poller. *engine.Session implements it.
type Session interface {
	Open(index int)
	Close()
	IsCurrent(epoch uint64) bool
}

// Deps are the collaborators the dashboard drives.
type Deps struct {
	Actions   Actions
	Logs      Session
	Stats     Session
	Refresher engine.Refresher
	ServerURL string
	// AutoScroll is the initial auto-scroll setting of the log modal.
	AutoScroll bool
}

// KeyMap defines the key bindings for the dashboard.
type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Toggle  key.Binding
	Delete  key.Binding
	Logs    key.Binding
	Stats   key.Binding
	Add     key.Binding
	Refresh key.Binding
	Close   key.Binding
	Yes     key.Binding
	No      key.Binding
	Auto    key.Binding
	Clear   key.Binding
	Top     key.Binding
	Bottom  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/↓", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("h/←", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("l/→", "right"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start/stop"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "delete"),
		),
		Logs: key.NewBinding(
			key.WithKeys("enter", "L"),
			key.WithHelp("enter", "logs"),
		),
		Stats: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "stats"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add device"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "no"),
		),
		Auto: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto-scroll"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear logs"),
		),
		Top: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "go to bottom"),
		),
	}
}

// Model is the main dashboard model.
type Model struct {
	// Data
	devices     view.DeviceList
	loaded      bool
	lastUpdated time.Time

	// UI State
	selected   int
	modal      Modal
	logsModal  *LogsModal
	statsModal *StatsModal
	addModal   *AddModal
	confirms   []confirmRequestMsg
	showHelp   bool
	statusMsg  string
	errorMsg   string

	// Dimensions
	width  int
	height int

	// Key bindings
	keys KeyMap

	ctx  context.Context
	deps Deps
}

// NewModel creates a new dashboard model. Action commands run under ctx.
func NewModel(ctx context.Context, deps Deps) Model {
	return Model{
		keys: DefaultKeyMap(),
		ctx:  ctx,
		deps: deps,
	}
}

// actionResultMsg contains the result of an action.
type actionResultMsg struct {
	action engine.ActionKind
	index  int
	err    error
}

// Init initializes the model. Polling is driven by the engine, not by ticks.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeModals()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
			m.declineAll()
			return m, tea.Quit
		}
		if len(m.confirms) > 0 {
			return m.updateConfirm(msg)
		}
		switch m.modal {
		case ModalLogs:
			return m.updateLogsModal(msg)
		case ModalStats:
			if key.Matches(msg, m.keys.Close) {
				m.closeModal()
			}
			return m, nil
		case ModalAdd:
			return m.updateAddModal(msg)
		}
		return m.updateGrid(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case devicesMsg:
		m.devices = msg.list
		m.loaded = true
		m.lastUpdated = time.Now()
		m.clampSelection()
		return m, nil

	case logFrameMsg:
		// The session may have moved on while this frame was queued.
		if m.modal != ModalLogs || m.logsModal == nil ||
			m.logsModal.Index() != msg.frame.Index ||
			!m.deps.Logs.IsCurrent(msg.frame.Epoch) {
			return m, nil
		}
		m.logsModal.Apply(msg.frame.Snapshot)
		return m, nil

	case statsFrameMsg:
		if m.modal != ModalStats || m.statsModal == nil ||
			m.statsModal.Index() != msg.frame.Index ||
			!m.deps.Stats.IsCurrent(msg.frame.Epoch) {
			return m, nil
		}
		m.statsModal.Apply(msg.frame.View)
		return m, nil

	case noticeMsg:
		n := msg.notice
		if n.Err != nil {
			m.errorMsg = formatActionError(n.Action, n.Err)
			m.statusMsg = ""
		} else {
			m.statusMsg = n.Message
			m.errorMsg = ""
		}
		return m, nil

	case confirmRequestMsg:
		m.confirms = append(m.confirms, msg)
		return m, nil

	case actionResultMsg:
		if msg.action == engine.ActionDelete && msg.err == nil && m.focusedOn(msg.index) {
			m.closeModal()
			return m, nil
		}
		if msg.action == engine.ActionAdd && m.modal == ModalAdd && m.addModal != nil {
			if msg.err == nil {
				m.closeModal()
			} else {
				m.addModal.SetError(formatActionError(engine.ActionAdd, msg.err))
			}
		}
		return m, nil
	}

	return m, nil
}

// updateGrid handles keys while no modal is open.
func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Close) {
			m.showHelp = false
		}
		return m, nil
	}

	// Clear any error/status messages on key press
	m.errorMsg = ""
	m.statusMsg = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Right):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-m.columns())
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(m.columns())
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.addModal = NewAddModal(m.width)
		m.modal = ModalAdd
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.deps.Refresher != nil {
			m.deps.Refresher.ForceRefresh()
		}
		return m, nil
	}

	card, ok := m.selectedCard()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		if card.Primary == view.ActionStop {
			return m, m.runAction(engine.ActionStop, card)
		}
		return m, m.runAction(engine.ActionStart, card)

	case key.Matches(msg, m.keys.Delete):
		if !card.CanDelete {
			m.errorMsg = "Stop the device before deleting it"
			return m, nil
		}
		return m, m.runAction(engine.ActionDelete, card)

	case key.Matches(msg, m.keys.Logs):
		m.logsModal = NewLogsModal(card.Key, card.Name, m.deps.AutoScroll, m.width, m.height)
		m.modal = ModalLogs
		m.deps.Logs.Open(card.Key)
		return m, nil

	case key.Matches(msg, m.keys.Stats):
		m.statsModal = NewStatsModal(card.Key, card.Name, m.width, m.height)
		m.modal = ModalStats
		m.deps.Stats.Open(card.Key)
		return m, nil
	}

	return m, nil
}

func (m Model) updateLogsModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.closeModal()
		return m, nil
	case key.Matches(msg, m.keys.Auto):
		m.logsModal.ToggleAutoScroll()
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.logsModal.Clear()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logsModal.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logsModal.viewport.GotoBottom()
		return m, nil
	}
	return m, m.logsModal.Update(msg)
}

func (m Model) updateAddModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Close) {
		m.closeModal()
		return m, nil
	}

	cmd, submit := m.addModal.Update(msg)
	if !submit {
		return m, cmd
	}

	name, udid := m.addModal.Values()
	actions, ctx := m.deps.Actions, m.ctx
	return m, func() tea.Msg {
		_, err := actions.Add(ctx, name, udid)
		return actionResultMsg{action: engine.ActionAdd, err: err}
	}
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var answer, answered bool
	switch {
	case key.Matches(msg, m.keys.Yes):
		answer, answered = true, true
	case key.Matches(msg, m.keys.No):
		answer, answered = false, true
	}
	if !answered {
		return m, nil
	}

	m.confirms[0].reply <- answer
	m.confirms = m.confirms[1:]
	return m, nil
}

// updateMouse closes a modal when the operator clicks outside of it. Other
// mouse events scroll the log viewer.
func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.modal == ModalNone || len(m.confirms) > 0 {
		return m, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		if m.modal == ModalLogs && m.logsModal != nil {
			return m, m.logsModal.Update(msg)
		}
		return m, nil
	}

	box := m.modalView()
	w, h := lipgloss.Width(box), lipgloss.Height(box)
	x0, y0 := max(0, (m.width-w)/2), max(0, (m.height-h)/2)
	inside := msg.X >= x0 && msg.X < x0+w && msg.Y >= y0 && msg.Y < y0+h
	if !inside {
		m.closeModal()
	}
	return m, nil
}

// runAction returns a command that performs one action on card. Stop and
// delete block inside the command until the operator answers the dialog.
func (m Model) runAction(action engine.ActionKind, card view.Card) tea.Cmd {
	actions, ctx := m.deps.Actions, m.ctx
	index, name := card.Key, card.Name
	return func() tea.Msg {
		var err error
		switch action {
		case engine.ActionStart:
			err = actions.Start(ctx, index)
		case engine.ActionStop:
			err = actions.Stop(ctx, index)
		case engine.ActionDelete:
			err = actions.Delete(ctx, index, name)
		}
		return actionResultMsg{action: action, index: index, err: err}
	}
}

// closeModal cancels the open modal's session and drops its state.
func (m *Model) closeModal() {
	switch m.modal {
	case ModalLogs:
		m.deps.Logs.Close()
		m.logsModal = nil
	case ModalStats:
		m.deps.Stats.Close()
		m.statsModal = nil
	case ModalAdd:
		m.addModal = nil
	}
	m.modal = ModalNone
}

// focusedOn reports whether the open logs or stats modal shows index.
func (m Model) focusedOn(index int) bool {
	switch m.modal {
	case ModalLogs:
		return m.logsModal != nil && m.logsModal.Index() == index
	case ModalStats:
		return m.statsModal != nil && m.statsModal.Index() == index
	}
	return false
}

// declineAll answers every pending dialog with no.
func (m *Model) declineAll() {
	for _, c := range m.confirms {
		c.reply <- false
	}
	m.confirms = nil
}

func (m *Model) resizeModals() {
	if m.logsModal != nil {
		m.logsModal.SetSize(m.width, m.height)
	}
	if m.statsModal != nil {
		m.statsModal.SetSize(m.width, m.height)
	}
	if m.addModal != nil {
		m.addModal.SetSize(m.width)
	}
}

// columns returns how many cards fit side by side.
func (m Model) columns() int {
	return max(1, m.width/cardWidth)
}

func (m *Model) moveSelection(delta int) {
	n := len(m.devices.Cards)
	if n == 0 {
		return
	}
	pos := m.selectedPos() + delta
	pos = min(max(pos, 0), n-1)
	m.selected = m.devices.Cards[pos].Key
}

// selectedPos returns the grid position of the selected card.
func (m Model) selectedPos() int {
	for i, c := range m.devices.Cards {
		if c.Key == m.selected {
			return i
		}
	}
	return 0
}

func (m Model) selectedCard() (view.Card, bool) {
	if len(m.devices.Cards) == 0 {
		return view.Card{}, false
	}
	if c, ok := m.devices.Card(m.selected); ok {
		return c, true
	}
	return m.devices.Cards[0], true
}

// clampSelection keeps the selection on the same device across refreshes,
// falling back to the first card when it disappears.
func (m *Model) clampSelection() {
	if len(m.devices.Cards) == 0 {
		m.selected = 0
		return
	}
	if _, ok := m.devices.Card(m.selected); !ok {
		m.selected = m.devices.Cards[0].Key
	}
}

func formatActionError(action engine.ActionKind, err error) string {
	var verrs engine.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}
	var berr *engine.BusinessError
	if errors.As(err, &berr) {
		return fmt.Sprintf("Error: %s", berr.Message)
	}
	return fmt.Sprintf("Failed to %s device: %v", action, err)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if len(m.confirms) > 0 {
		return m.overlay(m.renderConfirm(m.confirms[0].message))
	}

	if m.modal != ModalNone {
		return m.overlay(m.modalView())
	}

	return m.renderMainView()
}

func (m Model) overlay(box string) string {
	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("0")))
}

func (m Model) modalView() string {
	switch m.modal {
	case ModalLogs:
		if m.logsModal != nil {
			return m.logsModal.View()
		}
	case ModalStats:
		if m.statsModal != nil {
			return m.statsModal.View()
		}
	case ModalAdd:
		if m.addModal != nil {
			return m.addModal.View()
		}
	}
	return ""
}

// renderMainView renders the card grid with title and status bars.
func (m Model) renderMainView() string {
	var sb strings.Builder

	title := TitleStyle.Width(m.width).Render(fmt.Sprintf("Device Fleet · %s", m.deps.ServerURL))
	sb.WriteString(title)
	sb.WriteString("\n")

	body := m.renderGrid()
	bodyHeight := m.height - 3
	sb.WriteString(lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body))
	sb.WriteString("\n")

	sb.WriteString(m.renderStatusBar())

	return sb.String()
}

func (m Model) renderGrid() string {
	if !m.loaded {
		return MutedStyle.Render("Loading devices...")
	}

	if m.devices.IsEmpty() {
		p := m.devices.Empty
		box := lipgloss.JoinVertical(lipgloss.Center,
			HeaderStyle.Render(p.Title),
			MutedStyle.Render(p.Hint))
		return lipgloss.Place(m.width, m.height-4, lipgloss.Center, lipgloss.Center, box)
	}

	cols := m.columns()
	var rows []string
	for start := 0; start < len(m.devices.Cards); start += cols {
		end := min(start+cols, len(m.devices.Cards))
		cards := make([]string, 0, end-start)
		for _, c := range m.devices.Cards[start:end] {
			cards = append(cards, m.renderCard(c, c.Key == m.selected))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderCard draws one device card with its controls.
func (m Model) renderCard(c view.Card, selected bool) string {
	inner := cardWidth - 4
	var sb strings.Builder

	name := HeaderStyle.Render(Truncate(c.Name, inner-12))
	status := lipgloss.NewStyle().Foreground(StatusColor(c.Status)).Render(c.StatusText)
	gap := max(1, inner-lipgloss.Width(name)-lipgloss.Width(status)-2)
	sb.WriteString(name + strings.Repeat(" ", gap) + StatusIcon(c.Status) + " " + status)
	sb.WriteString("\n")

	sb.WriteString(MutedStyle.Render("UDID: ") + c.UDID)
	sb.WriteString("\n")
	sb.WriteString(MutedStyle.Render("Port: ") + fmt.Sprintf("%d", c.Port))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s %d  %s %d  %s %d",
		SuccessStyle.Render("✓"), c.Stats.Successful,
		WarningStyle.Render("⚠"), c.Stats.ConfirmHuman,
		ErrorStyle.Render("✗"), c.Stats.Failed))
	sb.WriteString("\n")

	controls := []string{fmt.Sprintf("[s] %s", c.Primary), "[⏎] Logs", "[i] Stats"}
	if c.CanDelete {
		controls = append(controls, "[x] 🗑")
	}
	sb.WriteString(HelpStyle.Render(strings.Join(controls, " ")))

	return PaneBorder(selected).Width(cardWidth - 2).Render(sb.String())
}

// renderStatusBar renders the bottom status bar.
func (m Model) renderStatusBar() string {
	// Left side: status/error message
	left := ""
	if m.errorMsg != "" {
		left = ErrorStyle.Render(m.errorMsg)
	} else if m.statusMsg != "" {
		left = InfoStyle.Render(m.statusMsg)
	} else if !m.lastUpdated.IsZero() {
		left = MutedStyle.Render(fmt.Sprintf("%d devices · updated %s",
			len(m.devices.Cards), m.lastUpdated.Format("15:04:05")))
	}

	// Right side: help hint
	right := HelpStyle.Render("[a] add  [r] refresh  [?] help  [q] quit")

	// Pad to fill width
	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return StatusBarStyle.Width(m.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (m Model) renderConfirm(message string) string {
	width := min(max(30, m.width/2), 60)
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Confirm"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Width(width - 4).Render(message))
	sb.WriteString("\n\n")
	sb.WriteString(HelpStyle.Render("[y] yes  [n] no"))
	return ModalStyle(width).BorderForeground(ColorWarning).Padding(1, 2).Render(sb.String())
}

// renderHelp renders the help screen.
func (m Model) renderHelp() string {
	var sb strings.Builder

	title := TitleStyle.Width(m.width).Render("Device Fleet - Help")
	sb.WriteString(title)
	sb.WriteString("\n\n")

	sections := []struct {
		title string
		keys  []string
	}{
		{
			title: "Navigation",
			keys: []string{
				"h/j/k/l or arrows  Select device",
				"r                  Refresh now",
			},
		},
		{
			title: "Device Actions",
			keys: []string{
				"s                  Start or stop",
				"x                  Delete (stopped devices only)",
				"Enter              Live logs",
				"i                  Detailed stats",
				"a                  Add device",
			},
		},
		{
			title: "Log Viewer",
			keys: []string{
				"j/k, PgUp/PgDn     Scroll",
				"g / G              Top / bottom",
				"a                  Toggle auto-scroll",
				"c                  Clear display",
				"Esc or click out   Close",
			},
		},
		{
			title: "General",
			keys: []string{
				"?                  Toggle help",
				"q / Ctrl+C         Quit",
			},
		},
	}

	for _, section := range sections {
		sb.WriteString(HeaderStyle.Render(section.title))
		sb.WriteString("\n")
		for _, k := range section.keys {
			sb.WriteString("  " + k + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(HelpStyle.Render("Press ? to close help"))

	return sb.String()
}

// ActiveModal returns the overlay currently shown.
func (m Model) ActiveModal() Modal {
	return m.modal
}

// Selected returns the key of the selected card.
func (m Model) Selected() int {
	return m.selected
}
