package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hmjahid/build-studio/internal/node"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionInfo
	ActionStart
	ActionStop
	ActionRemove
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionInfo:
		return "info"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionRemove:
		return "remove"
	case ActionQuit:
		return "quit"
	default:
		return "none"
	}
}

// PickerResult holds the result of the picker
type PickerResult struct {
	Action Action
	Node   *node.Node
}

// nodeItem implements list.Item for node display
type nodeItem struct {
	node node.Node
}

func (i nodeItem) Title() string {
	return i.node.Name
}

func (i nodeItem) Description() string {
	return fmt.Sprintf("%s %s | %s | %dMB %dcpu | %s",
		StateIcon(i.node.State),
		i.node.State,
		orDash(i.node.Platform),
		i.node.MemoryMB,
		i.node.CPUCores,
		shortID(i.node.ID),
	)
}

func (i nodeItem) FilterValue() string {
	return i.node.Name + " " + i.node.ID
}

// StateIcon returns the status glyph for a node state.
func StateIcon(s node.State) string {
	switch s {
	case node.StateOnline:
		return "✓"
	case node.StateInstalling:
		return "○"
	default:
		return "●"
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the node picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
}

// NewPicker creates a new node picker
func NewPicker(nodes []node.Node) Model {
	items := buildGroupedItems(nodes)

	l := list.New(items, newGroupedDelegate(), 80, 20)
	l.Title = "Build Studio - Nodes"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	skipHeaders(&l, 1)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			return m.choose(ActionInfo)
		case "s":
			return m.choose(ActionStart)
		case "x":
			return m.choose(ActionStop)
		case "d":
			return m.choose(ActionRemove)
		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		skipHeaders(&m.list, navigationDirection(msg))
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) choose(action Action) (tea.Model, tea.Cmd) {
	item, ok := m.list.SelectedItem().(nodeItem)
	if !ok {
		return m, nil
	}
	n := item.node
	m.result = PickerResult{Action: action, Node: &n}
	m.quitting = true
	return m, tea.Quit
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Info  [s] Start  [x] Stop  [d] Remove  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive node picker
func RunPicker(nodes []node.Node) (PickerResult, error) {
	if len(nodes) == 0 {
		return PickerResult{Action: ActionNone}, nil
	}

	m := NewPicker(nodes)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive rendering of the node list
func SimplePicker(nodes []node.Node) string {
	var sb strings.Builder

	sb.WriteString("Build Studio - Nodes\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(nodes) == 0 {
		sb.WriteString("No nodes registered.\n")
		sb.WriteString("Create one with: build-studio nodes create <name>\n")
		return sb.String()
	}

	for i, n := range nodes {
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s, %s)\n",
			i+1, StateIcon(n.State), n.Name, n.Technology, n.State))
		seen := "never"
		if n.LastSeen != nil {
			seen = n.LastSeen.Format(time.RFC3339)
		}
		sb.WriteString(fmt.Sprintf("   ID: %s | Platform: %s | Last seen: %s\n\n",
			n.ID, orDash(n.Platform), seen))
	}

	return sb.String()
}
