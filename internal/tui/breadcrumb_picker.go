package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HaiFongPan/rbrowse/internal/explorer"
	"github.com/HaiFongPan/rbrowse/internal/tui/theme"
)

// PickerItem is one row of the breadcrumb picker: a level of the stack or a
// sub-folder shortcut under it
type PickerItem struct {
	Label    string
	Level    int
	Shortcut *explorer.Shortcut
	Current  bool
}

// BreadcrumbPickerModel lets the user jump to any breadcrumb level or any
// sub-folder listed at one
type BreadcrumbPickerModel struct {
	items         []PickerItem
	selectedIndex int
	showHelp      bool
	keyMap        BreadcrumbPickerKeyMap
	help          help.Model
	windowWidth   int
	windowHeight  int
}

// BreadcrumbPickerKeyMap defines keybindings for the picker
type BreadcrumbPickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultBreadcrumbPickerKeyMap returns default keybindings
func DefaultBreadcrumbPickerKeyMap() BreadcrumbPickerKeyMap {
	return BreadcrumbPickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go to folder"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "b"),
			key.WithHelp("q/esc", "close"),
		),
	}
}

// ShortHelp returns the short help view
func (k BreadcrumbPickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Help, k.Quit}
}

// FullHelp returns the full help view
func (k BreadcrumbPickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Help, k.Quit},
	}
}

type (
	pickerChosenMsg struct {
		level    int
		shortcut *explorer.Shortcut
	}
	pickerClosedMsg struct{}
)

// NewBreadcrumbPickerModel flattens crumbs into picker rows, the cursor
// starting on the current level
func NewBreadcrumbPickerModel(crumbs []explorer.Breadcrumb, width, height int) *BreadcrumbPickerModel {
	m := &BreadcrumbPickerModel{
		items:        pickerItems(crumbs),
		keyMap:       DefaultBreadcrumbPickerKeyMap(),
		help:         help.New(),
		windowWidth:  width,
		windowHeight: height,
	}
	for i, item := range m.items {
		if item.Current {
			m.selectedIndex = i
		}
	}
	return m
}

func pickerItems(crumbs []explorer.Breadcrumb) []PickerItem {
	var items []PickerItem
	for level, c := range crumbs {
		items = append(items, PickerItem{
			Label:   c.FullPath,
			Level:   level,
			Current: level == len(crumbs)-1,
		})
		for _, child := range c.Children {
			// the next level is already its own row
			if level+1 < len(crumbs) && crumbs[level+1].FullPath == child.FullPath {
				continue
			}
			items = append(items, PickerItem{Label: child.Label, Level: level, Shortcut: &child})
		}
	}
	return items
}

// Init implements tea.Model
func (m *BreadcrumbPickerModel) Init() tea.Cmd {
	return nil
}

// Update handles messages in the picker
func (m *BreadcrumbPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m *BreadcrumbPickerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case key.Matches(msg, m.keyMap.Down):
		if m.selectedIndex < len(m.items)-1 {
			m.selectedIndex++
		}
	case key.Matches(msg, m.keyMap.Select):
		if len(m.items) == 0 {
			return m, nil
		}
		item := m.items[m.selectedIndex]
		return m, func() tea.Msg {
			return pickerChosenMsg{level: item.Level, shortcut: item.Shortcut}
		}
	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keyMap.Quit):
		return m, func() tea.Msg { return pickerClosedMsg{} }
	}
	return m, nil
}

// Selected returns the row under the cursor
func (m *BreadcrumbPickerModel) Selected() (PickerItem, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.items) {
		return PickerItem{}, false
	}
	return m.items[m.selectedIndex], true
}

// View renders the picker
func (m *BreadcrumbPickerModel) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.ColorBrightYellow)).
		Render("📂  Jump to folder")

	var body string
	if m.showHelp {
		body = m.help.FullHelpView(m.keyMap.FullHelp())
	} else {
		body = m.renderList()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		body,
		"",
		m.help.ShortHelpView(m.keyMap.ShortHelp()),
	)

	return lipgloss.Place(
		m.windowWidth, m.windowHeight,
		lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(theme.ColorBrightYellow)).
			Padding(2, 4).
			Width(60).
			Render(content),
	)
}

func (m *BreadcrumbPickerModel) renderList() string {
	lines := make([]string, len(m.items))
	for i, item := range m.items {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorWhite)).Padding(0, 1)
		if i == m.selectedIndex {
			prefix = "▶ "
			style = style.
				Background(lipgloss.Color(theme.ColorBrightBlue)).
				Bold(true)
		}

		label := strings.Repeat("  ", item.Level)
		if item.Shortcut != nil {
			label += "  └ " + item.Label
		} else {
			label += "📁 " + item.Label
		}
		if item.Current {
			label += " (current)"
		}
		lines[i] = style.Render(prefix + label)
	}
	return strings.Join(lines, "\n")
}
