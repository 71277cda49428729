package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	layout "github.com/HaiFongPan/rbrowse/internal/tui/config"
	"github.com/HaiFongPan/rbrowse/internal/tui/messaging"
	"github.com/HaiFongPan/rbrowse/internal/tui/theme"
)

// menuItem is one entry of the context menu
type menuItem struct {
	label string
	run   func(m *FileBrowserModel) tea.Cmd
}

// menuItems lists the actions that apply to the current selection
func (m *FileBrowserModel) menuItems() []menuItem {
	selected := m.ctrl.Selected()
	var items []menuItem

	if len(selected) == 1 {
		e := selected[0]
		if e.IsFolder() {
			items = append(items, menuItem{"Open", func(m *FileBrowserModel) tea.Cmd {
				return m.run("open", func(ctx context.Context) error { return m.ctrl.NavigateInto(ctx, e) })
			}})
			items = append(items, menuItem{"Download folder", func(m *FileBrowserModel) tea.Cmd {
				m.status.SetMessage("Preparing download...", messaging.MessageInfo)
				return m.run("download", func(ctx context.Context) error {
					_, err := m.ctrl.DownloadFolder(ctx, e)
					return err
				})
			}})
		}
		if e.IsPreviewable() {
			items = append(items, menuItem{"Preview", func(m *FileBrowserModel) tea.Cmd { return m.openPreview(e) }})
		}
		items = append(items,
			menuItem{"Rename", func(m *FileBrowserModel) tea.Cmd { return m.beginRename() }},
			menuItem{"Copy path", func(m *FileBrowserModel) tea.Cmd { m.copyPath(); return nil }},
		)
	}
	if len(selected) > 0 {
		items = append(items,
			menuItem{"Download", func(m *FileBrowserModel) tea.Cmd { return m.download() }},
			menuItem{"Delete", func(m *FileBrowserModel) tea.Cmd { return m.run("delete", m.ctrl.DeleteSelected) }},
		)
	}
	items = append(items, menuItem{"Refresh", func(m *FileBrowserModel) tea.Cmd { return m.run("list", m.ctrl.Refresh) }})
	return items
}

func (m *FileBrowserModel) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.menuItems()

	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(items)-1 {
			m.menuIndex++
		}
	case "esc", "m", "q":
		m.ctrl.CloseMenu()
	case "enter":
		m.ctrl.CloseMenu()
		if m.menuIndex < len(items) {
			return m, items[m.menuIndex].run(m)
		}
	}
	return m, nil
}

func (m *FileBrowserModel) renderMenu() string {
	items := m.menuItems()

	var b strings.Builder
	for i, item := range items {
		style := lipgloss.NewStyle().Width(layout.MenuWidth - 4).Padding(0, 1)
		if i == m.menuIndex {
			style = style.
				Background(lipgloss.Color(theme.ColorBrightBlue)).
				Foreground(lipgloss.Color(theme.ColorWhite)).
				Bold(true)
		}
		b.WriteString(style.Render(item.label))
		if i < len(items)-1 {
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.ColorBrightCyan)).
		Width(layout.MenuWidth).
		Render(b.String())
}
