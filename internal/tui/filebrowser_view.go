package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/HaiFongPan/rbrowse/internal/explorer"
	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/naming"
	layout "github.com/HaiFongPan/rbrowse/internal/tui/config"
	"github.com/HaiFongPan/rbrowse/internal/tui/theme"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

const crumbSeparator = " › "

// View implements the bubbletea.Model interface
func (m *FileBrowserModel) View() string {
	if m.modal != nil {
		return m.modal.View()
	}
	if m.picker != nil {
		return m.picker.View()
	}

	leftPanelWidth := int(float64(m.windowWidth) * layout.LeftPanelWidthRatio)
	rightPanelWidth := m.windowWidth - leftPanelWidth - 2

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderLeftPanel(leftPanelWidth),
		lipgloss.NewStyle().Width(2).Render("  "),
		m.renderRightPanel(rightPanelWidth),
	)

	footer := theme.CreateSecondaryTextStyle().Render(m.help.ShortHelpView(m.keyMap.ShortHelp()))
	baseView := strings.Join([]string{
		m.renderTitle(),
		m.renderBreadcrumb(),
		content,
		m.renderCount(),
		m.status.RenderMessage(),
		footer,
	}, "\n")

	if p, ok := m.ctrl.Pending(); ok {
		if p.NeedsInput() {
			return m.renderFloatingDialog(m.renderInputDialog(p))
		}
		return m.renderFloatingDialog(m.renderDeleteConfirmation(p))
	}
	if m.uploading {
		return m.renderFloatingDialog(m.renderUploadDialog())
	}
	if m.showHelp {
		return m.renderFloatingDialog(m.renderHelpDialog())
	}
	return baseView
}

func (m *FileBrowserModel) renderTitle() string {
	title := "rbrowse"
	if m.opts.Title != "" {
		title += " - " + m.opts.Title
	}
	line := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.ColorBrightGreen)).Render(title)
	if m.ctrl.Loading() {
		line += " " + theme.CreateLoadingStyle().Render(m.spinner.View()+" Loading...")
	}
	return line
}

func (m *FileBrowserModel) renderBreadcrumb() string {
	crumbs := m.ctrl.Breadcrumb()
	parts := make([]string, len(crumbs))
	for i, c := range crumbs {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorBrightBlue))
		if i == len(crumbs)-1 {
			style = style.Bold(true).Underline(true)
		}
		parts[i] = style.Render(c.Name)
	}
	return strings.Join(parts, theme.CreateSecondaryTextStyle().Render(crumbSeparator))
}

// crumbAt maps a column of the breadcrumb line to a breadcrumb level
func crumbAt(crumbs []explorer.Breadcrumb, x int) int {
	start := 0
	sep := lipgloss.Width(crumbSeparator)
	for i, c := range crumbs {
		end := start + lipgloss.Width(c.Name)
		if x >= start && x < end {
			return i
		}
		start = end + sep
	}
	return -1
}

func (m *FileBrowserModel) columnWidths(width int) (name, size, kind, modified int) {
	size = layout.DefaultColumnSizeWidth
	kind = layout.DefaultColumnTypeWidth
	modified = layout.DefaultColumnModifiedWidth
	name = width - size - kind - modified - 2
	name = min(max(name, layout.MinColumnNameWidth), layout.MaxColumnNameWidth)
	return name, size, kind, modified
}

// renderLeftPanel renders the column header and the visible listing rows
func (m *FileBrowserModel) renderLeftPanel(width int) string {
	nameW, sizeW, kindW, modW := m.columnWidths(width)
	cell := func(w int) lipgloss.Style { return lipgloss.NewStyle().Width(w).MaxWidth(w) }

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.ColorBrightCyan)).Render(
		lipgloss.JoinHorizontal(lipgloss.Top,
			cell(nameW+2).Render("NAME"),
			cell(sizeW).Render("SIZE"),
			cell(kindW).Render("TYPE"),
			cell(modW).Render("MODIFIED"),
		))

	items := m.ctrl.Items()
	rows := make([]string, 0, m.viewportHeight+1)
	rows = append(rows, header)

	if len(items) == 0 {
		empty := "Empty folder"
		if m.ctrl.Loading() {
			empty = ""
		}
		rows = append(rows, theme.CreateSecondaryTextStyle().Render(empty))
	}

	end := min(m.offset+m.viewportHeight, len(items))
	for i := m.offset; i < end; i++ {
		e := items[i]

		marker := "  "
		if i == m.cursor {
			marker = "▶ "
		}
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(entryColor(e))).
			Render(truncate(entryIcon(e)+" "+e.Name, nameW))

		size := humanize.Bytes(uint64(max(e.Size, 0)))
		if e.IsFolder() {
			size = "-"
		}
		modified := ""
		if !e.UpdatedAt.IsZero() {
			modified = e.UpdatedAt.Local().Format("01-02 15:04")
		}

		row := lipgloss.JoinHorizontal(lipgloss.Top,
			cell(2).Render(marker),
			cell(nameW).Render(name),
			cell(sizeW).Render(size),
			cell(kindW).Render(strings.ToUpper(entryCategory(e))),
			cell(modW).Render(modified),
		)

		style := lipgloss.NewStyle().Width(width)
		if m.ctrl.IsSelected(e.FullPath) {
			style = style.Background(lipgloss.Color(theme.ColorSelection)).Bold(true)
		}
		rows = append(rows, style.Render(row))
	}

	return lipgloss.NewStyle().Width(width).Render(strings.Join(rows, "\n"))
}

func (m *FileBrowserModel) renderCount() string {
	items := m.ctrl.Items()
	info := fmt.Sprintf("Total: %d items", len(items))
	if n := len(m.ctrl.Selected()); n > 0 {
		info += fmt.Sprintf(" • %d selected", n)
	}
	if m.opts.Prefs != nil && !m.opts.Prefs.ConfirmDelete() {
		info += " • delete without confirm"
	}
	return theme.CreateSecondaryTextStyle().Render(info)
}

// renderRightPanel shows the context menu when open, otherwise details of
// the cursor entry
func (m *FileBrowserModel) renderRightPanel(width int) string {
	panelStyle := lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder(), false, false, false, true)

	if m.ctrl.MenuOpen() {
		return panelStyle.Render(theme.CreateSectionHeaderStyle().Render("Actions") + "\n" + m.renderMenu())
	}

	var b strings.Builder
	b.WriteString(theme.CreateSectionHeaderStyle().Render("Details"))
	b.WriteString("\n")

	e, ok := m.cursorEntry()
	if !ok {
		b.WriteString(theme.CreateSecondaryTextStyle().Render("Select an entry to view details"))
		return panelStyle.Render(b.String())
	}

	info := theme.CreateInfoTextStyle()
	lines := []string{
		fmt.Sprintf("%s Name: %s", entryIcon(e), e.Name),
		fmt.Sprintf("Path: %s", e.FullPath),
		fmt.Sprintf("Type: %s", entryCategory(e)),
	}
	if !e.IsFolder() {
		lines = append(lines, fmt.Sprintf("Size: %s (%s bytes)", humanize.Bytes(uint64(max(e.Size, 0))), humanize.Comma(e.Size)))
	}
	if !e.CreatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Created: %s", e.CreatedAt.Local().Format("2006-01-02 15:04:05")))
	}
	if !e.UpdatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Modified: %s (%s)", e.UpdatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(e.UpdatedAt)))
	}
	for _, l := range lines {
		b.WriteString(info.Render(truncate(l, max(width-2, 8))))
		b.WriteString("\n")
	}
	if e.IsPreviewable() {
		b.WriteString("\n")
		b.WriteString(theme.CreateSecondaryTextStyle().Render("💡 Press p to preview"))
	}
	return panelStyle.Render(b.String())
}

// renderFloatingDialog centers a dialog on the screen
func (m *FileBrowserModel) renderFloatingDialog(dialog string) string {
	return lipgloss.Place(
		m.windowWidth,
		m.windowHeight,
		lipgloss.Center,
		lipgloss.Center,
		dialog,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("#222222")),
	)
}

// renderDeleteConfirmation renders the delete confirmation dialog
func (m *FileBrowserModel) renderDeleteConfirmation(p explorer.Pending) string {
	content := fmt.Sprintf("%s\n\nThis action cannot be undone!\n\nPress 'y' to confirm, 'n' to cancel", p.Message)
	return theme.CreateDialogStyle(layout.DialogDefaultWidth, theme.ColorBrightRed).Render(content)
}

// renderInputDialog renders the rename and new folder dialogs
func (m *FileBrowserModel) renderInputDialog(p explorer.Pending) string {
	title := "New folder"
	if p.Kind == explorer.ActionRename {
		title = fmt.Sprintf("Rename %s", p.Target.Name)
	}

	var b strings.Builder
	b.WriteString(theme.CreatePromptStyle().Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if p.Reason != nil {
		b.WriteString(theme.CreateErrorStyle().Render(reasonText(p.Reason)))
		b.WriteString("\n\n")
	}
	b.WriteString(theme.CreateSecondaryTextStyle().Render("enter to confirm • esc to cancel"))
	return theme.CreateDialogStyle(layout.DialogDefaultWidth, "").Render(b.String())
}

func (m *FileBrowserModel) renderUploadDialog() string {
	var b strings.Builder
	b.WriteString(theme.CreatePromptStyle().Render(fmt.Sprintf("Upload to %s", m.ctrl.CurrentPath())))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(theme.CreateSecondaryTextStyle().Render("enter to upload • esc to cancel"))
	return theme.CreateDialogStyle(layout.DialogLargeWidth, "").Render(b.String())
}

// renderHelpDialog renders the help dialog using bubbles components
func (m *FileBrowserModel) renderHelpDialog() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.ColorBrightYellow)).
		Render("rbrowse - Help")

	instructions := theme.CreateSecondaryTextStyle().Render("Press ? or esc to close help • Use ↑↓ to scroll")

	return lipgloss.JoinVertical(lipgloss.Left, title, m.helpViewport.View(), instructions)
}

func entryIcon(e model.Entry) string {
	if e.IsFolder() {
		return "📁"
	}
	switch e.Media {
	case model.MediaImage:
		return "🖼️"
	case model.MediaVideo:
		return "🎬"
	case model.MediaAudio:
		return "🎵"
	default:
		return "📄"
	}
}

// entryCategory trusts the backend's media kind and falls back to the name
func entryCategory(e model.Entry) string {
	if !e.IsFolder() && e.Media != model.MediaNone {
		return string(e.Media)
	}
	if c := utils.CategoryOf(e); c != "other" {
		return c
	}
	return "file"
}

func entryColor(e model.Entry) string {
	return theme.GetFileColor(entryCategory(e))
}

// reasonText prefers the short message of a name rejection
func reasonText(err error) string {
	if r := naming.ReasonOf(err); r != 0 {
		return r.Message()
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
