package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/preview"
	layout "github.com/HaiFongPan/rbrowse/internal/tui/config"
	img "github.com/HaiFongPan/rbrowse/internal/tui/image"
	"github.com/HaiFongPan/rbrowse/internal/tui/theme"
)

const previewTimeout = 20 * time.Second

// ImagePreviewModel is a fullscreen modal over the preview cursor
type ImagePreviewModel struct {
	width    int
	height   int
	cursor   *preview.Controller
	src      Previewer
	renderer *img.Renderer

	entry    model.Entry
	seq      int
	loading  bool
	rendered *img.Rendered
	err      error

	// spinner for loading line
	spin spinner.Model
}

type (
	previewLoadedMsg struct {
		seq      int
		rendered *img.Rendered
		err      error
	}
	modalClosedMsg struct{}
)

func NewImagePreviewModel(cursor *preview.Controller, src Previewer, renderer *img.Renderer, width, height int) *ImagePreviewModel {
	s := spinner.New()
	s.Spinner = spinner.Line
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.ColorBrightYellow))

	m := &ImagePreviewModel{
		width:    width,
		height:   height,
		cursor:   cursor,
		src:      src,
		renderer: renderer,
		spin:     s,
	}
	m.entry, _ = cursor.Current()
	return m
}

func (m *ImagePreviewModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spin.Tick)
}

// load fetches and renders the current entry. Results for an entry the user
// already moved past are dropped by seq.
func (m *ImagePreviewModel) load() tea.Cmd {
	m.seq++
	m.loading = true
	m.err = nil
	m.rendered = nil

	seq := m.seq
	entry := m.entry
	cols := max(1, m.width-4)
	rows := max(1, m.height-layout.PreviewHeaderLines-2)
	// half blocks cannot use more than a thumbnail
	thumbnail := m.renderer.Protocol == img.ProtocolANSI
	src, renderer := m.src, m.renderer

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
		defer cancel()

		body, err := src.Preview(ctx, entry.FullPath, thumbnail)
		if err != nil {
			return previewLoadedMsg{seq: seq, err: err}
		}
		defer body.Close()

		data, err := io.ReadAll(body)
		if err != nil {
			return previewLoadedMsg{seq: seq, err: fmt.Errorf("failed to read preview: %w", err)}
		}
		rendered, err := renderer.Render(data, cols, rows)
		return previewLoadedMsg{seq: seq, rendered: rendered, err: err}
	}
}

// Sync closes the modal once the listing has no images left
func (m *ImagePreviewModel) Sync() tea.Cmd {
	if _, visible := m.cursor.Current(); !visible {
		return m.close()
	}
	if m.cursor.Count() == 0 {
		m.cursor.Close()
		return m.close()
	}
	return nil
}

func (m *ImagePreviewModel) close() tea.Cmd {
	wipe := m.renderer.Clear()
	return func() tea.Msg {
		if wipe != "" {
			fmt.Print(wipe)
		}
		return modalClosedMsg{}
	}
}

func (m *ImagePreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.load()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "p", "P":
			m.cursor.Close()
			return m, m.close()
		}
		if !m.cursor.HandleKey(msg.String()) {
			return m, nil
		}
		current, visible := m.cursor.Current()
		if !visible {
			return m, m.close()
		}
		if current.FullPath == m.entry.FullPath {
			return m, nil
		}
		m.entry = current
		return m, tea.Batch(m.load(), m.spin.Tick)

	case previewLoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		m.rendered = msg.rendered
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *ImagePreviewModel) View() string {
	center := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center)

	nameLine := center.
		Bold(true).
		Foreground(lipgloss.Color(theme.ColorBrightCyan)).
		Render("🖼 " + m.entry.Name)

	var statusText string
	switch {
	case m.loading:
		statusText = fmt.Sprintf("%s Loading image preview…", m.spin.View())
	case m.err != nil:
		statusText = theme.CreateErrorStyle().Render(fmt.Sprintf("Failed to render: %v", m.err))
	case m.rendered != nil:
		statusText = fmt.Sprintf("%dx%d  •  %s  •  %d/%d",
			m.rendered.Width, m.rendered.Height,
			humanize.Bytes(uint64(max(m.entry.Size, 0))),
			m.cursor.Index()+1, m.cursor.Count())
	}
	statusLine := center.Render(statusText)

	hint := center.
		Foreground(lipgloss.Color(theme.ColorBrightBlack)).
		Render("←/→ previous/next • esc/q to close")

	var b strings.Builder
	b.WriteString(nameLine)
	b.WriteString("\n")
	b.WriteString(statusLine)
	b.WriteString("\n")
	b.WriteString(hint)
	b.WriteString("\n")

	if m.loading || m.err != nil || m.rendered == nil {
		return b.String()
	}

	separator := center.
		Foreground(lipgloss.Color(theme.ColorBrightBlue)).
		Bold(true).
		Render("─────────────────── 🖼 ───────────────────")
	b.WriteString(separator)
	b.WriteString("\n")

	if m.renderer.Protocol == img.ProtocolANSI {
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.rendered.Data))
		return b.String()
	}

	// graphics protocols draw at the cursor, so move it below the header
	cols := min(max(m.rendered.Cols, 1), m.width)
	col := 1 + (m.width-cols)/2
	row := layout.PreviewHeaderLines + 2
	fmt.Fprintf(&b, "\x1b[%d;%dH%s\x1b[0m", row, col, m.rendered.Data)
	return b.String()
}
