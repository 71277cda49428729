package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/explorer"
	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/preview"
	"github.com/HaiFongPan/rbrowse/internal/selection"
	layout "github.com/HaiFongPan/rbrowse/internal/tui/config"
	img "github.com/HaiFongPan/rbrowse/internal/tui/image"
	"github.com/HaiFongPan/rbrowse/internal/tui/messaging"
	"github.com/HaiFongPan/rbrowse/internal/tui/theme"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

// KeyMap defines keybindings for the file browser
type KeyMap struct {
	Up            key.Binding
	Down          key.Binding
	ExtendUp      key.Binding
	ExtendDown    key.Binding
	Toggle        key.Binding
	Home          key.Binding
	End           key.Binding
	Open          key.Binding
	Back          key.Binding
	Refresh       key.Binding
	Delete        key.Binding
	Rename        key.Binding
	NewFolder     key.Binding
	Upload        key.Binding
	Download      key.Binding
	Preview       key.Binding
	CopyPath      key.Binding
	Breadcrumb    key.Binding
	ToggleConfirm key.Binding
	Menu          key.Binding
	Help          key.Binding
	Quit          key.Binding
	Confirm       key.Binding
	Cancel        key.Binding
}

// DefaultKeyMap returns default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		ExtendUp: key.NewBinding(
			key.WithKeys("shift+up", "K"),
			key.WithHelp("shift+↑", "extend selection up"),
		),
		ExtendDown: key.NewBinding(
			key.WithKeys("shift+down", "J"),
			key.WithHelp("shift+↓", "extend selection down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle selection"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "go to start"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "go to end"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "left"),
			key.WithHelp("⌫/←", "parent folder"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r/f5", "refresh"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x/del", "delete"),
		),
		Rename: key.NewBinding(
			key.WithKeys("R", "f2"),
			key.WithHelp("R/f2", "rename"),
		),
		NewFolder: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new folder"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload"),
		),
		Download: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "download"),
		),
		Preview: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "preview image"),
		),
		CopyPath: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy path"),
		),
		Breadcrumb: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "jump to folder"),
		),
		ToggleConfirm: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle delete confirm"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "actions menu"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "yes"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n/esc", "no"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Back, k.Delete, k.Menu, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.ExtendUp, k.ExtendDown, k.Toggle, k.Home, k.End},
		{k.Open, k.Back, k.Breadcrumb, k.Refresh, k.Preview, k.CopyPath},
		{k.Rename, k.NewFolder, k.Delete, k.Upload, k.Download},
		{k.Menu, k.ToggleConfirm, k.Help, k.Quit},
	}
}

// Previewer fetches image bytes for the preview modal
type Previewer interface {
	Preview(ctx context.Context, entryPath string, thumbnail bool) (io.ReadCloser, error)
}

// Preferences are the user settings the browser reads and toggles
type Preferences interface {
	explorer.Settings
	ToggleConfirmDelete() (bool, error)
	SetLastPath(p string) error
}

// Options configures a FileBrowserModel
type Options struct {
	Title     string
	Root      string
	StartPath string
	Timeout   time.Duration
	Prefs     Preferences
	Saver     explorer.Saver
	Previewer Previewer
	Renderer  *img.Renderer
}

// FileBrowserModel is the interactive browser over an explorer.Controller
type FileBrowserModel struct {
	ctrl    *explorer.Controller
	preview *preview.Controller
	opts    Options
	status  *messaging.StatusManagerImpl

	ctx    context.Context
	cancel context.CancelFunc
	send   func(tea.Msg)
	now    func() time.Time
	copyFn func(string) error

	cursor         int
	offset         int
	windowWidth    int
	windowHeight   int
	viewportHeight int

	showHelp    bool
	menuIndex   int
	inputFor    explorer.ActionKind
	uploading   bool
	lastClickAt time.Time
	lastClickIx int

	picker *BreadcrumbPickerModel
	modal  *ImagePreviewModel

	input        textinput.Model
	keyMap       KeyMap
	help         help.Model
	spinner      spinner.Model
	helpViewport viewport.Model
}

// NewFileBrowserModel builds the controller over dir and the model around it
func NewFileBrowserModel(dir explorer.Directory, opts Options) *FileBrowserModel {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Root == "" {
		opts.Root = model.RootPath
	}
	if opts.Renderer == nil {
		opts.Renderer = img.NewRenderer("auto")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &FileBrowserModel{
		opts:           opts,
		status:         messaging.NewStatusManager(),
		ctx:            ctx,
		cancel:         cancel,
		now:            time.Now,
		copyFn:         utils.CopyToClipboard,
		lastClickIx:    -1,
		windowWidth:    80,
		windowHeight:   24,
		viewportHeight: 24 - layout.ListTopOffset - layout.ListBottomReserve,
		keyMap:         DefaultKeyMap(),
	}

	notifier := &messaging.Notifier{Status: m.status, Wake: func() { m.post(statusChangedMsg{}) }}
	ctrlOpts := []explorer.Option{
		explorer.WithNotifier(notifier),
		explorer.WithRoot(opts.Root),
		explorer.WithFileOpener(func(e model.Entry) { m.post(openFileMsg{entry: e}) }),
		explorer.WithLoadingObserver(func(bool) { m.post(statusChangedMsg{}) }),
	}
	if opts.Prefs != nil {
		ctrlOpts = append(ctrlOpts, explorer.WithSettings(opts.Prefs))
	}
	if opts.Saver != nil {
		ctrlOpts = append(ctrlOpts, explorer.WithSaver(opts.Saver))
	}
	m.ctrl = explorer.New(dir, ctrlOpts...)
	m.preview = preview.New(m.ctrl)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.CreateLoadingStyle()
	m.spinner = s

	m.help = help.New()

	ti := textinput.New()
	ti.CharLimit = 255
	ti.Width = layout.DialogDefaultWidth - 8
	m.input = ti

	vp := viewport.New(60, 15)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.ColorBrightYellow)).
		Padding(1, 2)
	m.helpViewport = vp

	return m
}

// SetProgram lets background operations wake the program
func (m *FileBrowserModel) SetProgram(p *tea.Program) {
	m.send = p.Send
}

// Controller exposes the underlying explorer controller
func (m *FileBrowserModel) Controller() *explorer.Controller {
	return m.ctrl
}

// post delivers msg without blocking the caller. Callbacks may fire while
// the program is inside Update.
func (m *FileBrowserModel) post(msg tea.Msg) {
	if send := m.send; send != nil {
		go send(msg)
	}
}

// Messages for tea.Cmd communication
type (
	opDoneMsg struct {
		op  string
		err error
	}
	statusChangedMsg struct{}
	openFileMsg      struct{ entry model.Entry }
)

// Init implements the bubbletea.Model interface
func (m *FileBrowserModel) Init() tea.Cmd {
	return tea.Batch(m.restore(), m.spinner.Tick)
}

// restore lists the root, then walks back down to the last visited folder
func (m *FileBrowserModel) restore() tea.Cmd {
	target := m.opts.StartPath
	root := m.opts.Root
	return m.run("list", func(ctx context.Context) error {
		if err := m.ctrl.Refresh(ctx); err != nil {
			return err
		}
		if target == "" || target == root || !strings.HasPrefix(target, root+"/") {
			return nil
		}

		parts := strings.Split(strings.TrimPrefix(target, root+"/"), "/")
		current := root
		for i, name := range parts {
			current = model.Join(current, name)
			entry := model.Entry{Name: name, Kind: model.KindFolder, FullPath: current}
			if err := m.ctrl.EnterFolder(ctx, entry, i+1); err != nil {
				logrus.Warnf("tui: could not restore %s: %v", target, err)
				return m.ctrl.JumpTo(ctx, i)
			}
		}
		return nil
	})
}

func (m *FileBrowserModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.opts.Timeout)
		defer cancel()
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// Update implements the bubbletea.Model interface
func (m *FileBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.viewportHeight = max(1, msg.Height-layout.ListTopOffset-layout.ListBottomReserve)
		m.help.Width = msg.Width
		m.helpViewport.Width = min(60, msg.Width-10)
		m.helpViewport.Height = min(15, msg.Height-10)
		m.adjustViewport()
		var cmd tea.Cmd
		if m.modal != nil {
			_, cmd = m.modal.Update(msg)
		}
		if m.picker != nil {
			m.picker.Update(msg)
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.modal != nil || m.picker != nil || m.showHelp || m.uploading {
			return m, nil
		}
		if _, pending := m.ctrl.Pending(); pending {
			return m, nil
		}
		return m.handleMouse(msg)

	case opDoneMsg:
		return m, m.handleOpDone(msg)

	case openFileMsg:
		return m, m.openPreview(msg.entry)

	case modalClosedMsg:
		m.modal = nil
		m.preview.Close()
		return m, nil

	case pickerChosenMsg:
		m.picker = nil
		return m, m.jump(msg)

	case pickerClosedMsg:
		m.picker = nil
		return m, nil

	case previewLoadedMsg:
		if m.modal != nil {
			_, cmd := m.modal.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.modal != nil {
			_, modalCmd := m.modal.Update(msg)
			cmd = tea.Batch(cmd, modalCmd)
		}
		return m, cmd

	case statusChangedMsg:
		return m, nil
	}

	if m.inputActive() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *FileBrowserModel) handleOpDone(msg opDoneMsg) tea.Cmd {
	m.clampCursor()

	// a dialog that closed in the background drops its input
	if m.inputFor != 0 {
		if p, ok := m.ctrl.Pending(); !ok || p.Kind != m.inputFor {
			m.stopInput()
		}
	}

	err := msg.err
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
	case errors.Is(err, explorer.ErrAtRoot):
		m.status.SetMessage("Already at the root folder", messaging.MessageInfo)
	case errors.Is(err, explorer.ErrNothingSelected):
		m.status.SetMessage("Nothing selected", messaging.MessageWarning)
	case errors.Is(err, explorer.ErrNoSaver):
		m.status.SetMessage("No download directory configured", messaging.MessageWarning)
	case explorer.IsValidation(err):
		// rename and create-folder show the reason in their dialog
		if msg.op == "upload" {
			m.status.SetMessage(err.Error(), messaging.MessageWarning)
		}
	default:
		logrus.Debugf("tui: %s failed: %v", msg.op, err)
	}

	if m.modal != nil {
		return m.modal.Sync()
	}
	return nil
}

func (m *FileBrowserModel) inputActive() bool {
	return m.inputFor != 0 || m.uploading
}

func (m *FileBrowserModel) startInput(kind explorer.ActionKind, value, placeholder string) tea.Cmd {
	m.inputFor = kind
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *FileBrowserModel) stopInput() {
	m.inputFor = 0
	m.uploading = false
	m.input.Blur()
	m.input.SetValue("")
}

func (m *FileBrowserModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	if m.modal != nil {
		_, cmd := m.modal.Update(msg)
		return m, cmd
	}
	if m.picker != nil {
		_, cmd := m.picker.Update(msg)
		return m, cmd
	}
	if m.showHelp {
		return m.handleHelpKey(msg)
	}
	if m.uploading {
		return m.handleUploadKey(msg)
	}
	if p, ok := m.ctrl.Pending(); ok {
		return m.handlePendingKey(msg, p)
	}
	if m.ctrl.MenuOpen() {
		return m.handleMenuKey(msg)
	}
	return m.handleNavigation(msg)
}

func (m *FileBrowserModel) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q":
		m.showHelp = false
		return m, nil
	}
	var cmd tea.Cmd
	m.helpViewport, cmd = m.helpViewport.Update(msg)
	return m, cmd
}

// handlePendingKey drives the rename, new-folder and delete dialogs
func (m *FileBrowserModel) handlePendingKey(msg tea.KeyMsg, p explorer.Pending) (tea.Model, tea.Cmd) {
	if !p.NeedsInput() {
		switch {
		case key.Matches(msg, m.keyMap.Confirm):
			return m, m.run("delete", func(ctx context.Context) error {
				return m.ctrl.Accept(ctx, "")
			})
		case key.Matches(msg, m.keyMap.Cancel):
			m.ctrl.Cancel()
		}
		return m, nil
	}

	if m.inputFor != p.Kind {
		// dialog opened outside this model, e.g. from the menu
		m.startInput(p.Kind, p.Input, "")
	}

	switch msg.String() {
	case "esc":
		m.ctrl.Cancel()
		m.stopInput()
		return m, nil
	case "enter":
		value := m.input.Value()
		return m, m.run(p.Kind.String(), func(ctx context.Context) error {
			return m.ctrl.Accept(ctx, value)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *FileBrowserModel) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopInput()
		return m, nil
	case "enter":
		paths := splitPaths(m.input.Value())
		m.stopInput()
		if len(paths) == 0 {
			return m, nil
		}
		m.status.SetMessage(fmt.Sprintf("Uploading %d file(s)...", len(paths)), messaging.MessageInfo)
		return m, m.run("upload", func(ctx context.Context) error {
			return m.uploadPaths(ctx, paths)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// uploadPaths opens local files and hands them to the controller
func (m *FileBrowserModel) uploadPaths(ctx context.Context, paths []string) error {
	files, closeAll, err := openUploads(paths)
	if err != nil {
		m.status.SetMessage(err.Error(), messaging.MessageError)
		return err
	}
	defer closeAll()
	return m.ctrl.Upload(ctx, files)
}

func openUploads(paths []string) ([]model.UploadFile, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]model.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		opened = append(opened, f)

		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", p)
		}
		files = append(files, model.UploadFile{Name: filepath.Base(p), Size: info.Size(), Body: f})
	}
	return files, closeAll, nil
}

// splitPaths takes comma separated local paths; names may contain spaces
func splitPaths(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p != "" {
			out = append(out, utils.ExpandHome(p))
		}
	}
	return out
}

func (m *FileBrowserModel) handleNavigation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.ctrl.Items()

	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keyMap.Up):
		m.moveCursor(-1, selection.Modifiers{})
	case key.Matches(msg, m.keyMap.Down):
		m.moveCursor(1, selection.Modifiers{})
	case key.Matches(msg, m.keyMap.ExtendUp):
		m.moveCursor(-1, selection.Modifiers{Shift: true})
	case key.Matches(msg, m.keyMap.ExtendDown):
		m.moveCursor(1, selection.Modifiers{Shift: true})
	case key.Matches(msg, m.keyMap.Home):
		m.moveCursor(-len(items), selection.Modifiers{})
	case key.Matches(msg, m.keyMap.End):
		m.moveCursor(len(items), selection.Modifiers{})

	case key.Matches(msg, m.keyMap.Toggle):
		m.dispatch(selection.Action{Kind: selection.Activate, Index: m.cursor, Mods: selection.Modifiers{Ctrl: true}})

	case key.Matches(msg, m.keyMap.Open):
		if len(items) > 0 {
			return m, m.activate(m.cursor)
		}

	case key.Matches(msg, m.keyMap.Back):
		return m, m.run("up", m.ctrl.NavigateUp)

	case key.Matches(msg, m.keyMap.Refresh):
		return m, m.run("list", m.ctrl.Refresh)

	case key.Matches(msg, m.keyMap.Delete):
		m.ensureSelection()
		return m, m.run("delete", m.ctrl.DeleteSelected)

	case key.Matches(msg, m.keyMap.Rename):
		return m, m.beginRename()

	case key.Matches(msg, m.keyMap.NewFolder):
		m.ctrl.BeginCreateFolder()
		return m, m.startInput(explorer.ActionCreateFolder, "", "folder name")

	case key.Matches(msg, m.keyMap.Upload):
		m.uploading = true
		m.input.Placeholder = "local paths, comma separated"
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keyMap.Download):
		m.ensureSelection()
		return m, m.download()

	case key.Matches(msg, m.keyMap.Preview):
		if e, ok := m.cursorEntry(); ok {
			return m, m.openPreview(e)
		}

	case key.Matches(msg, m.keyMap.CopyPath):
		m.copyPath()

	case key.Matches(msg, m.keyMap.Breadcrumb):
		m.picker = NewBreadcrumbPickerModel(m.ctrl.Breadcrumb(), m.windowWidth, m.windowHeight)

	case key.Matches(msg, m.keyMap.ToggleConfirm):
		m.toggleConfirm()

	case key.Matches(msg, m.keyMap.Menu):
		if len(items) > 0 {
			m.dispatch(selection.Action{Kind: selection.ContextRequest, Index: m.cursor})
			m.menuIndex = 0
		}

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = true
		m.setupHelpViewport()
	}

	return m, nil
}

func (m *FileBrowserModel) quit() tea.Cmd {
	if m.opts.Prefs != nil {
		if err := m.opts.Prefs.SetLastPath(m.ctrl.CurrentPath()); err != nil {
			logrus.Warnf("tui: failed to save last path: %v", err)
		}
	}
	m.cancel()
	return tea.Quit
}

// moveCursor moves by delta and selects the new row like a click would
func (m *FileBrowserModel) moveCursor(delta int, mods selection.Modifiers) {
	n := len(m.ctrl.Items())
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.adjustViewport()
	m.dispatch(selection.Action{Kind: selection.Activate, Index: m.cursor, Mods: mods})
}

// dispatch applies a selection-only action; those never do I/O
func (m *FileBrowserModel) dispatch(action selection.Action) {
	if err := m.ctrl.Dispatch(m.ctx, action); err != nil {
		logrus.Debugf("tui: dispatch: %v", err)
	}
}

// activate opens the entry at index: folders are entered, images previewed
func (m *FileBrowserModel) activate(index int) tea.Cmd {
	m.cursor = index
	return m.run("open", func(ctx context.Context) error {
		return m.ctrl.Dispatch(ctx, selection.Action{Kind: selection.DoubleActivate, Index: index})
	})
}

// ensureSelection selects the cursor row when nothing is selected
func (m *FileBrowserModel) ensureSelection() {
	if len(m.ctrl.Selected()) == 0 && len(m.ctrl.Items()) > 0 {
		m.dispatch(selection.Action{Kind: selection.Activate, Index: m.cursor})
	}
}

func (m *FileBrowserModel) cursorEntry() (model.Entry, bool) {
	items := m.ctrl.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return model.Entry{}, false
	}
	return items[m.cursor], true
}

// targetEntry is the single entry an action applies to: the only selected
// entry, or the cursor row
func (m *FileBrowserModel) targetEntry() (model.Entry, bool) {
	if sel := m.ctrl.Selected(); len(sel) == 1 {
		return sel[0], true
	}
	return m.cursorEntry()
}

func (m *FileBrowserModel) beginRename() tea.Cmd {
	e, ok := m.targetEntry()
	if !ok {
		return nil
	}
	if err := m.ctrl.BeginRename(e); err != nil {
		m.status.SetMessage(err.Error(), messaging.MessageWarning)
		return nil
	}
	return m.startInput(explorer.ActionRename, e.Name, "new name")
}

func (m *FileBrowserModel) download() tea.Cmd {
	m.status.SetMessage("Preparing download...", messaging.MessageInfo)
	return m.run("download", func(ctx context.Context) error {
		_, err := m.ctrl.DownloadSelected(ctx)
		return err
	})
}

func (m *FileBrowserModel) copyPath() {
	e, ok := m.targetEntry()
	if !ok {
		return
	}
	if err := m.copyFn(e.FullPath); err != nil {
		m.status.SetMessage(fmt.Sprintf("Copy failed: %v", err), messaging.MessageError)
		return
	}
	m.status.SetMessage(fmt.Sprintf("Copied %s", e.FullPath), messaging.MessageSuccess)
}

func (m *FileBrowserModel) toggleConfirm() {
	if m.opts.Prefs == nil {
		return
	}
	on, err := m.opts.Prefs.ToggleConfirmDelete()
	if err != nil {
		m.status.SetMessage(fmt.Sprintf("Failed to save setting: %v", err), messaging.MessageError)
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	m.status.SetMessage("Confirm before delete: "+state, messaging.MessageInfo)
}

func (m *FileBrowserModel) openPreview(e model.Entry) tea.Cmd {
	if !e.IsPreviewable() {
		m.status.SetMessage(fmt.Sprintf("No preview for %s", e.Name), messaging.MessageInfo)
		return nil
	}
	if m.opts.Previewer == nil {
		m.status.SetMessage("Preview is not available for this backend", messaging.MessageWarning)
		return nil
	}
	if err := m.preview.Open(e); err != nil {
		m.status.SetMessage(err.Error(), messaging.MessageWarning)
		return nil
	}
	m.modal = NewImagePreviewModel(m.preview, m.opts.Previewer, m.opts.Renderer, m.windowWidth, m.windowHeight)
	return m.modal.Init()
}

// jump applies a breadcrumb picker choice
func (m *FileBrowserModel) jump(choice pickerChosenMsg) tea.Cmd {
	if choice.shortcut == nil {
		return m.run("jump", func(ctx context.Context) error {
			return m.ctrl.JumpTo(ctx, choice.level)
		})
	}
	entry := model.Entry{Name: choice.shortcut.Label, Kind: model.KindFolder, FullPath: choice.shortcut.FullPath}
	return m.run("jump", func(ctx context.Context) error {
		return m.ctrl.EnterFolder(ctx, entry, choice.level+1)
	})
}

func (m *FileBrowserModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.moveCursor(-1, selection.Modifiers{})
		return m, nil
	case tea.MouseButtonWheelDown:
		m.moveCursor(1, selection.Modifiers{})
		return m, nil
	}

	// breadcrumb line
	if msg.Y == 1 && msg.Button == tea.MouseButtonLeft {
		if level := crumbAt(m.ctrl.Breadcrumb(), msg.X); level >= 0 {
			return m, m.jump(pickerChosenMsg{level: level})
		}
		return m, nil
	}

	index := msg.Y - layout.ListTopOffset + m.offset
	if msg.Y < layout.ListTopOffset || index >= len(m.ctrl.Items()) {
		m.ctrl.CloseMenu()
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonRight:
		m.cursor = index
		m.menuIndex = 0
		m.dispatch(selection.Action{Kind: selection.ContextRequest, Index: index})

	case tea.MouseButtonLeft:
		now := m.now()
		mods := selection.Modifiers{Ctrl: msg.Ctrl || msg.Alt, Shift: msg.Shift}
		double := index == m.lastClickIx &&
			mods == (selection.Modifiers{}) &&
			now.Sub(m.lastClickAt) <= layout.DoubleClickMillis*time.Millisecond
		m.lastClickAt = now
		m.lastClickIx = index
		if double {
			m.lastClickIx = -1
			return m, m.activate(index)
		}
		m.cursor = index
		m.dispatch(selection.Action{Kind: selection.Activate, Index: index, Mods: mods})
	}
	return m, nil
}

// clampCursor keeps the cursor on a listed row after the listing changed
func (m *FileBrowserModel) clampCursor() {
	n := len(m.ctrl.Items())
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.adjustViewport()
}

// adjustViewport adjusts the viewport to show the cursor
func (m *FileBrowserModel) adjustViewport() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+m.viewportHeight {
		m.offset = m.cursor - m.viewportHeight + 1
	}
}

// setupHelpViewport sets up the help viewport with content
func (m *FileBrowserModel) setupHelpViewport() {
	m.helpViewport.SetContent(m.help.FullHelpView(m.keyMap.FullHelp()))
}
