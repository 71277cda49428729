// Package explorer holds the browsing state machine: breadcrumb navigation,
// the listing of the current directory, multi-selection and the
// confirm/refresh protocol around mutating operations.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/selection"
)

var (
	// ErrAtRoot is returned when navigating up from the root directory
	ErrAtRoot = errors.New("already at root directory")
	// ErrNothingSelected is returned by operations that need a selection
	ErrNothingSelected = errors.New("no entries selected")
	// ErrNoPending is returned by Accept when nothing awaits confirmation
	ErrNoPending = errors.New("no action awaiting confirmation")
	// ErrNoSaver is returned by downloads when no Saver was configured
	ErrNoSaver = errors.New("no download target configured")
	// ErrNotListed is returned for entries missing from the current listing
	ErrNotListed = errors.New("entry is not in the current listing")
)

// Directory is the remote file API the controller drives
type Directory interface {
	List(ctx context.Context, dirPath string) ([]model.Entry, error)
	Rename(ctx context.Context, entryPath, newFullPath string) error
	DeleteMany(ctx context.Context, dirPath string, entryPaths []string) error
	CreateFolder(ctx context.Context, dirPath, name string) error
	Upload(ctx context.Context, dirPath string, files []model.UploadFile) error
	Archive(ctx context.Context, dirPath string, entryPaths []string) (string, error)
	FetchArchive(ctx context.Context, archiveID string) (io.ReadCloser, error)
	DeleteArchive(ctx context.Context, archiveID string) error
}

// Level is the severity of a notification
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notification is a dismissible message for the user
type Notification struct {
	Level   Level
	Summary string
	Detail  string
}

// Notifier shows transient notifications
type Notifier interface {
	Notify(n Notification)
}

// Settings exposes user preferences the controller consults
type Settings interface {
	ConfirmDelete() bool
}

// Saver hands a downloaded stream to the user (the download trigger)
type Saver interface {
	Save(name string, body io.Reader) (string, error)
}

// State is the coarse state of the controller
type State int

const (
	StateIdle State = iota
	StateLoading
	StateConfirmPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateConfirmPending:
		return "confirm-pending"
	default:
		return "unknown"
	}
}

// Shortcut is a navigable sub-folder of a breadcrumb level
type Shortcut struct {
	Label    string
	FullPath string
}

// Breadcrumb is one directory level of the navigation stack
type Breadcrumb struct {
	model.Entry
	Children []Shortcut
}

// Option configures a Controller
type Option func(*Controller)

// WithNotifier sets the notification sink
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithSettings sets the preferences source
func WithSettings(s Settings) Option {
	return func(c *Controller) { c.settings = s }
}

// WithSaver sets the download target
func WithSaver(s Saver) Option {
	return func(c *Controller) { c.saver = s }
}

// WithFileOpener sets the callback for double-activated files
func WithFileOpener(fn func(model.Entry)) Option {
	return func(c *Controller) { c.openFile = fn }
}

// WithLoadingObserver is told when the controller starts or stops loading.
// The callback runs outside any lock; edges from racing operations may arrive
// out of order, so it should re-read Loading rather than trust the argument.
func WithLoadingObserver(fn func(loading bool)) Option {
	return func(c *Controller) { c.onLoading = fn }
}

// WithRoot overrides the fixed root directory
func WithRoot(path string) Option {
	return func(c *Controller) { c.rootPath = path }
}

// Controller owns the breadcrumb stack, the listing and the selection.
// All methods are safe for concurrent use; network calls run without holding
// the state lock.
type Controller struct {
	dir       Directory
	notifier  Notifier
	settings  Settings
	saver     Saver
	openFile  func(model.Entry)
	onLoading func(bool)
	rootPath  string

	gate     *Gate
	cleanups sync.WaitGroup

	mu         sync.Mutex
	breadcrumb []Breadcrumb
	items      []model.Entry
	sel        selection.State
	pending    *Pending
	pendingSeq uint64
	generation uint64
}

// New creates a controller in the Idle state with breadcrumb [root]
func New(dir Directory, opts ...Option) *Controller {
	c := &Controller{
		dir:      dir,
		notifier: nopNotifier{},
		settings: defaultSettings{},
		rootPath: model.RootPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.gate = NewGate(c.onLoading)

	root := model.Entry{Name: model.Base(c.rootPath), Kind: model.KindFolder, FullPath: c.rootPath}
	c.breadcrumb = []Breadcrumb{{Entry: root}}
	return c
}

// State reports ConfirmPending before Loading before Idle
func (c *Controller) State() State {
	c.mu.Lock()
	pending := c.pending != nil
	c.mu.Unlock()

	switch {
	case pending:
		return StateConfirmPending
	case c.gate.Loading():
		return StateLoading
	default:
		return StateIdle
	}
}

// Loading reports whether any operation is in flight
func (c *Controller) Loading() bool {
	return c.gate.Loading()
}

// CurrentPath is the full path of the top breadcrumb
func (c *Controller) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPathLocked()
}

func (c *Controller) currentPathLocked() string {
	return c.breadcrumb[len(c.breadcrumb)-1].FullPath
}

// Breadcrumb returns a copy of the navigation stack, root first
func (c *Controller) Breadcrumb() []Breadcrumb {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Breadcrumb, len(c.breadcrumb))
	for i, b := range c.breadcrumb {
		out[i] = Breadcrumb{Entry: b.Entry, Children: append([]Shortcut(nil), b.Children...)}
	}
	return out
}

// Items returns a copy of the current listing
func (c *Controller) Items() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Entry(nil), c.items...)
}

// Selected returns the selected entries in listing order
func (c *Controller) Selected() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedLocked()
}

func (c *Controller) selectedLocked() []model.Entry {
	out := make([]model.Entry, 0, c.sel.Len())
	for _, e := range c.items {
		if c.sel.Contains(e.FullPath) {
			out = append(out, e)
		}
	}
	return out
}

// IsSelected reports whether the entry with fullPath is selected
func (c *Controller) IsSelected(fullPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.Contains(fullPath)
}

// MenuOpen reports whether the context menu is showing
func (c *Controller) MenuOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.MenuOpen
}

// CloseMenu dismisses the context menu without touching the selection
func (c *Controller) CloseMenu() {
	c.mu.Lock()
	c.sel = c.sel.CloseMenu()
	c.mu.Unlock()
}

// ClearSelection empties the selection
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.sel = c.sel.Clear()
	c.mu.Unlock()
}

// Dispatch applies a selection action. DoubleActivate opens the entry: a
// folder is navigated into, a file is handed to the file opener.
func (c *Controller) Dispatch(ctx context.Context, action selection.Action) error {
	c.mu.Lock()
	if action.Index < 0 || action.Index >= len(c.items) {
		c.mu.Unlock()
		return fmt.Errorf("dispatch %s: index %d: %w", action.Kind, action.Index, ErrNotListed)
	}
	entry := c.items[action.Index]
	c.sel = selection.Reduce(c.sel, model.Paths(c.items), action)
	c.mu.Unlock()

	if action.Kind != selection.DoubleActivate {
		return nil
	}
	if entry.IsFolder() {
		return c.NavigateInto(ctx, entry)
	}
	if c.openFile != nil {
		c.openFile(entry)
	}
	return nil
}

// NavigateInto pushes entry onto the breadcrumb stack and lists it
func (c *Controller) NavigateInto(ctx context.Context, entry model.Entry) error {
	c.mu.Lock()
	level := len(c.breadcrumb)
	c.mu.Unlock()
	return c.EnterFolder(ctx, entry, level)
}

// EnterFolder truncates the stack to level entries and pushes entry. It is a
// no-op when entry already is the current directory at that level.
func (c *Controller) EnterFolder(ctx context.Context, entry model.Entry, level int) error {
	if !entry.IsFolder() {
		return fmt.Errorf("enter %s: not a folder", entry.FullPath)
	}

	c.mu.Lock()
	if level < 1 {
		level = 1
	}
	if level > len(c.breadcrumb) {
		level = len(c.breadcrumb)
	}
	if level == len(c.breadcrumb)-1 && c.breadcrumb[level].FullPath == entry.FullPath {
		c.mu.Unlock()
		return nil
	}
	c.breadcrumb = append(c.breadcrumb[:level:level], Breadcrumb{Entry: entry})
	c.directoryChangedLocked()
	c.mu.Unlock()

	logrus.Debugf("explorer: entered %s at level %d", entry.FullPath, level)
	return c.Refresh(ctx)
}

// JumpTo truncates the stack so that breadcrumb index becomes current
func (c *Controller) JumpTo(ctx context.Context, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.breadcrumb) {
		c.mu.Unlock()
		return fmt.Errorf("jump to breadcrumb %d: out of range", index)
	}
	if index < len(c.breadcrumb)-1 {
		c.breadcrumb = c.breadcrumb[:index+1]
		c.directoryChangedLocked()
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// NavigateUp pops the top breadcrumb and lists the parent. The root is never
// popped.
func (c *Controller) NavigateUp(ctx context.Context) error {
	c.mu.Lock()
	if len(c.breadcrumb) <= 1 {
		c.mu.Unlock()
		return ErrAtRoot
	}
	c.breadcrumb = c.breadcrumb[:len(c.breadcrumb)-1]
	c.directoryChangedLocked()
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// directoryChangedLocked invalidates state tied to the previous directory
func (c *Controller) directoryChangedLocked() {
	c.sel = c.sel.Clear()
	c.pending = nil
	// a list call still in flight for the old directory must not win
	c.generation++
}

// Refresh re-lists the current directory. A response that arrives after a
// newer navigation or refresh started is discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	path := c.currentPathLocked()
	c.mu.Unlock()

	release := c.gate.Acquire()
	defer release()

	raw, err := c.dir.List(ctx, path)
	if err != nil {
		c.mu.Lock()
		stale := gen != c.generation
		c.mu.Unlock()
		if stale {
			logrus.WithField("path", path).Debugf("explorer: dropped stale list failure: %v", err)
			return nil
		}

		logrus.WithField("path", path).Errorf("explorer: list failed: %v", err)
		c.notifier.Notify(Notification{
			Level:   LevelError,
			Summary: "Error",
			Detail:  describe(err, "Failed to load folder list."),
		})
		return fmt.Errorf("list %s: %w", path, err)
	}

	entries := model.Normalize(path, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		logrus.Debugf("explorer: dropping stale listing of %s", path)
		return nil
	}

	c.items = entries
	top := &c.breadcrumb[len(c.breadcrumb)-1]
	top.Children = top.Children[:0]
	for _, e := range entries {
		if e.IsFolder() {
			top.Children = append(top.Children, Shortcut{Label: e.Name, FullPath: e.FullPath})
		}
	}
	c.sel = c.sel.Clear()

	logrus.Debugf("explorer: listed %s (%d entries)", path, len(entries))
	return nil
}

// entryLocked finds a listed entry by full path
func (c *Controller) entryLocked(fullPath string) (int, bool) {
	for i, e := range c.items {
		if e.FullPath == fullPath {
			return i, true
		}
	}
	return -1, false
}

func describe(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type defaultSettings struct{}

func (defaultSettings) ConfirmDelete() bool { return true }
