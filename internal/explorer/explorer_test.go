package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/naming"
	"github.com/HaiFongPan/rbrowse/internal/selection"
)

// fakeDir is an in-memory directory tree keyed by folder path
type fakeDir struct {
	mu   sync.Mutex
	tree map[string][]model.Entry

	listCalls   []string
	listErr     error
	listHook    func(path string)
	renameErr   error
	undeletable map[string]bool

	renames        [][2]string
	deleteCalls    int
	uploads        []string
	archivedPaths  []string
	deletedArchive chan string
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		tree:           map[string][]model.Entry{},
		undeletable:    map[string]bool{},
		deletedArchive: make(chan string, 4),
	}
}

func folder(name string) model.Entry {
	return model.Entry{Name: name, Kind: model.KindFolder}
}

func file(name string) model.Entry {
	e := model.Entry{Name: name, Kind: model.KindFile, Size: 10}
	if strings.HasSuffix(name, ".png") {
		e.Media = model.MediaImage
	}
	return e
}

func (f *fakeDir) put(dir string, entries ...model.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tree[dir] = append(f.tree[dir], entries...)
	for _, e := range entries {
		if e.IsFolder() {
			if _, ok := f.tree[model.Join(dir, e.Name)]; !ok {
				f.tree[model.Join(dir, e.Name)] = nil
			}
		}
	}
}

func (f *fakeDir) lists() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listCalls...)
}

func (f *fakeDir) List(ctx context.Context, dirPath string) ([]model.Entry, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, dirPath)
	hook := f.listHook
	f.mu.Unlock()

	if hook != nil {
		hook(dirPath)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	entries, ok := f.tree[dirPath]
	if !ok {
		return nil, &model.NotFoundError{Op: "list", Path: dirPath}
	}
	return append([]model.Entry(nil), entries...), nil
}

func (f *fakeDir) Rename(ctx context.Context, entryPath, newFullPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renames = append(f.renames, [2]string{entryPath, newFullPath})
	dir := model.Parent(entryPath)
	for i, e := range f.tree[dir] {
		if e.Name == model.Base(entryPath) {
			f.tree[dir][i].Name = model.Base(newFullPath)
		}
	}
	return nil
}

func (f *fakeDir) DeleteMany(ctx context.Context, dirPath string, entryPaths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++

	failed := 0
	for _, p := range entryPaths {
		if f.undeletable[p] {
			failed++
			continue
		}
		kept := f.tree[dirPath][:0]
		for _, e := range f.tree[dirPath] {
			if e.Name != model.Base(p) {
				kept = append(kept, e)
			}
		}
		f.tree[dirPath] = kept
	}
	if failed > 0 {
		return &model.ServerError{Op: "delete", Status: 500, Message: fmt.Sprintf("failed to delete %d of %d items", failed, len(entryPaths))}
	}
	return nil
}

func (f *fakeDir) CreateFolder(ctx context.Context, dirPath, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.tree[dirPath] {
		if e.Name == name {
			return &model.ConflictError{Op: "create folder", Path: model.Join(dirPath, name)}
		}
	}
	f.tree[dirPath] = append(f.tree[dirPath], folder(name))
	return nil
}

func (f *fakeDir) Upload(ctx context.Context, dirPath string, files []model.UploadFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range files {
		f.uploads = append(f.uploads, u.Name)
		f.tree[dirPath] = append(f.tree[dirPath], file(u.Name))
	}
	return nil
}

func (f *fakeDir) Archive(ctx context.Context, dirPath string, entryPaths []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archivedPaths = append([]string(nil), entryPaths...)
	return "bundle-20240101T000000Z.zip", nil
}

func (f *fakeDir) FetchArchive(ctx context.Context, archiveID string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("zip:" + archiveID)), nil
}

func (f *fakeDir) DeleteArchive(ctx context.Context, archiveID string) error {
	f.deletedArchive <- archiveID
	return errors.New("cleanup is best effort")
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) levels() []Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Level, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Level
	}
	return out
}

type confirmSetting bool

func (c confirmSetting) ConfirmDelete() bool { return bool(c) }

type memSaver struct {
	saved map[string]string
}

func (m *memSaver) Save(name string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.saved[name] = string(data)
	return "/downloads/" + name, nil
}

// sortScenario is the fixture in which raw order differs from display order
func sortScenario() *fakeDir {
	dir := newFakeDir()
	dir.put(model.RootPath, file("img2.png"), folder("b"), file("img1.png"), folder("a"))
	dir.put("/output/b", file("inner.txt"))
	return dir
}

func loaded(t *testing.T, dir *fakeDir, opts ...Option) *Controller {
	t.Helper()
	c := New(dir, opts...)
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func names(c *Controller) []string {
	return model.Names(c.Items())
}

func TestNew_InitialState(t *testing.T) {
	c := New(newFakeDir())

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, model.RootPath, c.CurrentPath())
	crumbs := c.Breadcrumb()
	require.Len(t, crumbs, 1)
	assert.Equal(t, model.RootPath, crumbs[0].FullPath)
	assert.Empty(t, c.Items())
}

func TestRefresh_SortsFoldersFirstThenName(t *testing.T) {
	c := loaded(t, sortScenario())

	assert.Equal(t, []string{"a", "b", "img1.png", "img2.png"}, names(c))
	assert.Equal(t, "/output/img1.png", c.Items()[2].FullPath)

	crumbs := c.Breadcrumb()
	assert.Equal(t, []Shortcut{
		{Label: "a", FullPath: "/output/a"},
		{Label: "b", FullPath: "/output/b"},
	}, crumbs[0].Children)
}

func TestNavigateIntoThenUp_RestoresStackWithOneExtraList(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)
	ctx := context.Background()
	before := c.Breadcrumb()

	require.NoError(t, c.NavigateInto(ctx, c.Items()[1]))
	assert.Equal(t, "/output/b", c.CurrentPath())
	assert.Equal(t, []string{"inner.txt"}, names(c))
	calls := len(dir.lists())

	require.NoError(t, c.NavigateUp(ctx))
	assert.Equal(t, before, c.Breadcrumb())
	assert.Equal(t, calls+1, len(dir.lists()))
	assert.Equal(t, model.RootPath, dir.lists()[len(dir.lists())-1])
}

func TestNavigateUp_AtRoot(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)

	err := c.NavigateUp(context.Background())
	assert.ErrorIs(t, err, ErrAtRoot)
	assert.Len(t, dir.lists(), 1, "no list call at root")
}

func TestNavigateInto_FailureKeepsBreadcrumbAndLastGoodListing(t *testing.T) {
	dir := sortScenario()
	notes := &recordingNotifier{}
	c := loaded(t, dir, WithNotifier(notes))

	dir.mu.Lock()
	dir.listErr = &model.NetworkError{Op: "list", Err: errors.New("connection refused")}
	dir.mu.Unlock()

	err := c.NavigateInto(context.Background(), c.Items()[0])
	require.Error(t, err)
	assert.True(t, model.IsNetwork(err))

	assert.Equal(t, "/output/a", c.CurrentPath())
	assert.Equal(t, []string{"a", "b", "img1.png", "img2.png"}, names(c))
	assert.Equal(t, []Level{LevelError}, notes.levels())
	assert.Equal(t, StateIdle, c.State())
}

func TestEnterFolder_TruncatesAndIgnoresCurrent(t *testing.T) {
	dir := sortScenario()
	dir.put("/output/b", folder("deep"))
	c := loaded(t, dir)
	ctx := context.Background()

	b := c.Items()[1]
	require.NoError(t, c.NavigateInto(ctx, b))
	require.NoError(t, c.NavigateInto(ctx, c.Items()[0]))
	assert.Equal(t, "/output/b/deep", c.CurrentPath())

	// 面包屑快捷方式：回到第 1 层并进入 a
	a := model.Entry{Name: "a", Kind: model.KindFolder, FullPath: "/output/a"}
	require.NoError(t, c.EnterFolder(ctx, a, 1))
	crumbs := c.Breadcrumb()
	require.Len(t, crumbs, 2)
	assert.Equal(t, "/output/a", crumbs[1].FullPath)

	calls := len(dir.lists())
	require.NoError(t, c.EnterFolder(ctx, a, 1))
	assert.Len(t, dir.lists(), calls, "entering the current folder is a no-op")
}

func TestJumpTo(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)
	ctx := context.Background()

	require.NoError(t, c.NavigateInto(ctx, c.Items()[1]))
	require.NoError(t, c.JumpTo(ctx, 0))
	assert.Equal(t, model.RootPath, c.CurrentPath())
	assert.Len(t, c.Breadcrumb(), 1)

	assert.Error(t, c.JumpTo(ctx, 5))
}

func TestRefresh_DropsStaleResponse(t *testing.T) {
	dir := sortScenario()
	dir.put(model.RootPath, folder("slow"))
	dir.put("/output/slow", file("late.txt"))
	c := loaded(t, dir)
	ctx := context.Background()

	started := make(chan struct{})
	unblock := make(chan struct{})
	dir.mu.Lock()
	dir.listHook = func(path string) {
		if path == "/output/slow" {
			close(started)
			<-unblock
		}
	}
	dir.mu.Unlock()

	var slow model.Entry
	for _, e := range c.Items() {
		if e.Name == "slow" {
			slow = e
		}
	}

	done := make(chan error, 1)
	go func() { done <- c.NavigateInto(ctx, slow) }()
	<-started
	assert.Equal(t, StateLoading, c.State())

	// the user backs out before the slow listing lands
	require.NoError(t, c.JumpTo(ctx, 0))
	close(unblock)
	require.NoError(t, <-done)

	assert.Equal(t, model.RootPath, c.CurrentPath())
	assert.Contains(t, names(c), "slow")
	assert.NotContains(t, names(c), "late.txt")
	assert.Equal(t, StateIdle, c.State())
}

func TestRefresh_DropsStaleFailure(t *testing.T) {
	dir := sortScenario()
	// /output/slow is listed at the root but has no contents, so listing it fails
	dir.put(model.RootPath, folder("slow"))
	notes := &recordingNotifier{}
	c := loaded(t, dir, WithNotifier(notes))
	ctx := context.Background()

	started := make(chan struct{})
	unblock := make(chan struct{})
	dir.mu.Lock()
	dir.listHook = func(path string) {
		if path == "/output/slow" {
			close(started)
			<-unblock
		}
	}
	dir.mu.Unlock()

	var slow model.Entry
	for _, e := range c.Items() {
		if e.Name == "slow" {
			slow = e
		}
	}

	done := make(chan error, 1)
	go func() { done <- c.NavigateInto(ctx, slow) }()
	<-started

	require.NoError(t, c.JumpTo(ctx, 0))
	close(unblock)

	// 用户已离开该目录，过期的失败不再报错
	require.NoError(t, <-done)
	assert.Empty(t, notes.levels())
	assert.Equal(t, model.RootPath, c.CurrentPath())
	assert.Contains(t, names(c), "slow")
}

func TestDispatch_SelectionAndOpen(t *testing.T) {
	dir := sortScenario()
	var opened []string
	c := loaded(t, dir, WithFileOpener(func(e model.Entry) { opened = append(opened, e.FullPath) }))
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 1}))
	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 3, Mods: selection.Modifiers{Shift: true}}))
	assert.Equal(t, []string{"b", "img1.png", "img2.png"}, model.Names(c.Selected()))

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 2, Mods: selection.Modifiers{Ctrl: true}}))
	assert.Equal(t, []string{"b", "img2.png"}, model.Names(c.Selected()))
	assert.False(t, c.IsSelected("/output/img1.png"))

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.DoubleActivate, Index: 3}))
	assert.Equal(t, []string{"/output/img2.png"}, opened)

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.DoubleActivate, Index: 1}))
	assert.Equal(t, "/output/b", c.CurrentPath())
	assert.Empty(t, c.Selected(), "navigation clears the selection")

	err := c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 9})
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestDispatch_ContextMenu(t *testing.T) {
	c := loaded(t, sortScenario())
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.ContextRequest, Index: 0}))
	assert.True(t, c.MenuOpen())
	c.CloseMenu()
	assert.False(t, c.MenuOpen())
	assert.Equal(t, []string{"a"}, model.Names(c.Selected()))
}

func TestRename_PatchesInPlaceWithoutRefresh(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 1}))
	require.NoError(t, c.BeginRename(c.Items()[1]))
	assert.Equal(t, StateConfirmPending, c.State())
	p, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, "b", p.Input)
	assert.True(t, p.NeedsInput())

	calls := len(dir.lists())
	require.NoError(t, c.Accept(ctx, "z"))

	assert.Equal(t, calls, len(dir.lists()), "rename does not refetch")
	assert.Equal(t, [][2]string{{"/output/b", "/output/z"}}, dir.renames)
	assert.Equal(t, []string{"a", "z", "img1.png", "img2.png"}, names(c))
	assert.Equal(t, "/output/z", c.Items()[1].FullPath)
	assert.True(t, c.IsSelected("/output/z"))
	assert.Equal(t, "/output/z", c.Breadcrumb()[0].Children[1].FullPath)
	assert.Equal(t, StateIdle, c.State())
}

func TestRename_UnchangedNameClosesWithoutCall(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)

	require.NoError(t, c.BeginRename(c.Items()[0]))
	require.NoError(t, c.Accept(context.Background(), "a"))

	_, ok := c.Pending()
	assert.False(t, ok)
	assert.Empty(t, dir.renames)
}

func TestRename_ValidationKeepsPending(t *testing.T) {
	dir := sortScenario()
	notes := &recordingNotifier{}
	c := loaded(t, dir, WithNotifier(notes))

	require.NoError(t, c.BeginRename(c.Items()[2]))
	err := c.Accept(context.Background(), "img2.png")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, naming.ReasonExists, naming.ReasonOf(err))

	p, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, "img2.png", p.Input)
	assert.Equal(t, naming.ReasonExists, naming.ReasonOf(p.Reason))
	assert.Empty(t, dir.renames)
	assert.Empty(t, notes.levels(), "validation errors are not notified")

	err = c.Accept(context.Background(), "CON")
	assert.Equal(t, naming.ReasonReserved, naming.ReasonOf(err))
}

func TestRename_ServerRejectionKeepsPendingAndNotifies(t *testing.T) {
	dir := sortScenario()
	dir.renameErr = &model.ConflictError{Op: "rename", Path: "/output/c"}
	notes := &recordingNotifier{}
	c := loaded(t, dir, WithNotifier(notes))

	require.NoError(t, c.BeginRename(c.Items()[0]))
	err := c.Accept(context.Background(), "c")
	assert.True(t, model.IsConflict(err))

	p, ok := c.Pending()
	require.True(t, ok)
	assert.True(t, model.IsConflict(p.Reason))
	assert.Equal(t, []Level{LevelError}, notes.levels())
	assert.Equal(t, "a", c.Items()[0].Name)
}

func TestBeginRename_UnlistedEntry(t *testing.T) {
	c := loaded(t, sortScenario())
	err := c.BeginRename(model.Entry{Name: "ghost", FullPath: "/output/ghost"})
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestDeleteSelected_NothingSelected(t *testing.T) {
	c := loaded(t, sortScenario())
	assert.ErrorIs(t, c.DeleteSelected(context.Background()), ErrNothingSelected)
}

func TestDeleteSelected_ConfirmDisabledDeletesDirectly(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir, WithSettings(confirmSetting(false)))
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 2}))
	require.NoError(t, c.DeleteSelected(ctx))

	assert.Equal(t, 1, dir.deleteCalls)
	assert.Equal(t, []string{"a", "b", "img2.png"}, names(c))
	assert.Empty(t, c.Selected())
	assert.Equal(t, StateIdle, c.State())
}

func TestDeleteSelected_ConfirmThenAccept(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir, WithSettings(confirmSetting(true)))
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 2}))
	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 3, Mods: selection.Modifiers{Ctrl: true}}))
	require.NoError(t, c.DeleteSelected(ctx))

	assert.Equal(t, StateConfirmPending, c.State())
	assert.Equal(t, 0, dir.deleteCalls)
	p, _ := c.Pending()
	assert.Equal(t, "Confirm delete 2 Selected Items?", p.Message)
	assert.False(t, p.NeedsInput())

	require.NoError(t, c.Accept(ctx, ""))
	assert.Equal(t, 1, dir.deleteCalls)
	assert.Equal(t, []string{"a", "b"}, names(c))
	assert.Equal(t, StateIdle, c.State())
}

func TestDeleteSelected_CancelKeepsEverything(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 0}))
	require.NoError(t, c.DeleteSelected(ctx))
	c.Cancel()

	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, dir.deleteCalls)
	assert.ErrorIs(t, c.Accept(ctx, ""), ErrNoPending)
}

func TestDelete_PartialFailureStillRefreshes(t *testing.T) {
	dir := sortScenario()
	dir.undeletable["/output/img1.png"] = true
	notes := &recordingNotifier{}
	c := loaded(t, dir, WithSettings(confirmSetting(false)), WithNotifier(notes))
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 2}))
	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 3, Mods: selection.Modifiers{Shift: true}}))
	calls := len(dir.lists())

	err := c.DeleteSelected(ctx)
	var se *model.ServerError
	require.ErrorAs(t, err, &se)

	assert.Equal(t, calls+1, len(dir.lists()))
	// listing mirrors what the server kept
	server, _ := dir.List(ctx, model.RootPath)
	assert.ElementsMatch(t, model.Names(server), names(c))
	assert.Equal(t, []string{"a", "b", "img1.png"}, names(c))
	assert.Equal(t, []Level{LevelError}, notes.levels())
}

func TestCreateFolder(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)
	ctx := context.Background()

	c.BeginCreateFolder()
	assert.Equal(t, StateConfirmPending, c.State())

	err := c.Accept(ctx, "bad/name")
	assert.Equal(t, naming.ReasonInvalidChar, naming.ReasonOf(err))
	_, ok := c.Pending()
	assert.True(t, ok, "dialog stays open after a rejection")

	require.NoError(t, c.Accept(ctx, "My Folder 01"))
	assert.Equal(t, []string{"My Folder 01", "a", "b", "img1.png", "img2.png"}, names(c))
	_, ok = c.Pending()
	assert.False(t, ok)
}

func TestUpload(t *testing.T) {
	dir := sortScenario()
	c := loaded(t, dir)
	ctx := context.Background()

	err := c.Upload(ctx, []model.UploadFile{
		{Name: "ok.txt", Body: strings.NewReader("x")},
		{Name: "img1.png", Body: strings.NewReader("y")},
	})
	assert.Equal(t, naming.ReasonExists, naming.ReasonOf(err))
	assert.Empty(t, dir.uploads, "no network call when any name is rejected")

	err = c.Upload(ctx, []model.UploadFile{
		{Name: "dup.txt", Body: strings.NewReader("1")},
		{Name: "dup.txt", Body: strings.NewReader("2")},
	})
	assert.Equal(t, naming.ReasonExists, naming.ReasonOf(err))

	require.NoError(t, c.Upload(ctx, []model.UploadFile{{Name: "new.png", Body: strings.NewReader("z")}}))
	assert.Equal(t, []string{"new.png"}, dir.uploads)
	assert.Contains(t, names(c), "new.png")
}

func TestDownloadSelected(t *testing.T) {
	dir := sortScenario()
	saver := &memSaver{saved: map[string]string{}}
	c := loaded(t, dir, WithSaver(saver))
	ctx := context.Background()

	_, err := c.DownloadSelected(ctx)
	assert.ErrorIs(t, err, ErrNothingSelected)

	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 0}))
	saved, err := c.DownloadSelected(ctx)
	require.NoError(t, err)

	assert.Equal(t, "/downloads/bundle-20240101T000000Z.zip", saved)
	assert.Equal(t, "zip:bundle-20240101T000000Z.zip", saver.saved["bundle-20240101T000000Z.zip"])
	assert.Equal(t, []string{"/output/a"}, dir.archivedPaths)

	select {
	case id := <-dir.deletedArchive:
		assert.Equal(t, "bundle-20240101T000000Z.zip", id)
	case <-time.After(time.Second):
		t.Fatal("archive cleanup was not attempted")
	}
}

func TestDownload_NoSaver(t *testing.T) {
	c := loaded(t, sortScenario())
	_, err := c.DownloadFolder(context.Background(), c.Items()[0])
	assert.ErrorIs(t, err, ErrNoSaver)
}

func TestLoadingObserver(t *testing.T) {
	var mu sync.Mutex
	var edges []bool
	c := loaded(t, sortScenario(), WithLoadingObserver(func(loading bool) {
		mu.Lock()
		edges = append(edges, loading)
		mu.Unlock()
	}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, edges)
	assert.False(t, c.Loading())
}

// edgeRecorder collects loading transitions
type edgeRecorder struct {
	mu    sync.Mutex
	edges []bool
}

func (r *edgeRecorder) observe(loading bool) {
	r.mu.Lock()
	r.edges = append(r.edges, loading)
	r.mu.Unlock()
}

func (r *edgeRecorder) take() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.edges
	r.edges = nil
	return out
}

func TestLoadingObserver_MutationsHoldOneSlot(t *testing.T) {
	ctx := context.Background()
	rec := &edgeRecorder{}
	c := loaded(t, sortScenario(), WithLoadingObserver(rec.observe), WithSettings(confirmSetting(false)))
	rec.take()

	// 删除与随后的刷新只产生一次 loading 切换
	require.NoError(t, c.Dispatch(ctx, selection.Action{Kind: selection.Activate, Index: 2}))
	require.NoError(t, c.DeleteSelected(ctx))
	assert.Equal(t, []bool{true, false}, rec.take())

	require.NoError(t, c.Upload(ctx, []model.UploadFile{{Name: "new.txt", Body: strings.NewReader("x")}}))
	assert.Equal(t, []bool{true, false}, rec.take())

	c.BeginCreateFolder()
	require.NoError(t, c.Accept(ctx, "fresh"))
	assert.Equal(t, []bool{true, false}, rec.take())
	assert.False(t, c.Loading())
}
