package explorer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/naming"
)

// ActionKind identifies what a pending action does once accepted
type ActionKind int

const (
	ActionRename ActionKind = iota + 1
	ActionDelete
	ActionCreateFolder
)

func (k ActionKind) String() string {
	switch k {
	case ActionRename:
		return "rename"
	case ActionDelete:
		return "delete"
	case ActionCreateFolder:
		return "create-folder"
	default:
		return "unknown"
	}
}

// Pending is an action awaiting user confirmation or input
type Pending struct {
	Kind ActionKind
	// Target is the entry being renamed
	Target model.Entry
	// Targets are the entries being deleted
	Targets []model.Entry
	// Input is the last submitted (or pre-filled) name
	Input   string
	Message string
	// Reason holds the last rejection, validation or server side
	Reason error

	id uint64
}

// NeedsInput reports whether accepting the action requires a name
func (p Pending) NeedsInput() bool {
	return p.Kind == ActionRename || p.Kind == ActionCreateFolder
}

// Pending returns the action awaiting confirmation, if any
func (c *Controller) Pending() (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Pending{}, false
	}
	p := *c.pending
	p.Targets = append([]model.Entry(nil), p.Targets...)
	return p, true
}

// Cancel drops the pending action
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

func (c *Controller) setPendingLocked(p *Pending) {
	c.pendingSeq++
	p.id = c.pendingSeq
	c.sel = c.sel.CloseMenu()
	c.pending = p
}

// stillPendingLocked reports whether p is the action currently awaiting input
func (c *Controller) stillPendingLocked(p *Pending) bool {
	return c.pending != nil && c.pending.id == p.id
}

// BeginRename opens the rename prompt for a listed entry
func (c *Controller) BeginRename(entry model.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.entryLocked(entry.FullPath)
	if !ok {
		return fmt.Errorf("rename %s: %w", entry.FullPath, ErrNotListed)
	}
	target := c.items[i]
	c.setPendingLocked(&Pending{
		Kind:    ActionRename,
		Target:  target,
		Input:   target.Name,
		Message: fmt.Sprintf("Rename %s", target.Name),
	})
	return nil
}

// BeginCreateFolder opens the new-folder prompt
func (c *Controller) BeginCreateFolder() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPendingLocked(&Pending{
		Kind:    ActionCreateFolder,
		Message: "Add folder",
	})
}

// DeleteSelected deletes the selection, asking first when the confirm
// setting is on
func (c *Controller) DeleteSelected(ctx context.Context) error {
	c.mu.Lock()
	targets := c.selectedLocked()
	if len(targets) == 0 {
		c.mu.Unlock()
		return ErrNothingSelected
	}
	c.sel = c.sel.CloseMenu()

	if !c.settings.ConfirmDelete() {
		c.mu.Unlock()
		return c.deleteEntries(ctx, targets)
	}

	c.setPendingLocked(&Pending{
		Kind:    ActionDelete,
		Targets: targets,
		Message: deleteMessage(targets),
	})
	c.mu.Unlock()
	return nil
}

func deleteMessage(targets []model.Entry) string {
	if len(targets) == 1 {
		return fmt.Sprintf("Confirm delete %s?", targets[0].Name)
	}
	return fmt.Sprintf("Confirm delete %d Selected Items?", len(targets))
}

// Accept confirms the pending action. input is the submitted name for
// rename and create-folder and is ignored for delete.
func (c *Controller) Accept(ctx context.Context, input string) error {
	c.mu.Lock()
	p := c.pending
	if p == nil {
		c.mu.Unlock()
		return ErrNoPending
	}

	switch p.Kind {
	case ActionDelete:
		c.pending = nil
		c.mu.Unlock()
		return c.deleteEntries(ctx, p.Targets)

	case ActionRename:
		if input == p.Target.Name {
			c.pending = nil
			c.mu.Unlock()
			return nil
		}
		p.Input = input
		if err := naming.Validate(input, c.siblingNamesLocked(p.Target.FullPath)); err != nil {
			p.Reason = err
			c.mu.Unlock()
			return err
		}
		p.Reason = nil
		c.mu.Unlock()
		return c.rename(ctx, p, input)

	case ActionCreateFolder:
		p.Input = input
		if err := naming.Validate(input, model.Names(c.items)); err != nil {
			p.Reason = err
			c.mu.Unlock()
			return err
		}
		p.Reason = nil
		dir := c.currentPathLocked()
		c.mu.Unlock()
		return c.createFolder(ctx, p, dir, input)

	default:
		c.pending = nil
		c.mu.Unlock()
		return fmt.Errorf("accept: unknown action %d", p.Kind)
	}
}

// siblingNamesLocked lists the names a renamed entry must not collide with
func (c *Controller) siblingNamesLocked(self string) []string {
	names := make([]string, 0, len(c.items))
	for _, e := range c.items {
		if e.FullPath != self {
			names = append(names, e.Name)
		}
	}
	return names
}

func (c *Controller) rename(ctx context.Context, p *Pending, name string) error {
	oldPath := p.Target.FullPath
	newPath := model.Join(model.Parent(oldPath), name)

	release := c.gate.Acquire()
	err := c.dir.Rename(ctx, oldPath, newPath)
	release()

	if err != nil {
		logrus.WithFields(logrus.Fields{"from": oldPath, "to": newPath}).Warnf("explorer: rename failed: %v", err)
		c.mu.Lock()
		if c.stillPendingLocked(p) {
			c.pending.Reason = err
		}
		c.mu.Unlock()
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Rename failed", Detail: describe(err, "Failed to rename.")})
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}

	c.mu.Lock()
	c.patchRenameLocked(oldPath, name)
	if c.stillPendingLocked(p) {
		c.pending = nil
	}
	c.mu.Unlock()

	logrus.Infof("explorer: renamed %s to %s", oldPath, newPath)
	return nil
}

// patchRenameLocked applies a successful rename to the local view without a
// refetch. The entry keeps its position in the listing.
func (c *Controller) patchRenameLocked(oldPath, name string) {
	i, ok := c.entryLocked(oldPath)
	if !ok {
		// listing moved on while the call was in flight
		return
	}
	c.items[i].Rename(name)
	newPath := c.items[i].FullPath

	top := &c.breadcrumb[len(c.breadcrumb)-1]
	for j := range top.Children {
		if top.Children[j].FullPath == oldPath {
			top.Children[j] = Shortcut{Label: name, FullPath: newPath}
		}
	}
	c.sel = c.sel.Rename(oldPath, newPath)
}

func (c *Controller) createFolder(ctx context.Context, p *Pending, dir, name string) error {
	// one slot covers the call and the refresh that follows it
	release := c.gate.Acquire()
	defer release()

	err := c.dir.CreateFolder(ctx, dir, name)

	if err != nil {
		logrus.WithField("path", model.Join(dir, name)).Warnf("explorer: create folder failed: %v", err)
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Add folder failed", Detail: describe(err, "Failed to create folder.")})
	}

	refreshErr := c.Refresh(ctx)

	c.mu.Lock()
	if c.stillPendingLocked(p) {
		if err != nil {
			c.pending.Reason = err
		} else {
			c.pending = nil
		}
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("create folder %s: %w", name, err)
	}
	return refreshErr
}

func (c *Controller) deleteEntries(ctx context.Context, targets []model.Entry) error {
	c.mu.Lock()
	dir := c.currentPathLocked()
	c.mu.Unlock()

	release := c.gate.Acquire()
	defer release()

	err := c.dir.DeleteMany(ctx, dir, model.Paths(targets))

	if err != nil {
		logrus.WithField("path", dir).Warnf("explorer: delete of %d entries failed: %v", len(targets), err)
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Delete failed", Detail: describe(err, "Failed to delete.")})
	} else {
		c.notifier.Notify(Notification{Level: LevelSuccess, Summary: "Deleted", Detail: fmt.Sprintf("%d item(s) deleted", len(targets))})
	}

	// the server state is authoritative whether or not every item went
	refreshErr := c.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("delete in %s: %w", dir, err)
	}
	return refreshErr
}

// Upload validates every file name against the listing and each other, then
// sends the batch and re-lists.
func (c *Controller) Upload(ctx context.Context, files []model.UploadFile) error {
	if len(files) == 0 {
		return nil
	}

	c.mu.Lock()
	dir := c.currentPathLocked()
	existing := model.Names(c.items)
	c.mu.Unlock()

	for _, f := range files {
		if err := naming.Validate(f.Name, existing); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		existing = append(existing, f.Name)
	}

	release := c.gate.Acquire()
	defer release()

	err := c.dir.Upload(ctx, dir, files)

	if err != nil {
		logrus.WithField("path", dir).Warnf("explorer: upload of %d files failed: %v", len(files), err)
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Upload failed", Detail: describe(err, "Failed to upload.")})
	} else {
		c.notifier.Notify(Notification{Level: LevelSuccess, Summary: "Uploaded", Detail: fmt.Sprintf("%d file(s) uploaded", len(files))})
	}

	refreshErr := c.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("upload to %s: %w", dir, err)
	}
	return refreshErr
}

// IsValidation reports whether err is a local name rejection
func IsValidation(err error) bool {
	var ve *naming.ValidationError
	return errors.As(err, &ve)
}
