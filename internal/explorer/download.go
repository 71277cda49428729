package explorer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
)

// cleanupTimeout bounds the detached archive removal
const cleanupTimeout = 30 * time.Second

// DownloadSelected archives the selection and hands the archive to the Saver.
// It returns where the Saver put it.
func (c *Controller) DownloadSelected(ctx context.Context) (string, error) {
	c.mu.Lock()
	targets := c.selectedLocked()
	dir := c.currentPathLocked()
	c.sel = c.sel.CloseMenu()
	c.mu.Unlock()

	if len(targets) == 0 {
		return "", ErrNothingSelected
	}
	return c.download(ctx, dir, model.Paths(targets))
}

// DownloadFolder archives a whole folder, typically the breadcrumb level the
// user picked
func (c *Controller) DownloadFolder(ctx context.Context, entry model.Entry) (string, error) {
	if !entry.IsFolder() {
		return "", fmt.Errorf("download %s: not a folder", entry.FullPath)
	}
	return c.download(ctx, model.Parent(entry.FullPath), []string{entry.FullPath})
}

func (c *Controller) download(ctx context.Context, dir string, paths []string) (string, error) {
	if c.saver == nil {
		return "", ErrNoSaver
	}

	release := c.gate.Acquire()
	defer release()

	id, err := c.dir.Archive(ctx, dir, paths)
	if err != nil {
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Download failed", Detail: describe(err, "Failed to create archive.")})
		return "", fmt.Errorf("archive %d entries in %s: %w", len(paths), dir, err)
	}

	body, err := c.dir.FetchArchive(ctx, id)
	if err != nil {
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Download failed", Detail: describe(err, "Failed to fetch archive.")})
		c.discardArchive(id)
		return "", fmt.Errorf("fetch archive %s: %w", id, err)
	}

	saved, err := c.saver.Save(id, body)
	body.Close()
	c.discardArchive(id)
	if err != nil {
		c.notifier.Notify(Notification{Level: LevelError, Summary: "Download failed", Detail: describe(err, "Failed to save archive.")})
		return "", fmt.Errorf("save archive %s: %w", id, err)
	}

	logrus.Infof("explorer: downloaded %s to %s", id, saved)
	c.notifier.Notify(Notification{Level: LevelSuccess, Summary: "Downloaded", Detail: saved})
	return saved, nil
}

// discardArchive removes the temporary archive in the background. Failure
// only leaves a stray file on the server.
func (c *Controller) discardArchive(id string) {
	c.cleanups.Add(1)
	go func() {
		defer c.cleanups.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := c.dir.DeleteArchive(ctx, id); err != nil {
			logrus.WithField("archive", id).Warnf("explorer: archive cleanup failed: %v", err)
		}
	}()
}

// Wait blocks until background archive cleanups have finished
func (c *Controller) Wait() {
	c.cleanups.Wait()
}
