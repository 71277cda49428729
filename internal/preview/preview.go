// Package preview keeps the cursor of the image preview over the previewable
// entries of the current listing.
package preview

import (
	"errors"
	"sync"

	"github.com/HaiFongPan/rbrowse/internal/model"
)

// ErrNotPreviewable is returned by Open for entries that are not images in
// the current listing
var ErrNotPreviewable = errors.New("entry is not a previewable image in the listing")

// Source provides the live listing the cursor walks over
type Source interface {
	Items() []model.Entry
}

// Controller is the preview cursor. The previewable subsequence is derived
// from the Source on every move, so it follows refreshes and deletes.
type Controller struct {
	src Source

	mu        sync.Mutex
	listening bool
	index     int
	current   model.Entry
}

// New creates a closed preview over src
func New(src Source) *Controller {
	return &Controller{src: src}
}

// Previewable filters the entries that can be shown in the preview
func Previewable(entries []model.Entry) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsPreviewable() {
			out = append(out, e)
		}
	}
	return out
}

// Open shows entry and starts listening for navigation keys
func (c *Controller) Open(entry model.Entry) error {
	images := Previewable(c.src.Items())
	i := indexOf(images, entry.FullPath)
	if i < 0 {
		return ErrNotPreviewable
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listening = true
	c.index = i
	c.current = images[i]
	return nil
}

// Close hides the preview and stops listening
func (c *Controller) Close() {
	c.mu.Lock()
	c.listening = false
	c.mu.Unlock()
}

// Next moves to the following image, wrapping to the first
func (c *Controller) Next() (model.Entry, bool) {
	return c.step(1)
}

// Previous moves to the preceding image, wrapping to the last
func (c *Controller) Previous() (model.Entry, bool) {
	return c.step(-1)
}

func (c *Controller) step(delta int) (model.Entry, bool) {
	images := Previewable(c.src.Items())

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.listening {
		return model.Entry{}, false
	}

	n := len(images)
	if n == 0 {
		c.listening = false
		return model.Entry{}, false
	}

	base := indexOf(images, c.current.FullPath)
	if base < 0 {
		// current image is gone and its successor slid into its slot, so
		// Next lands on c.index and Previous on c.index-1
		base = c.index
		if delta > 0 {
			base--
		}
	}
	c.index = (base + delta + n) % n
	c.current = images[c.index]
	return c.current, true
}

// HandleKey reacts to "left", "right" and "esc" while the preview is open.
// It reports whether the key was consumed.
func (c *Controller) HandleKey(key string) bool {
	if !c.Visible() {
		return false
	}
	switch key {
	case "left":
		c.Previous()
	case "right":
		c.Next()
	case "esc":
		c.Close()
	default:
		return false
	}
	return true
}

// Visible reports whether the preview is open
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Current returns the displayed image
func (c *Controller) Current() (model.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.listening
}

// Index is the cursor position in the previewable subsequence
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Count is the current length of the previewable subsequence
func (c *Controller) Count() int {
	return len(Previewable(c.src.Items()))
}

func indexOf(entries []model.Entry, fullPath string) int {
	for i, e := range entries {
		if e.FullPath == fullPath {
			return i
		}
	}
	return -1
}
