package model

import (
	"io"
	"slices"
	"strings"
	"time"
)

// RootPath is the fixed top of every breadcrumb stack
const RootPath = "/output"

// Kind distinguishes folders from files
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// Media is the sub-kind a file may carry
type Media string

const (
	MediaNone  Media = ""
	MediaImage Media = "image"
	MediaVideo Media = "video"
	MediaAudio Media = "audio"
)

// Entry represents one file-system node of a directory listing
type Entry struct {
	Name      string
	Kind      Kind
	Media     Media
	Size      int64
	FullPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UploadFile is one local file handed to a directory upload
type UploadFile struct {
	Name string
	Size int64
	Body io.Reader
}

// IsFolder reports whether the entry is a folder
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// IsPreviewable reports whether the entry can be shown in the preview
func (e Entry) IsPreviewable() bool {
	return e.Kind == KindFile && e.Media == MediaImage
}

// SetParent recomputes FullPath for a new parent directory
func (e *Entry) SetParent(parent string) {
	e.FullPath = Join(parent, e.Name)
}

// Rename changes the name and keeps FullPath in sync
func (e *Entry) Rename(name string) {
	parent := Parent(e.FullPath)
	e.Name = name
	e.FullPath = Join(parent, name)
}

// Join builds a full path from a parent directory and a child name
func Join(parent, name string) string {
	return strings.TrimRight(parent, "/") + "/" + name
}

// Parent returns the directory part of a full path
func Parent(fullPath string) string {
	trimmed := strings.TrimRight(fullPath, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "/"
	}
	return trimmed[:idx]
}

// Base returns the last element of a full path
func Base(fullPath string) string {
	trimmed := strings.TrimRight(fullPath, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

// Names returns the entry names in listing order
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Paths returns the entry full paths in listing order
func Paths(entries []Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.FullPath
	}
	return paths
}

// Normalize fills FullPath for raw list entries and sorts them folders first,
// each group by name.
func Normalize(parent string, entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].SetParent(parent)
		if out[i].Kind == KindFolder {
			out[i].Size = 0
		}
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries folders first, then lexicographically by name
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}
