package remote

import (
	"time"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

// Wire type values used by the file API
const (
	TypeFolder = "folder"
	TypeImage  = "image"
	TypeVideo  = "video"
	TypeAudio  = "audio"
	TypeFile   = "file"
)

// ListItem is one element of a list response
type ListItem struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// RenameRequest is the body of a rename call
type RenameRequest struct {
	Filename string `json:"filename"`
}

// FileListRequest is the body of delete and archive calls
type FileListRequest struct {
	URI      string   `json:"uri"`
	FileList []string `json:"file_list"`
}

// ArchiveResponse identifies a temporary archive on the server
type ArchiveResponse struct {
	TempName string `json:"tempName"`
}

// ErrorResponse is the body of any non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToEntry converts a wire item into a raw entry (FullPath left empty)
func (li ListItem) ToEntry() model.Entry {
	e := model.Entry{
		Name:      li.Name,
		Size:      li.Size,
		CreatedAt: fromMillis(li.CreatedAt),
		UpdatedAt: fromMillis(li.UpdatedAt),
	}

	switch li.Type {
	case TypeFolder, "dir":
		e.Kind = model.KindFolder
		e.Size = 0
	case TypeImage, "img":
		e.Kind = model.KindFile
		e.Media = model.MediaImage
	case TypeVideo:
		e.Kind = model.KindFile
		e.Media = model.MediaVideo
	case TypeAudio:
		e.Kind = model.KindFile
		e.Media = model.MediaAudio
	default:
		e.Kind = model.KindFile
		e.Media = utils.MediaOf(li.Name)
	}
	return e
}

// FromEntry converts an entry into its wire form
func FromEntry(e model.Entry) ListItem {
	li := ListItem{
		Name:      e.Name,
		Size:      e.Size,
		CreatedAt: toMillis(e.CreatedAt),
		UpdatedAt: toMillis(e.UpdatedAt),
	}

	switch {
	case e.IsFolder():
		li.Type = TypeFolder
		li.Size = 0
	case e.Media == model.MediaImage:
		li.Type = TypeImage
	case e.Media == model.MediaVideo:
		li.Type = TypeVideo
	case e.Media == model.MediaAudio:
		li.Type = TypeAudio
	default:
		li.Type = TypeFile
	}
	return li
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
