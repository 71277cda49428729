package utils

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/HaiFongPan/rbrowse/internal/model"
)

// commonTypes covers extensions the system mime table may not know
var commonTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

// DetectContentType detects the MIME type of a file from its extension and,
// failing that, from the first bytes of reader.
func DetectContentType(filePath string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if contentType, ok := commonTypes[ext]; ok {
		return contentType, nil
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType, nil
	}

	if reader != nil {
		buffer := make([]byte, 512)
		n, err := reader.Read(buffer)
		if err != nil && err != io.EOF {
			return "", err
		}
		if contentType := http.DetectContentType(buffer[:n]); contentType != "application/octet-stream" {
			return contentType, nil
		}
	}

	return "application/octet-stream", nil
}

// ContentTypeByName detects the MIME type from the file name only
func ContentTypeByName(name string) string {
	contentType, _ := DetectContentType(name, nil)
	return contentType
}

// IsImageType checks if the content type represents an image
func IsImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// GetFileCategory returns a general category for the content type
func GetFileCategory(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case strings.HasPrefix(contentType, "text/"):
		return "text"
	case strings.Contains(contentType, "pdf"):
		return "document"
	case strings.Contains(contentType, "zip") || strings.Contains(contentType, "tar") || strings.Contains(contentType, "gzip"):
		return "archive"
	default:
		return "other"
	}
}

// MediaOf derives the media sub-kind of a file from its name
func MediaOf(name string) model.Media {
	switch GetFileCategory(ContentTypeByName(name)) {
	case "image":
		return model.MediaImage
	case "video":
		return model.MediaVideo
	case "audio":
		return model.MediaAudio
	default:
		return model.MediaNone
	}
}

// CategoryOf returns the display category of an entry
func CategoryOf(e model.Entry) string {
	if e.IsFolder() {
		return "folder"
	}
	return GetFileCategory(ContentTypeByName(e.Name))
}
