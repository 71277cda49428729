package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DownloadSaver writes fetched archives into a local directory. It satisfies
// explorer.Saver.
type DownloadSaver struct {
	Dir string
	// Progress, when set, wraps the body while it is copied
	Progress func(name string, r io.Reader) io.Reader
}

// NewDownloadSaver returns a saver for dir, falling back to ~/Downloads
func NewDownloadSaver(dir string) (*DownloadSaver, error) {
	if dir == "" {
		path, err := GetDownloadPath()
		if err != nil {
			return nil, err
		}
		dir = path
	}
	return &DownloadSaver{Dir: ExpandHome(dir)}, nil
}

// Save copies body into Dir under name, never overwriting an existing file
func (s *DownloadSaver) Save(name string, body io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create downloads directory: %w", err)
	}

	localPath := resolveFileNameConflict(filepath.Join(s.Dir, filepath.Base(name)))

	file, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}

	reader := body
	if s.Progress != nil {
		reader = s.Progress(filepath.Base(localPath), body)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close local file: %w", err)
	}

	logrus.Infof("File downloaded successfully to: %s", localPath)
	return localPath, nil
}

// resolveFileNameConflict appends " (n)" before the extension until the path
// is free
func resolveFileNameConflict(originalPath string) string {
	if _, err := os.Stat(originalPath); os.IsNotExist(err) {
		return originalPath
	}

	dir := filepath.Dir(originalPath)
	ext := filepath.Ext(originalPath)
	nameWithoutExt := strings.TrimSuffix(filepath.Base(originalPath), ext)

	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", nameWithoutExt, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}

	// give up on counting
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", nameWithoutExt, os.Getpid(), ext))
}

// GetDownloadPath returns the user's Downloads directory
func GetDownloadPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// ExpandHome replaces a leading "~/" with the home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
