package server

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/remote"
)

const archiveTimeFormat = "20060102T150405Z"

// archiveName names the temporary zip after the single entry's stem or,
// for several entries, after the directory holding them
func (s *Server) archiveName(dirPath string, entryPaths []string) string {
	base := model.Base(dirPath)
	if len(entryPaths) == 1 {
		name := model.Base(entryPaths[0])
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if base == "" || base == "/" {
		base = "archive"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s.zip", base, s.now().UTC().Format(archiveTimeFormat), suffix)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var req remote.FileListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.FileList) == 0 {
		sendError(w, http.StatusBadRequest, "file_list is required")
		return
	}

	name := s.archiveName(req.URI, req.FileList)
	target := filepath.Join(s.archiveDir, name)
	if err := s.writeArchive(target, req.FileList); err != nil {
		os.Remove(target)
		sendFSError(w, err)
		return
	}

	logrus.Infof("server: archived %d entries into %s", len(req.FileList), name)
	writeJSON(w, http.StatusOK, remote.ArchiveResponse{TempName: name})
}

// writeArchive zips every entry under its own name; folders are walked
// recursively and missing entries are skipped
func (s *Server) writeArchive(target string, entryPaths []string) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, p := range entryPaths {
		local, err := s.resolve(p)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(local); errors.Is(err, os.ErrNotExist) {
			logrus.WithField("path", p).Debug("server: skipping missing archive entry")
			continue
		}
		if err := addToZip(zw, local, model.Base(p)); err != nil {
			return fmt.Errorf("archive %s: %w", p, err)
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Close()
}

func addToZip(zw *zip.Writer, local, name string) error {
	return filepath.WalkDir(local, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(local, p)
		if err != nil {
			return err
		}
		zipName := filepath.ToSlash(filepath.Join(name, rel))

		if d.IsDir() {
			_, err := zw.Create(zipName + "/")
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = zipName
		header.Method = zip.Deflate

		dst, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
}

// archivePath rejects names that would escape the archive directory
func (s *Server) archivePath(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".zip") {
		return "", false
	}
	return filepath.Join(s.archiveDir, name), true
}

func (s *Server) handleFetchArchive(w http.ResponseWriter, r *http.Request) {
	target, ok := s.archivePath(r.PathValue("name"))
	if !ok {
		sendError(w, http.StatusBadRequest, "invalid archive name")
		return
	}
	f, err := os.Open(target)
	if err != nil {
		sendFSError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(target)))
	if _, err := io.Copy(w, f); err != nil {
		logrus.Warnf("server: stream archive: %v", err)
	}
}

func (s *Server) handleDeleteArchive(w http.ResponseWriter, r *http.Request) {
	target, ok := s.archivePath(r.PathValue("name"))
	if !ok {
		sendError(w, http.StatusBadRequest, "invalid archive name")
		return
	}
	if err := os.Remove(target); err != nil {
		sendFSError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
