package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/naming"
	"github.com/HaiFongPan/rbrowse/internal/remote"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		uri = s.root
	}
	local, err := s.resolve(uri)
	if err != nil {
		sendFSError(w, err)
		return
	}

	dirEntries, err := os.ReadDir(local)
	if err != nil {
		sendFSError(w, err)
		return
	}

	items := make([]remote.ListItem, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Stat
			continue
		}
		e := model.Entry{
			Name:      de.Name(),
			CreatedAt: info.ModTime(),
			UpdatedAt: info.ModTime(),
		}
		switch {
		case info.IsDir():
			e.Kind = model.KindFolder
		case info.Mode().IsRegular():
			e.Kind = model.KindFile
			e.Size = info.Size()
			e.Media = utils.MediaOf(e.Name)
		default:
			continue
		}
		items = append(items, remote.FromEntry(e))
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	source := "/" + r.PathValue("path")

	var req remote.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := naming.ValidateSyntax(model.Base(req.Filename)); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, err := s.resolve(source)
	if err != nil {
		sendFSError(w, err)
		return
	}
	to, err := s.resolve(req.Filename)
	if err != nil {
		sendFSError(w, err)
		return
	}
	if from == s.dir {
		sendError(w, http.StatusBadRequest, "cannot rename the root directory")
		return
	}

	if _, err := os.Lstat(from); err != nil {
		sendFSError(w, err)
		return
	}
	if _, err := os.Lstat(to); err == nil {
		sendError(w, http.StatusConflict, fmt.Sprintf("%s already exists", model.Base(req.Filename)))
		return
	}
	if err := os.Rename(from, to); err != nil {
		sendFSError(w, err)
		return
	}

	logrus.Infof("server: renamed %s to %s", source, req.Filename)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req remote.FileListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	failed := 0
	for _, p := range req.FileList {
		local, err := s.resolve(p)
		if err == nil && local == s.dir {
			err = errors.New("cannot delete the root directory")
		}
		if err == nil {
			if _, statErr := os.Lstat(local); statErr != nil {
				err = statErr
			} else {
				err = os.RemoveAll(local)
			}
		}
		if err != nil {
			logrus.WithField("path", p).Warnf("server: delete failed: %v", err)
			failed++
		}
	}

	if failed > 0 {
		sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete %d of %d items", failed, len(req.FileList)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreate accepts multipart bodies with folders[] names and files[]
// uploads into uri
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxMemory); err != nil {
		sendError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	dir, err := s.resolve(r.FormValue("uri"))
	if err != nil {
		sendFSError(w, err)
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		sendError(w, http.StatusNotFound, "target folder not found")
		return
	}

	folders := r.MultipartForm.Value["folders[]"]
	files := r.MultipartForm.File["files[]"]
	for _, name := range folders {
		if err := naming.ValidateSyntax(name); err != nil {
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, fh := range files {
		if err := naming.ValidateSyntax(fh.Filename); err != nil {
			sendError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	for _, name := range folders {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			sendFSError(w, err)
			return
		}
	}
	for _, fh := range files {
		if err := saveUpload(filepath.Join(dir, fh.Filename), fh); err != nil {
			sendFSError(w, err)
			return
		}
	}

	logrus.Infof("server: created %d folders and %d files in %s", len(folders), len(files), r.FormValue("uri"))
	w.WriteHeader(http.StatusCreated)
}

func saveUpload(dst string, fh *multipart.FileHeader) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("write %s: %w", fh.Filename, err)
	}
	return out.Close()
}
