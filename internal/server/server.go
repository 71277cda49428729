// Package server serves the file API over a local directory, so the browser
// can be used without a remote deployment.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/remote"
)

var errOutsideRoot = errors.New("path is outside the served root")

// Config configures a file API server
type Config struct {
	// Dir is the local directory exposed as the virtual root
	Dir string
	// Root is the virtual path Dir is mounted at
	Root string
	// BasePath is the URL prefix of the API
	BasePath string
	// ArchiveDir holds temporary archives; a temp dir is created when empty
	ArchiveDir string
	// MaxUploadMemory bounds the in-memory part of multipart parsing
	MaxUploadMemory int64
}

// Server exposes Dir through the HTTP file API
type Server struct {
	dir        string
	root       string
	basePath   string
	archiveDir string
	maxMemory  int64
	now        func() time.Time
}

// New validates the configuration and prepares the archive directory
func New(cfg Config) (*Server, error) {
	if cfg.Dir == "" {
		return nil, errors.New("serve directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.Dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("serve directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("serve directory %s is not a directory", dir)
	}

	if cfg.Root == "" {
		cfg.Root = model.RootPath
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/api/files"
	}
	if cfg.MaxUploadMemory == 0 {
		cfg.MaxUploadMemory = 32 << 20
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir, err = os.MkdirTemp("", "rbrowse-archives-")
		if err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	} else if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	return &Server{
		dir:        dir,
		root:       path.Clean("/" + cfg.Root),
		basePath:   "/" + strings.Trim(cfg.BasePath, "/"),
		archiveDir: cfg.ArchiveDir,
		maxMemory:  cfg.MaxUploadMemory,
		now:        time.Now,
	}, nil
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	b := s.basePath

	mux.HandleFunc("GET "+b, s.handleList)
	mux.HandleFunc("POST "+b, s.handleCreate)
	mux.HandleFunc("GET "+b+"/preview", s.handlePreview)
	mux.HandleFunc("DELETE "+b+"/delete", s.handleDelete)
	mux.HandleFunc("POST "+b+"/archive", s.handleArchive)
	mux.HandleFunc("GET "+b+"/archive/{name}", s.handleFetchArchive)
	mux.HandleFunc("DELETE "+b+"/archive/{name}", s.handleDeleteArchive)
	mux.HandleFunc("PUT "+b+"/{path...}", s.handleRename)

	return loggingMiddleware(mux)
}

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("server: serving %s as %s on %s%s", s.dir, s.root, addr, s.basePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logrus.Info("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// resolve maps a virtual path onto the local file system
func (s *Server) resolve(virtual string) (string, error) {
	clean := path.Clean("/" + virtual)
	if clean != s.root && !strings.HasPrefix(clean, s.root+"/") {
		return "", errOutsideRoot
	}
	rel := strings.TrimPrefix(clean, s.root)
	return filepath.Join(s.dir, filepath.FromSlash(rel)), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("server: request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("server: encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, remote.ErrorResponse{Error: message})
}

// sendFSError maps file system failures onto status codes
func sendFSError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errOutsideRoot):
		sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, os.ErrNotExist):
		sendError(w, http.StatusNotFound, "not found")
	case errors.Is(err, os.ErrExist):
		sendError(w, http.StatusConflict, "already exists")
	default:
		logrus.Errorf("server: %v", err)
		sendError(w, http.StatusInternalServerError, err.Error())
	}
}
