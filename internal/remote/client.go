// Package remote implements the directory client for the HTTP file API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/retry"
)

// Config holds client configuration
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      retry.Config
	HTTPClient *http.Client
}

// Client talks to the file API rooted at BaseURL
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
}

// New creates a client. Only idempotent reads are retried.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		retryConfig: cfg.Retry,
	}, nil
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List returns the raw entries of dirPath
func (c *Client) List(ctx context.Context, dirPath string) ([]model.Entry, error) {
	logrus.WithField("path", dirPath).Debug("remote: list")

	return retry.Do(ctx, c.retryConfig, func() ([]model.Entry, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?uri="+url.QueryEscape(dirPath), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(req, "list", dirPath)
		if err != nil {
			return nil, retryIfTransient(err)
		}
		defer resp.Body.Close()

		var items []ListItem
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			return nil, &model.ServerError{Op: "list", Status: resp.StatusCode, Message: fmt.Sprintf("invalid response: %v", err)}
		}

		entries := make([]model.Entry, 0, len(items))
		for _, item := range items {
			entries = append(entries, item.ToEntry())
		}
		return entries, nil
	})
}

// Rename moves entryPath to newFullPath
func (c *Client) Rename(ctx context.Context, entryPath, newFullPath string) error {
	logrus.WithFields(logrus.Fields{"from": entryPath, "to": newFullPath}).Debug("remote: rename")

	resp, err := c.sendJSON(ctx, http.MethodPut, c.baseURL+"/"+escapePath(entryPath), RenameRequest{Filename: newFullPath}, "rename", entryPath)
	if err != nil {
		return err
	}
	return drain(resp)
}

// DeleteMany removes entryPaths from dirPath. A partial failure comes back as
// a ServerError without per-item detail.
func (c *Client) DeleteMany(ctx context.Context, dirPath string, entryPaths []string) error {
	logrus.WithFields(logrus.Fields{"path": dirPath, "count": len(entryPaths)}).Debug("remote: delete")

	resp, err := c.sendJSON(ctx, http.MethodDelete, c.baseURL+"/delete", FileListRequest{URI: dirPath, FileList: entryPaths}, "delete", dirPath)
	if err != nil {
		return err
	}
	return drain(resp)
}

// CreateFolder creates name inside dirPath
func (c *Client) CreateFolder(ctx context.Context, dirPath, name string) error {
	logrus.WithFields(logrus.Fields{"path": dirPath, "name": name}).Debug("remote: create folder")
	return c.postForm(ctx, "create folder", dirPath, []string{name}, nil)
}

// Upload streams files into dirPath as one multipart request
func (c *Client) Upload(ctx context.Context, dirPath string, files []model.UploadFile) error {
	logrus.WithFields(logrus.Fields{"path": dirPath, "count": len(files)}).Debug("remote: upload")
	return c.postForm(ctx, "upload", dirPath, nil, files)
}

// Archive asks the server to pack entryPaths and returns the archive id
func (c *Client) Archive(ctx context.Context, dirPath string, entryPaths []string) (string, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/archive", FileListRequest{URI: dirPath, FileList: entryPaths}, "archive", dirPath)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ar ArchiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", &model.ServerError{Op: "archive", Status: resp.StatusCode, Message: fmt.Sprintf("invalid response: %v", err)}
	}
	if ar.TempName == "" {
		return "", &model.ServerError{Op: "archive", Status: resp.StatusCode, Message: "missing archive name"}
	}

	logrus.WithField("archive", ar.TempName).Debug("remote: archive created")
	return ar.TempName, nil
}

// FetchArchive streams a previously created archive. The caller closes it.
func (c *Client) FetchArchive(ctx context.Context, archiveID string) (io.ReadCloser, error) {
	return c.getStream(ctx, "fetch archive", archiveID, c.baseURL+"/archive/"+url.PathEscape(archiveID))
}

// DeleteArchive removes the temporary archive on the server
func (c *Client) DeleteArchive(ctx context.Context, archiveID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/archive/"+url.PathEscape(archiveID), nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req, "delete archive", archiveID)
	if err != nil {
		return err
	}
	return drain(resp)
}

// Preview streams image bytes; thumbnail asks for the reduced version
func (c *Client) Preview(ctx context.Context, path string, thumbnail bool) (io.ReadCloser, error) {
	target := c.baseURL + "/preview?uri=" + url.QueryEscape(path)
	if thumbnail {
		target += "&preview=true"
	}
	return c.getStream(ctx, "preview", path, target)
}

func (c *Client) getStream(ctx context.Context, op, target, rawURL string) (io.ReadCloser, error) {
	return retry.Do(ctx, c.retryConfig, func() (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.send(req, op, target)
		if err != nil {
			return nil, retryIfTransient(err)
		}
		return resp.Body, nil
	})
}

func (c *Client) postForm(ctx context.Context, op, dirPath string, folders []string, files []model.UploadFile) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeForm(mw, dirPath, folders, files)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(req, op, dirPath)
	if err != nil {
		return err
	}
	return drain(resp)
}

func writeForm(mw *multipart.Writer, dirPath string, folders []string, files []model.UploadFile) error {
	if err := mw.WriteField("uri", dirPath); err != nil {
		return err
	}
	for _, name := range folders {
		if err := mw.WriteField("folders[]", name); err != nil {
			return err
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files[]", f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, rawURL string, body any, op, target string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, op, target)
}

// send performs one request and maps failures onto the model error taxonomy
func (c *Client) send(req *http.Request, op, target string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &model.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, statusError(op, target, resp)
}

func statusError(op, target string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(body))
	var er ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		message = er.Error
	}

	logrus.WithFields(logrus.Fields{"op": op, "target": target, "status": resp.StatusCode}).Warnf("remote: request rejected: %s", message)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &model.NotFoundError{Op: op, Path: target}
	case http.StatusConflict:
		return &model.ConflictError{Op: op, Path: target, Message: message}
	default:
		return &model.ServerError{Op: op, Status: resp.StatusCode, Message: message}
	}
}

func retryIfTransient(err error) error {
	if model.IsNetwork(err) || model.StatusOf(err) >= 500 {
		return retry.Retryable(err)
	}
	return err
}

func drain(resp *http.Response) error {
	defer resp.Body.Close()
	_, err := io.Copy(io.Discard, resp.Body)
	return err
}

func escapePath(p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
