package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/retry"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(Config{
		BaseURL: ts.URL + "/api/files",
		Retry: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
	})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestList_DecodesEntries(t *testing.T) {
	var gotURI string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/files", r.URL.Path)
		gotURI = r.URL.Query().Get("uri")
		writeJSON(w, http.StatusOK, []ListItem{
			{Name: "b", Type: TypeFolder, Size: 4096},
			{Name: "cat.png", Type: TypeImage, Size: 1024, CreatedAt: 1700000000000, UpdatedAt: 1700000001000},
			{Name: "notes.txt", Type: TypeFile, Size: 12},
			{Name: "legacy.jpg", Type: "img"},
		})
	}))

	entries, err := c.List(context.Background(), "/output/my photos")
	require.NoError(t, err)

	assert.Equal(t, "/output/my photos", gotURI)
	require.Len(t, entries, 4)
	assert.Equal(t, model.KindFolder, entries[0].Kind)
	assert.Equal(t, int64(0), entries[0].Size)
	assert.True(t, entries[1].IsPreviewable())
	assert.Equal(t, time.UnixMilli(1700000001000), entries[1].UpdatedAt)
	assert.Equal(t, model.KindFile, entries[2].Kind)
	assert.False(t, entries[2].IsPreviewable())
	assert.True(t, entries[3].IsPreviewable())
	assert.Empty(t, entries[1].FullPath, "caller fills in full paths")
}

func TestList_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, []ListItem{})
	}))

	entries, err := c.List(context.Background(), "/output")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestList_ServerErrorAfterRetries(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "disk on fire"})
	}))

	_, err := c.List(context.Background(), "/output")
	require.Error(t, err)

	var se *model.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "disk on fire", se.Message)
}

func TestList_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	c, err := New(Config{BaseURL: base, Retry: retry.Config{MaxAttempts: 1}})
	require.NoError(t, err)

	_, err = c.List(context.Background(), "/output")
	assert.True(t, model.IsNetwork(err), "got %v", err)
}

func TestRename_SendsNewPath(t *testing.T) {
	var gotPath string
	var body RenameRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.Rename(context.Background(), "/output/old name.png", "/output/new.png")
	require.NoError(t, err)
	assert.Equal(t, "/api/files/output/old name.png", gotPath)
	assert.Equal(t, "/output/new.png", body.Filename)
}

func TestRename_MapsConflictAndNotFound(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusConflict, model.IsConflict},
		{http.StatusNotFound, model.IsNotFound},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var calls int32
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				writeJSON(w, tc.status, ErrorResponse{Error: "nope"})
			}))

			err := c.Rename(context.Background(), "/output/a", "/output/b")
			assert.True(t, tc.check(err), "got %v", err)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "mutations are not retried")
		})
	}
}

func TestDeleteMany_Body(t *testing.T) {
	var body FileListRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/files/delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to delete 1 of 2 items"})
	}))

	err := c.DeleteMany(context.Background(), "/output", []string{"/output/a", "/output/b"})
	assert.Equal(t, "/output", body.URI)
	assert.Equal(t, []string{"/output/a", "/output/b"}, body.FileList)

	var se *model.ServerError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "1 of 2")
}

func TestUploadAndCreateFolder_Multipart(t *testing.T) {
	type received struct {
		uri     string
		folders []string
		files   map[string]string
	}
	var got received

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		got = received{
			uri:     r.FormValue("uri"),
			folders: r.MultipartForm.Value["folders[]"],
			files:   map[string]string{},
		}
		for _, fh := range r.MultipartForm.File["files[]"] {
			f, err := fh.Open()
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			f.Close()
			got.files[fh.Filename] = string(data)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, c.CreateFolder(context.Background(), "/output/x", "new folder"))
	assert.Equal(t, "/output/x", got.uri)
	assert.Equal(t, []string{"new folder"}, got.folders)
	assert.Empty(t, got.files)

	err := c.Upload(context.Background(), "/output/x", []model.UploadFile{
		{Name: "a.txt", Body: strings.NewReader("alpha")},
		{Name: "b.png", Body: strings.NewReader("beta")},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.txt": "alpha", "b.png": "beta"}, got.files)
}

func TestArchiveLifecycle(t *testing.T) {
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/files/archive", func(w http.ResponseWriter, r *http.Request) {
		var req FileListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"/output/a"}, req.FileList)
		writeJSON(w, http.StatusOK, ArchiveResponse{TempName: "a-20240101T000000Z.zip"})
	})
	mux.HandleFunc("GET /api/files/archive/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PK-zip-bytes"))
	})
	mux.HandleFunc("DELETE /api/files/archive/{name}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("name")
		w.WriteHeader(http.StatusNoContent)
	})
	c := testClient(t, mux)
	ctx := context.Background()

	id, err := c.Archive(ctx, "/output", []string{"/output/a"})
	require.NoError(t, err)
	assert.Equal(t, "a-20240101T000000Z.zip", id)

	body, err := c.FetchArchive(ctx, id)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "PK-zip-bytes", string(data))

	require.NoError(t, c.DeleteArchive(ctx, id))
	assert.Equal(t, id, deleted)
}

func TestArchive_MissingName(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ArchiveResponse{})
	}))

	_, err := c.Archive(context.Background(), "/output", []string{"/output/a"})
	var se *model.ServerError
	assert.ErrorAs(t, err, &se)
}

func TestPreview_ThumbnailQuery(t *testing.T) {
	var query string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte("png"))
	}))

	rc, err := c.Preview(context.Background(), "/output/cat.png", true)
	require.NoError(t, err)
	rc.Close()
	assert.Contains(t, query, "preview=true")
	assert.Contains(t, query, "uri=%2Foutput%2Fcat.png")
}
