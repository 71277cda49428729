package cmd

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaiFongPan/rbrowse/internal/server"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"", "/output"},
		{".", "/output"},
		{"renders", "/output/renders"},
		{"renders/2024/", "/output/renders/2024"},
		{"/output/a/../b", "/output/b"},
		{"/elsewhere", "/elsewhere"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolvePath("/output", tt.arg), tt.arg)
	}
}

func TestGroupByParent(t *testing.T) {
	order, groups := groupByParent([]string{"/output/b/x", "/output/a", "/output/b/y"})

	assert.Equal(t, []string{"/output/b", "/output"}, order)
	assert.Equal(t, []string{"/output/b/x", "/output/b/y"}, groups["/output/b"])
	assert.Equal(t, []string{"/output/a"}, groups["/output"])
}

func TestAskYesNo(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		var out bytes.Buffer
		assert.Equal(t, want, askYesNo(strings.NewReader(input), &out, "Delete?"), input)
		assert.Equal(t, "Delete? (y/N): ", out.String())
	}
}

// cliFixture serves a temp directory over the file API and points a config
// file at it
type cliFixture struct {
	dir    string
	config string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "inner.txt"), []byte("inner"), 0o644))

	srv, err := server.New(server.Config{Dir: dir, ArchiveDir: t.TempDir()})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	config := filepath.Join(t.TempDir(), "config.toml")
	content := "[server]\nbase_url = \"" + ts.URL + "/api/files\"\n\n[general]\nmax_retries = 0\n"
	require.NoError(t, os.WriteFile(config, []byte(content), 0o644))

	return &cliFixture{dir: dir, config: config}
}

// run executes the root command with args and returns its stdout
func (f *cliFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(append([]string{"--config", f.config}, args...))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_AgainstFileAPI(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "", "list", "--raw")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "a/"))
	assert.True(t, strings.HasPrefix(lines[2], "b/"))
	assert.Contains(t, lines[3], "notes.txt")
	assert.Contains(t, lines[3], "5")

	out, err = f.run(t, "", "mkdir", "renders")
	require.NoError(t, err)
	assert.Contains(t, out, "Created /output/renders")
	assert.DirExists(t, filepath.Join(f.dir, "renders"))

	// 重名文件夹被本地校验拒绝
	_, err = f.run(t, "", "mkdir", "renders")
	require.Error(t, err)

	_, err = f.run(t, "", "rename", "notes.txt", "todo.txt")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(f.dir, "todo.txt"))
	assert.NoFileExists(t, filepath.Join(f.dir, "notes.txt"))

	local := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(local, []byte("uploaded"), 0o644))
	_, err = f.run(t, "", "upload", local, "--to", "renders", "--no-progress")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(f.dir, "renders", "upload.txt"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded", string(data))

	// 未确认时不删除
	out, err = f.run(t, "n\n", "delete", "todo.txt", "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Confirm delete todo.txt?")
	assert.Contains(t, out, "Delete cancelled.")
	assert.FileExists(t, filepath.Join(f.dir, "todo.txt"))

	_, err = f.run(t, "y\n", "delete", "todo.txt", "--force=false")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(f.dir, "todo.txt"))

	_, err = f.run(t, "", "delete", "a", "--force")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(f.dir, "a"))

	_, err = f.run(t, "", "delete", "missing.txt", "--force")
	require.Error(t, err)

	downloads := t.TempDir()
	_, err = f.run(t, "", "download", "b", "-o", downloads, "--no-progress")
	require.NoError(t, err)
	saved, err := filepath.Glob(filepath.Join(downloads, "*.zip"))
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	// 根目录整体下载
	rootDownloads := t.TempDir()
	_, err = f.run(t, "", "download", ".", "-o", rootDownloads, "--no-progress")
	require.NoError(t, err)
	saved, err = filepath.Glob(filepath.Join(rootDownloads, "output-*.zip"))
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	// 重复的路径只选中一次
	_, err = f.run(t, "", "delete", "b/inner.txt", "b/inner.txt", "--force")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(f.dir, "b", "inner.txt"))
}
