package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/config"
	"github.com/HaiFongPan/rbrowse/internal/explorer"
	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/r2"
	"github.com/HaiFongPan/rbrowse/internal/remote"
	"github.com/HaiFongPan/rbrowse/internal/retry"
	"github.com/HaiFongPan/rbrowse/internal/selection"
)

// backend is a directory API that can also serve image previews
type backend interface {
	explorer.Directory
	Preview(ctx context.Context, entryPath string, thumbnail bool) (io.ReadCloser, error)
}

// openBackend connects to the directory backend named in the config
func openBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.Server.Backend {
	case config.BackendR2:
		client, err := r2.NewClient(ctx, &cfg.R2, cfg.General.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("failed to create R2 client: %w", err)
		}
		logrus.Debugf("Using R2 bucket %s as %s", client.GetBucketName(), cfg.Server.Root)
		return client.Store(cfg.Server.Root), nil

	default:
		rc := retry.DefaultConfig()
		rc.MaxAttempts = cfg.General.MaxRetries + 1
		client, err := remote.New(remote.Config{
			BaseURL: cfg.Server.BaseURL,
			Timeout: cfg.General.Timeout(),
			Retry:   rc,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
		logrus.Debugf("Using file API at %s", client.BaseURL())
		return client, nil
	}
}

func describeBackend(cfg *config.Config) string {
	if cfg.Server.Backend == config.BackendR2 {
		return "r2://" + cfg.R2.BucketName
	}
	return cfg.Server.BaseURL
}

// logNotifier prints controller notifications for headless commands
type logNotifier struct {
	out io.Writer
}

func (n logNotifier) Notify(note explorer.Notification) {
	entry := logrus.WithField("summary", note.Summary)
	switch note.Level {
	case explorer.LevelError:
		entry.Error(note.Detail)
	case explorer.LevelWarning:
		entry.Warn(note.Detail)
	default:
		entry.Info(note.Detail)
	}
	if quiet && note.Level != explorer.LevelError {
		return
	}
	if note.Detail != "" {
		fmt.Fprintf(n.out, "%s: %s\n", note.Summary, note.Detail)
	} else {
		fmt.Fprintln(n.out, note.Summary)
	}
}

// confirmFlag is a fixed explorer.Settings for one command run
type confirmFlag bool

func (c confirmFlag) ConfirmDelete() bool { return bool(c) }

// resolvePath turns a command argument into a full virtual path under root
func resolvePath(root, arg string) string {
	if arg == "" || arg == "." {
		return root
	}
	if !strings.HasPrefix(arg, "/") {
		arg = root + "/" + arg
	}
	return path.Clean(arg)
}

// openAt builds a controller and walks it down to dir
func openAt(ctx context.Context, dir backend, root, target string, opts ...explorer.Option) (*explorer.Controller, error) {
	opts = append([]explorer.Option{explorer.WithRoot(root)}, opts...)
	ctrl := explorer.New(dir, opts...)
	if err := ctrl.Refresh(ctx); err != nil {
		return nil, err
	}
	if target == root {
		return ctrl, nil
	}
	if !strings.HasPrefix(target, root+"/") {
		return nil, fmt.Errorf("%s is outside %s", target, root)
	}

	current := root
	for i, name := range strings.Split(strings.TrimPrefix(target, root+"/"), "/") {
		current = model.Join(current, name)
		entry := model.Entry{Name: name, Kind: model.KindFolder, FullPath: current}
		if err := ctrl.EnterFolder(ctx, entry, i+1); err != nil {
			return nil, err
		}
	}
	return ctrl, nil
}

// selectPaths selects entries of the controller's current listing by full
// path, as ctrl-clicks would
func selectPaths(ctx context.Context, ctrl *explorer.Controller, paths []string) error {
	ctrl.ClearSelection()
	items := ctrl.Items()
	for _, p := range paths {
		index := -1
		for i, e := range items {
			if e.FullPath == p {
				index = i
				break
			}
		}
		if index < 0 {
			return fmt.Errorf("%s: %w", p, explorer.ErrNotListed)
		}
		// a repeated argument must not toggle the entry back off
		if ctrl.IsSelected(p) {
			continue
		}
		action := selection.Action{Kind: selection.Activate, Index: index, Mods: selection.Modifiers{Ctrl: true}}
		if err := ctrl.Dispatch(ctx, action); err != nil {
			return err
		}
	}
	return nil
}

// groupByParent splits paths by their parent directory, keeping order
func groupByParent(paths []string) ([]string, map[string][]string) {
	var order []string
	groups := make(map[string][]string)
	for _, p := range paths {
		parent := model.Parent(p)
		if _, ok := groups[parent]; !ok {
			order = append(order, parent)
		}
		groups[parent] = append(groups[parent], p)
	}
	return order, groups
}

// askYesNo prints prompt and reads a y/yes answer from in
func askYesNo(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s (y/N): ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	response := strings.ToLower(strings.TrimSpace(line))
	return response == "y" || response == "yes"
}

func notifierOption(cmd *cobra.Command) explorer.Option {
	return explorer.WithNotifier(logNotifier{out: cmd.ErrOrStderr()})
}
