package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/explorer"
	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

var (
	downloadOutput     string
	downloadNoProgress bool
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <remote-path>...",
	Short: "Download files or folders as a zip archive",
	Long: `Download remote files or folders. The server packs them into a zip
archive, which is saved locally and then removed from the server. Paths from
different folders produce one archive per folder.

Examples:
  rbrowse download renders/2024              # Download a folder
  rbrowse download renders/a.png renders/b.png
  rbrowse download renders -o /tmp/out       # Save into /tmp/out`,
	Args: cobra.MinimumNArgs(1),
	RunE: downloadEntries,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "local directory (default is explorer.download_dir)")
	downloadCmd.Flags().BoolVar(&downloadNoProgress, "no-progress", false, "disable progress output")
}

func downloadEntries(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	outDir := downloadOutput
	if outDir == "" {
		outDir = cfg.Explorer.DownloadDir
	}
	saver, err := utils.NewDownloadSaver(outDir)
	if err != nil {
		return fmt.Errorf("failed to prepare download directory: %w", err)
	}
	if !downloadNoProgress && !quiet {
		saver.Progress = func(name string, r io.Reader) io.Reader {
			return utils.NewProgressReader(r, cmd.ErrOrStderr(), 0, "Downloading "+name)
		}
	}

	dir, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	paths := make([]string, len(args))
	for i, arg := range args {
		paths[i] = resolvePath(cfg.Server.Root, arg)
	}

	root := cfg.Server.Root
	var rest []string
	for _, p := range paths {
		if p != root {
			rest = append(rest, p)
			continue
		}
		// the root has no listed parent, so archive it as a folder
		ctrl, err := openAt(ctx, dir, root, root, notifierOption(cmd), explorer.WithSaver(saver))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", root, err)
		}
		_, err = ctrl.DownloadFolder(ctx, model.Entry{Name: model.Base(root), Kind: model.KindFolder, FullPath: root})
		ctrl.Wait()
		if err != nil {
			return err
		}
	}

	parents, groups := groupByParent(rest)
	for _, parent := range parents {
		ctrl, err := openAt(ctx, dir, cfg.Server.Root, parent,
			notifierOption(cmd),
			explorer.WithSaver(saver),
		)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", parent, err)
		}
		if err := selectPaths(ctx, ctrl, groups[parent]); err != nil {
			return err
		}
		_, err = ctrl.DownloadSelected(ctx)
		// the archive is removed from the server in the background
		ctrl.Wait()
		if err != nil {
			return err
		}
	}
	return nil
}
