package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/explorer"
)

var deleteForce bool

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <remote-path>...",
	Short: "Delete files or folders",
	Long: `Delete one or more remote files or folders. Folders are removed with
their contents. Paths in the same folder are deleted in one request.

Examples:
  rbrowse delete renders/old.png             # Delete a single file
  rbrowse delete renders/a.png renders/b.png # Delete several files
  rbrowse delete renders/tmp --force         # Delete without confirmation`,
	Args: cobra.MinimumNArgs(1),
	RunE: deleteEntries,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "force delete without confirmation")
}

func deleteEntries(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	dir, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	paths := make([]string, len(args))
	for i, arg := range args {
		paths[i] = resolvePath(cfg.Server.Root, arg)
		if paths[i] == cfg.Server.Root {
			return fmt.Errorf("refusing to delete the root folder %s", paths[i])
		}
	}

	parents, groups := groupByParent(paths)
	for _, parent := range parents {
		ctrl, err := openAt(ctx, dir, cfg.Server.Root, parent,
			notifierOption(cmd),
			explorer.WithSettings(confirmFlag(!deleteForce)),
		)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", parent, err)
		}
		if err := selectPaths(ctx, ctrl, groups[parent]); err != nil {
			return err
		}
		if err := ctrl.DeleteSelected(ctx); err != nil {
			return err
		}

		p, ok := ctrl.Pending()
		if !ok {
			continue
		}
		if !askYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), p.Message) {
			ctrl.Cancel()
			fmt.Fprintln(cmd.OutOrStdout(), "Delete cancelled.")
			continue
		}
		logrus.Infof("Deleting %d entries in %s", len(p.Targets), parent)
		if err := ctrl.Accept(ctx, ""); err != nil {
			return err
		}
	}
	return nil
}
