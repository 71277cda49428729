package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/model"
)

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <remote-path> <new-name>",
	Short: "Rename a file or folder in place",
	Long: `Rename a file or folder. The new name stays in the same folder.

Examples:
  rbrowse rename renders/final.png final-v2.png
  rbrowse rename renders/2023 archive-2023`,
	Args: cobra.ExactArgs(2),
	RunE: renameEntry,
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

func renameEntry(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	target := resolvePath(cfg.Server.Root, args[0])
	newName := args[1]

	dir, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	parent := model.Parent(target)
	ctrl, err := openAt(ctx, dir, cfg.Server.Root, parent, notifierOption(cmd))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", parent, err)
	}

	entry := model.Entry{FullPath: target}
	if err := ctrl.BeginRename(entry); err != nil {
		return err
	}
	if err := ctrl.Accept(ctx, newName); err != nil {
		ctrl.Cancel()
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", target, model.Join(parent, newName))
	return nil
}
