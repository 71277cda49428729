package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/model"
)

// mkdirCmd represents the mkdir command
var mkdirCmd = &cobra.Command{
	Use:   "mkdir <remote-path>",
	Short: "Create a folder",
	Long: `Create a folder. The parent must already exist and the name must pass
the same checks as the interactive browser.

Examples:
  rbrowse mkdir renders/2024
  rbrowse mkdir /output/inputs`,
	Args: cobra.ExactArgs(1),
	RunE: makeFolder,
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
}

func makeFolder(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	target := resolvePath(cfg.Server.Root, args[0])
	if target == cfg.Server.Root {
		return fmt.Errorf("%s already exists", target)
	}

	dir, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	parent := model.Parent(target)
	ctrl, err := openAt(ctx, dir, cfg.Server.Root, parent, notifierOption(cmd))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", parent, err)
	}

	ctrl.BeginCreateFolder()
	if err := ctrl.Accept(ctx, model.Base(target)); err != nil {
		ctrl.Cancel()
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", target)
	return nil
}
