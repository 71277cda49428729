package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/model"
)

var (
	showSize bool
	showDate bool
	listRaw  bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [folder]",
	Short: "List a remote folder",
	Long: `List a remote folder, folders first, then by name. Relative paths are
resolved under the configured root.

Examples:
  rbrowse list                     # List the root folder
  rbrowse list renders/2024        # List /output/renders/2024
  rbrowse list --size=false        # Names and dates only
  rbrowse list --raw               # Byte sizes and RFC3339 dates`,
	Args: cobra.MaximumNArgs(1),
	RunE: listFolder,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&showSize, "size", true, "show file sizes")
	listCmd.Flags().BoolVar(&showDate, "date", true, "show modification dates")
	listCmd.Flags().BoolVar(&listRaw, "raw", false, "print exact sizes and timestamps")
}

func listFolder(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	target := cfg.Server.Root
	if len(args) > 0 {
		target = resolvePath(cfg.Server.Root, args[0])
	}

	dir, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	logrus.Debugf("Listing %s", target)
	ctrl, err := openAt(ctx, dir, cfg.Server.Root, target, notifierOption(cmd))
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", target, err)
	}

	return outputTable(cmd.OutOrStdout(), ctrl.Items())
}

func outputTable(out io.Writer, entries []model.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := "NAME\tTYPE"
	if showSize {
		header += "\tSIZE"
	}
	if showDate {
		header += "\tMODIFIED"
	}
	fmt.Fprintln(w, header)

	for _, e := range entries {
		name, kind := e.Name, string(e.Kind)
		if e.IsFolder() {
			name += "/"
		} else if e.Media != model.MediaNone {
			kind = string(e.Media)
		}
		line := name + "\t" + kind

		if showSize {
			line += "\t" + formatSize(e)
		}
		if showDate {
			line += "\t" + formatDate(e.UpdatedAt)
		}
		fmt.Fprintln(w, line)
	}

	return w.Flush()
}

func formatSize(e model.Entry) string {
	switch {
	case e.IsFolder():
		return "-"
	case listRaw:
		return fmt.Sprintf("%d", e.Size)
	default:
		return humanize.Bytes(uint64(max(e.Size, 0)))
	}
}

func formatDate(t time.Time) string {
	switch {
	case t.IsZero():
		return "-"
	case listRaw:
		return t.Format(time.RFC3339)
	default:
		return humanize.Time(t)
	}
}
