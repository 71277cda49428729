package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/model"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

var (
	uploadTo         string
	uploadNoProgress bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <local-file>...",
	Short: "Upload local files into a remote folder",
	Long: `Upload one or more local files into a remote folder. Every name is
checked against the folder and the other files first; nothing is sent if
any name is rejected.

Examples:
  rbrowse upload image.jpg                      # Upload into the root folder
  rbrowse upload a.png b.png --to inputs/batch  # Upload into /output/inputs/batch
  rbrowse upload big.zip --no-progress          # Without the progress bar`,
	Args: cobra.MinimumNArgs(1),
	RunE: uploadFiles,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVarP(&uploadTo, "to", "t", "", "remote folder (default is the root folder)")
	uploadCmd.Flags().BoolVar(&uploadNoProgress, "no-progress", false, "disable progress bar")
}

func uploadFiles(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	target := resolvePath(cfg.Server.Root, uploadTo)

	files := make([]model.UploadFile, 0, len(args))
	for _, arg := range args {
		localPath := utils.ExpandHome(arg)
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		fileInfo, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}
		if fileInfo.IsDir() {
			return fmt.Errorf("%s is a directory", localPath)
		}

		var body io.Reader = file
		// Show progress bar for files larger than 100KB
		if !uploadNoProgress && !quiet && fileInfo.Size() > 1024*100 {
			progressReader := utils.NewProgressReader(file, cmd.ErrOrStderr(), fileInfo.Size(),
				fmt.Sprintf("Uploading %s", filepath.Base(localPath)))
			defer progressReader.Close()
			body = progressReader
		}

		files = append(files, model.UploadFile{
			Name: filepath.Base(localPath),
			Size: fileInfo.Size(),
			Body: body,
		})
	}

	dir, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	ctrl, err := openAt(ctx, dir, cfg.Server.Root, target, notifierOption(cmd))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	logrus.Infof("Uploading %d file(s) to %s", len(files), target)
	return ctrl.Upload(ctx, files)
}
