package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/server"
)

var (
	serveDir      string
	serveListen   string
	serveArchives string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a local directory over the file API",
	Long: `Serve a local directory as the browser's remote root over the HTTP file
API. Point server.base_url of another rbrowse at it.

Examples:
  rbrowse serve                          # Serve serve.dir on serve.listen
  rbrowse serve --dir ./output --listen :8188`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", "", "directory to serve (overrides serve.dir)")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (overrides serve.listen)")
	serveCmd.Flags().StringVar(&serveArchives, "archive-dir", "", "directory for temporary zip archives")
}

func serve(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dir := cfg.Serve.Dir
	if serveDir != "" {
		dir = serveDir
	}
	listen := cfg.Serve.Listen
	if serveListen != "" {
		listen = serveListen
	}

	srv, err := server.New(server.Config{
		Dir:        dir,
		Root:       cfg.Server.Root,
		BasePath:   cfg.Serve.BasePath,
		ArchiveDir: serveArchives,
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s%s\n", dir, listen, cfg.Serve.BasePath)
	return srv.ListenAndServe(ctx, listen)
}
