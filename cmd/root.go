package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/HaiFongPan/rbrowse/internal/config"
	"github.com/HaiFongPan/rbrowse/internal/tui"
	img "github.com/HaiFongPan/rbrowse/internal/tui/image"
	"github.com/HaiFongPan/rbrowse/internal/utils"
)

var (
	cfgFile      string
	verbose      bool
	quiet        bool
	globalConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rbrowse",
	Short: "Browse and manage a remote output directory",
	Long: `rbrowse is a terminal file browser for a remote output directory served
over an HTTP file API or stored in an R2/S3 bucket. It supports navigating,
multi-selection, rename, delete, new folders, uploads, zip downloads and
image previews, with configuration from TOML files, environment variables
and CLI flags.

Example usage:
  rbrowse                         # Interactive file browser
  rbrowse list /output/renders
  rbrowse upload a.png b.png --to /output/inputs
  rbrowse download /output/renders
  rbrowse serve --dir ./output`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// When called without subcommands, directly enter interactive file browser
		return runBrowser(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ~/.rbrowse/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	globalConfig, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Configure logging
	setupLogging()

	return nil
}

// setupLogging configures the global logger based on config and flags
func setupLogging() {
	level := globalConfig.Log.Level
	if verbose {
		level = "debug"
	} else if quiet {
		level = "error"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Invalid log level %s, using info", level)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)

	// Redirect all logs to file to prevent UI interference
	logDir := "/tmp/rbrowse"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logrus.Warnf("Failed to create log directory %s: %v", logDir, err)
	} else {
		logFile := filepath.Join(logDir, "app.log")
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			logrus.Warnf("Failed to open log file %s: %v", logFile, err)
		} else {
			logrus.SetOutput(file)
		}
	}

	if globalConfig.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableTimestamp: quiet,
			FullTimestamp:    verbose,
		})
	}
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return globalConfig
}

// runBrowser runs the interactive file browser against the configured backend
func runBrowser(ctx context.Context) error {
	cfg := globalConfig
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	data, err := config.LoadUserData()
	if err != nil {
		logrus.Warnf("Failed to load user data: %v", err)
	}
	settings := config.NewSettings(data, cfg.Explorer)

	saver, err := utils.NewDownloadSaver(cfg.Explorer.DownloadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare download directory: %w", err)
	}

	model := tui.NewFileBrowserModel(backend, tui.Options{
		Title:     fmt.Sprintf("rbrowse • %s", describeBackend(cfg)),
		Root:      cfg.Server.Root,
		StartPath: settings.LastPath(),
		Timeout:   cfg.General.Timeout(),
		Prefs:     settings,
		Saver:     saver,
		Previewer: backend,
		Renderer:  img.NewRenderer(cfg.UI.ImagePreviewMethod),
	})

	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Set program reference in model for direct messaging
	model.SetProgram(program)

	_, err = program.Run()
	model.Controller().Wait()
	return err
}
