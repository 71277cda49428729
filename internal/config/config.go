package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	R2       R2Config       `mapstructure:"r2"`
	Log      LogConfig      `mapstructure:"log"`
	General  GeneralConfig  `mapstructure:"general"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	Serve    ServeConfig    `mapstructure:"serve"`
	UI       UIConfig       `mapstructure:"ui"`
}

// Backend names
const (
	BackendHTTP = "http"
	BackendR2   = "r2"
)

// ServerConfig selects and locates the directory backend the browser talks to
type ServerConfig struct {
	Backend string `mapstructure:"backend"`
	BaseURL string `mapstructure:"base_url"`
	Root    string `mapstructure:"root"`
}

// R2Config holds R2/S3 specific configuration
type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	// Prefix is the key prefix the browser root maps to
	Prefix string `mapstructure:"prefix"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GeneralConfig holds general application configuration
type GeneralConfig struct {
	DefaultTimeout int    `mapstructure:"default_timeout"`
	MaxRetries     int    `mapstructure:"max_retries"`
	ConfigPath     string `mapstructure:"config_path"`
}

// Timeout returns DefaultTimeout as a duration
func (g GeneralConfig) Timeout() time.Duration {
	return time.Duration(g.DefaultTimeout) * time.Second
}

// ExplorerConfig holds browsing behaviour defaults
type ExplorerConfig struct {
	ConfirmDelete bool   `mapstructure:"confirm_delete"`
	DownloadDir   string `mapstructure:"download_dir"`
}

// ServeConfig configures the local file API server
type ServeConfig struct {
	Listen   string `mapstructure:"listen"`
	Dir      string `mapstructure:"dir"`
	BasePath string `mapstructure:"base_path"`
}

// UIConfig holds user interface configuration
type UIConfig struct {
	ImagePreviewMethod string `mapstructure:"image_preview_method"`
}

// Load loads configuration from multiple sources with priority:
// 1. Command line flags (highest)
// 2. Environment variables
// 3. Configuration file
// 4. Defaults (lowest)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RBROWSE")
	v.AutomaticEnv()

	// Environment variable mappings
	v.BindEnv("server.backend", "RBROWSE_BACKEND")
	v.BindEnv("server.base_url", "RBROWSE_BASE_URL")
	v.BindEnv("server.root", "RBROWSE_ROOT")
	v.BindEnv("r2.account_id", "RBROWSE_ACCOUNT_ID")
	v.BindEnv("r2.access_key_id", "RBROWSE_ACCESS_KEY_ID")
	v.BindEnv("r2.access_key_secret", "RBROWSE_ACCESS_KEY_SECRET")
	v.BindEnv("r2.bucket_name", "RBROWSE_BUCKET_NAME")
	v.BindEnv("r2.endpoint", "RBROWSE_ENDPOINT")
	v.BindEnv("r2.region", "RBROWSE_REGION")
	v.BindEnv("r2.prefix", "RBROWSE_PREFIX")
	v.BindEnv("log.level", "RBROWSE_LOG_LEVEL")
	v.BindEnv("log.format", "RBROWSE_LOG_FORMAT")
	v.BindEnv("explorer.confirm_delete", "RBROWSE_CONFIRM_DELETE")
	v.BindEnv("explorer.download_dir", "RBROWSE_DOWNLOAD_DIR")
	v.BindEnv("serve.listen", "RBROWSE_SERVE_LISTEN")
	v.BindEnv("serve.dir", "RBROWSE_SERVE_DIR")
	v.BindEnv("ui.image_preview_method", "RBROWSE_UI_IMAGE_PREVIEW_METHOD")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")

		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rbrowse")
		v.AddConfigPath("/etc/rbrowse/")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we can use defaults and env vars
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.General.ConfigPath = v.ConfigFileUsed()

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.backend", BackendHTTP)
	v.SetDefault("server.base_url", "http://127.0.0.1:8188/api/files")
	v.SetDefault("server.root", "/output")

	// R2 defaults
	v.SetDefault("r2.endpoint", "auto")
	v.SetDefault("r2.region", "auto")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// General defaults
	v.SetDefault("general.default_timeout", 30)
	v.SetDefault("general.max_retries", 3)

	// Explorer defaults
	v.SetDefault("explorer.confirm_delete", true)
	v.SetDefault("explorer.download_dir", defaultDownloadDir())

	// Serve defaults
	v.SetDefault("serve.listen", "127.0.0.1:8188")
	v.SetDefault("serve.dir", ".")
	v.SetDefault("serve.base_path", "/api/files")

	// UI defaults
	v.SetDefault("ui.image_preview_method", "auto")
}

func defaultDownloadDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, "Downloads")
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(homeDir, ".rbrowse", "config.toml")
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	configPath := GetDefaultConfigPath()
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0700)
}
