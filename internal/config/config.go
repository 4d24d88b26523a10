package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config represents the artifact resolver's runtime configuration.
type Config struct {
	// General settings
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Catalogue settings
	CatalogueDir     string `mapstructure:"catalogue_dir"`
	StrictValidation bool   `mapstructure:"strict_validation"`

	// Extraction settings
	OutputDir      string        `mapstructure:"output_dir"`
	KeysFile       string        `mapstructure:"keys_file"`
	SuperglobDepth int           `mapstructure:"superglob_depth"`
	ExtractTimeout string        `mapstructure:"extract_timeout"`
	ChecksumAlgorithm string     `mapstructure:"checksum_algorithm"`

	// Session settings
	SaveHistory bool   `mapstructure:"save_history"`
	HistoryFile string `mapstructure:"history_file"`

	// Color settings
	ColorEnabled bool   `mapstructure:"color_enabled"`
	ColorMode    string `mapstructure:"color_mode"`

	Platform string `mapstructure:"platform"`
}

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		CatalogueDir:      "./artifacts",
		StrictValidation:  false,
		OutputDir:         "./artifactresolver-output",
		SuperglobDepth:    3,
		ExtractTimeout:    "20m",
		ChecksumAlgorithm: "sha256",
		SaveHistory:       true,
		HistoryFile:       ".artifactresolver_history",
		ColorEnabled:      true,
		ColorMode:         "auto",
		Platform:          runtime.GOOS,
	}
}

// Load loads configuration from file and environment, falling back to
// DefaultConfig values for anything unset.
func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("artifactresolver")
	viper.SetConfigType("yml")

	searchPaths := []string{"."}
	if runtime.GOOS == "windows" {
		if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			searchPaths = append(searchPaths, filepath.Join(programData, "ArtifactResolver"))
		}
	} else {
		searchPaths = append(searchPaths, "/etc/artifactresolver")
	}
	if home, err := homedir.Dir(); err == nil {
		searchPaths = append(searchPaths, home)
	}
	for _, path := range searchPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("ARTIFACTRESOLVER")
	viper.AutomaticEnv()
	viper.BindEnv("log_level", "ARTIFACTRESOLVER_LOG_LEVEL")
	viper.BindEnv("log_format", "ARTIFACTRESOLVER_LOG_FORMAT")
	viper.BindEnv("catalogue_dir", "ARTIFACTRESOLVER_CATALOGUE_DIR")
	viper.BindEnv("output_dir", "ARTIFACTRESOLVER_OUTPUT_DIR")
	viper.BindEnv("keys_file", "ARTIFACTRESOLVER_KEYS_FILE")
	viper.BindEnv("color_enabled", "ARTIFACTRESOLVER_COLOR_ENABLED")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks the configuration's closed-enum fields and duration
// strings.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	if _, err := time.ParseDuration(c.ExtractTimeout); err != nil {
		return fmt.Errorf("invalid extract timeout: %s", c.ExtractTimeout)
	}

	if c.SuperglobDepth < 1 {
		return fmt.Errorf("invalid superglob depth: %d (must be >= 1)", c.SuperglobDepth)
	}

	validAlgorithms := map[string]bool{"md5": true, "sha1": true, "sha256": true, "sha512": true}
	if !validAlgorithms[c.ChecksumAlgorithm] {
		return fmt.Errorf("invalid checksum algorithm: %s", c.ChecksumAlgorithm)
	}

	return nil
}

// GetExtractTimeout returns the extract timeout as a duration, falling back
// to 20 minutes on a malformed value.
func (c *Config) GetExtractTimeout() time.Duration {
	d, err := time.ParseDuration(c.ExtractTimeout)
	if err != nil {
		return 20 * time.Minute
	}
	return d
}

// EnsureOutputDir creates the configured output directory if absent.
func (c *Config) EnsureOutputDir() error {
	if c.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", c.OutputDir, err)
	}
	return nil
}
