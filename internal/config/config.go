// Package config loads project settings from ecsgen.yaml and ECSGEN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file base name, without extension.
const FileName = "ecsgen"

// Config is the project configuration. Relative paths are relative to Root.
type Config struct {
	Root      string      `mapstructure:"-"`
	SpecsDir  string      `mapstructure:"specs_dir"`
	OutputDir string      `mapstructure:"output_dir"`
	Manifest  string      `mapstructure:"manifest"`
	Workers   int         `mapstructure:"workers"`
	Extension string      `mapstructure:"extension"`
	Watch     WatchConfig `mapstructure:"watch"`
	Log       LogConfig   `mapstructure:"log"`
}

// WatchConfig configures the watch loop.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Ignore   []string      `mapstructure:"ignore"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("specs_dir", "specs")
	v.SetDefault("output_dir", "generated")
	v.SetDefault("manifest", ".ecsgen/manifest.db")
	v.SetDefault("workers", 8)
	v.SetDefault("extension", ".cue")
	v.SetDefault("watch.debounce", "200ms")
	v.SetDefault("watch.ignore", []string{"**/.*", "**/*~"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads ecsgen.yaml (or .yml) from root. A missing file yields the
// defaults; environment variables such as ECSGEN_OUTPUT_DIR or
// ECSGEN_WATCH_DEBOUNCE override both.
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	v.SetEnvPrefix("ECSGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Root = root

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path resolves p against Root unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func validateConfig(cfg *Config) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", cfg.Workers)
	}
	if !strings.HasPrefix(cfg.Extension, ".") {
		return fmt.Errorf("extension must start with '.', got: %s", cfg.Extension)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got: %s", cfg.Watch.Debounce)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got: %s", cfg.Log.Format)
	}
	if cfg.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	return nil
}
