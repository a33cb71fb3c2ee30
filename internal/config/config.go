// Package config loads and validates iliassync configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config captures all knobs of a sync run, loaded from file, environment
// and command-line flags.
type Config struct {
	// Output is the sync target directory.
	Output string `mapstructure:"output"`
	// Jobs bounds concurrently running crawl units.
	Jobs int `mapstructure:"jobs"`
	// Rate is the outbound request budget per minute.
	Rate float64 `mapstructure:"rate"`
	// Force re-downloads content that is already present locally.
	Force bool `mapstructure:"force"`

	SkipFiles   bool `mapstructure:"skip-files"`
	Videos      bool `mapstructure:"videos"`
	CheckVideos bool `mapstructure:"check-videos"`
	Forum       bool `mapstructure:"forum"`
	SavePages   bool `mapstructure:"save-ilias-pages"`

	UserAgent   string `mapstructure:"user-agent"`
	SessionFile string `mapstructure:"session-file"`
	Development bool   `mapstructure:"development"`
}

// Load builds a Config from defaults, an optional config file, ILIASSYNC_*
// environment variables and the given flag set, in ascending precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ILIASSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.SessionFile == "" && cfg.Output != "" {
		cfg.SessionFile = filepath.Join(cfg.Output, ".iliassession")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key; environment variables are only consulted
// for keys Viper knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "")
	v.SetDefault("jobs", 1)
	v.SetDefault("rate", 8)
	v.SetDefault("force", false)
	v.SetDefault("skip-files", false)
	v.SetDefault("videos", true)
	v.SetDefault("check-videos", false)
	v.SetDefault("forum", false)
	v.SetDefault("save-ilias-pages", false)
	v.SetDefault("user-agent", "iliassync/0.3")
	v.SetDefault("session-file", "")
	v.SetDefault("development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output directory must be set")
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be > 0")
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be > 0")
	}
	return nil
}
