// Package config provides YAML-based configuration loading for ptp.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Resource names accepted by the backend.
const (
	ResourceNotes         = "notes"
	ResourceConsultations = "consultations"
)

// Defaults applied when a field is left empty.
const (
	DefaultStatePath     = "~/.ptp/state.db"
	DefaultLogPath       = "~/.ptp/ptp.log"
	DefaultHTTPTimeout   = 20 * time.Second
	DefaultPollInterval  = 5 * time.Second
	DefaultDashboardPort = 8090
)

// Config is the top-level ptp configuration, loaded from ptp.yaml.
type Config struct {
	Resource  string          `yaml:"resource"`
	StatePath string          `yaml:"state_path"`
	Store     StoreConfig     `yaml:"store"`
	HTTP      HTTPConfig      `yaml:"http"`
	Poll      PollConfig      `yaml:"poll"`
	Log       LogConfig       `yaml:"log"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// StoreConfig selects where session state is persisted. The sqlite driver
// uses StatePath; mysql requires a DSN.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// HTTPConfig holds backend client settings.
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PollConfig holds list refresh settings.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// DashboardConfig holds settings for the local web dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig configures chat notifications for status changes and digests.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack"`
	Discord ChatConfig `yaml:"discord"`
	Digest  string     `yaml:"digest"`
}

// ChatConfig holds credentials for a single chat platform.
type ChatConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Enabled reports whether both token and channel are set.
func (c ChatConfig) Enabled() bool {
	return c.Token != "" && c.Channel != ""
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Resource == "" {
		c.Resource = ResourceNotes
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	c.StatePath = ExpandHome(c.StatePath)
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogPath
	}
	c.Log.File = ExpandHome(c.Log.File)
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = DefaultDashboardPort
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Resource != ResourceNotes && c.Resource != ResourceConsultations {
		errs = append(errs, fmt.Sprintf("resource must be %q or %q, got %q", ResourceNotes, ResourceConsultations, c.Resource))
	}
	switch c.Store.Driver {
	case "sqlite":
	case "mysql":
		if c.Store.DSN == "" {
			errs = append(errs, "store.dsn is required for the mysql driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or mysql, got %q", c.Store.Driver))
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, "http.timeout must be positive")
	}
	if c.Poll.Interval < 0 {
		errs = append(errs, "poll.interval must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard.port %d is out of range", c.Dashboard.Port))
	}
	if c.Notify.Digest != "" {
		if _, err := cron.ParseStandard(c.Notify.Digest); err != nil {
			errs = append(errs, fmt.Sprintf("notify.digest: %v", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
