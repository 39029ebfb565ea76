// Package config handles configuration loading and validation for yearn.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/yearn/internal/core/styles"
)

// User selection modes.
const (
	UsersListed = "listed" // only users named in users.names
	UsersAll    = "all"    // users.names plus every namespace found in the data directory
)

// ErrUnknownUser is returned when a per-user lookup names an invalid user.
var ErrUnknownUser = errors.New("unknown user")

// Config holds the application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Users      UsersConfig      `yaml:"users"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Skills     map[string]Skill `yaml:"skills"`
	Signals    SignalsConfig    `yaml:"signals"`
	Engine     Engine           `yaml:"engine"`
	Theme      string           `yaml:"theme"`
	DataDir    string           `yaml:"-"` // set by caller, not from config file
}

// DatabaseConfig configures the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// ScheduleConfig controls the cadence of `yearn run`.
type ScheduleConfig struct {
	CycleInterval   time.Duration `yaml:"cycle_interval"`
	ExecuteInterval time.Duration `yaml:"execute_interval"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	// LockTTL bounds how long a crashed process can hold an agent lock.
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// UsersConfig selects which user namespaces a pass iterates.
type UsersConfig struct {
	Mode  string   `yaml:"mode"`
	Names []string `yaml:"names"`
}

// ClassifierConfig defines the external command that answers classification
// requests. The command template receives .Task and .RequestFile.
type ClassifierConfig struct {
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// Skill maps a plan-step skill identifier to a shell command template. The
// template receives .Desire, .Step and .Inputs.
type Skill struct {
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// SignalsConfig bounds how many signals of each kind are gathered.
type SignalsConfig struct {
	Limit int `yaml:"limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
		Schedule: ScheduleConfig{
			CycleInterval:   15 * time.Minute,
			ExecuteInterval: 5 * time.Minute,
			SweepInterval:   5 * time.Minute,
			LockTTL:         30 * time.Minute,
		},
		Users: UsersConfig{
			Mode:  UsersAll,
			Names: []string{},
		},
		Classifier: ClassifierConfig{
			Timeout: 2 * time.Minute,
		},
		Skills:  map[string]Skill{},
		Signals: SignalsConfig{Limit: 20},
		Engine:  DefaultEngine(),
		Theme:   styles.DefaultTheme,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Schedule.CycleInterval == 0 {
		c.Schedule.CycleInterval = defaults.Schedule.CycleInterval
	}
	if c.Schedule.ExecuteInterval == 0 {
		c.Schedule.ExecuteInterval = defaults.Schedule.ExecuteInterval
	}
	if c.Schedule.SweepInterval == 0 {
		c.Schedule.SweepInterval = defaults.Schedule.SweepInterval
	}
	if c.Schedule.LockTTL == 0 {
		c.Schedule.LockTTL = defaults.Schedule.LockTTL
	}
	if c.Users.Mode == "" {
		c.Users.Mode = defaults.Users.Mode
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = defaults.Classifier.Timeout
	}
	if c.Signals.Limit == 0 {
		c.Signals.Limit = defaults.Signals.Limit
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.Skills == nil {
		c.Skills = map[string]Skill{}
	}
	c.Engine.applyDefaults()
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Users.Mode != UsersListed && c.Users.Mode != UsersAll {
		return fmt.Errorf("users.mode must be %q or %q, got %q", UsersListed, UsersAll, c.Users.Mode)
	}

	if c.Users.Mode == UsersListed && len(c.Users.Names) == 0 {
		return fmt.Errorf("users.names cannot be empty when users.mode is %q", UsersListed)
	}

	if c.Schedule.CycleInterval < 0 || c.Schedule.ExecuteInterval < 0 || c.Schedule.SweepInterval < 0 {
		return fmt.Errorf("schedule intervals must be positive")
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("unknown theme %q, available: %v", c.Theme, styles.ThemeNames())
	}

	for _, name := range c.Users.Names {
		if err := ValidateUserName(name); err != nil {
			return err
		}
	}

	for name, skill := range c.Skills {
		if skill.Command == "" {
			return fmt.Errorf("skill %q: command is required", name)
		}
	}

	return c.Engine.Validate()
}

// UsersDir returns the directory holding per-user namespaces.
func (c *Config) UsersDir() string {
	return filepath.Join(c.DataDir, "users")
}

// UserDir returns the directory for a single user's namespace.
func (c *Config) UserDir(user string) string {
	return filepath.Join(c.UsersDir(), user)
}

// UserConfigFile returns the path of a user's engine overlay file.
func (c *Config) UserConfigFile(user string) string {
	return filepath.Join(c.UserDir(user), "config.yaml")
}

// LoadEngine returns the engine config for a user: the global engine section
// with the user's overlay file merged on top.
func (c *Config) LoadEngine(user string) (Engine, error) {
	if err := ValidateUserName(user); err != nil {
		return Engine{}, err
	}

	eng := c.Engine.clone()

	path := c.UserConfigFile(user)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return eng, nil
	case err != nil:
		return Engine{}, fmt.Errorf("read user config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &eng); err != nil {
		return Engine{}, fmt.Errorf("parse user config %s: %w", path, err)
	}

	eng.applyDefaults()
	if err := eng.Validate(); err != nil {
		return Engine{}, fmt.Errorf("invalid user config for %q: %w", user, err)
	}

	return eng, nil
}

// ValidateUserName rejects names that cannot safely be used as a namespace.
func ValidateUserName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrUnknownUser, name)
	}
	return nil
}
