package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	// DefaultDirName is the config directory under the user home.
	DefaultDirName = ".creatorpulse"

	defaultCacheTTL         = 20 * time.Minute
	defaultRecentWindowDays = 180
	defaultRateLimit        = 120
	defaultRankingOutput    = "rankings.json"
	defaultRankingKeep      = 30
)

// Config represents app config object.
type Config struct {
	Upstream         string        `yaml:"upstream"`
	WebURL           string        `yaml:"web_url"`
	UserAgent        string        `yaml:"user_agent,omitempty"`
	CacheDSN         string        `yaml:"cache_dsn,omitempty"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	RecentWindowDays int           `yaml:"recent_window_days"`
	Interactions     string        `yaml:"interactions,omitempty"`
	RankingOutput    string        `yaml:"ranking_output"`
	RankingKinds     []string      `yaml:"ranking_kinds"`
	RankingKeep      int           `yaml:"ranking_keep"`
	RateLimit        int           `yaml:"rate_limit"`
	CORSOrigins      []string      `yaml:"cors_origins"`
}

// Default returns the config written on first run.
func Default() *Config {
	return &Config{
		Upstream:         "https://api.zeta-ai.io",
		WebURL:           "https://zeta-ai.io",
		CacheTTL:         defaultCacheTTL,
		RecentWindowDays: defaultRecentWindowDays,
		RankingOutput:    defaultRankingOutput,
		RankingKinds:     []string{"trending", "best", "new"},
		RankingKeep:      defaultRankingKeep,
		RateLimit:        defaultRateLimit,
		CORSOrigins:      []string{"*"},
	}
}

// RecentWindow is RecentWindowDays as a duration.
func (c *Config) RecentWindow() time.Duration {
	return time.Duration(c.RecentWindowDays) * 24 * time.Hour
}

// fillDefaults replaces zero values, so older files keep working.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Upstream == "" {
		c.Upstream = d.Upstream
	}
	if c.WebURL == "" {
		c.WebURL = d.WebURL
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.RecentWindowDays <= 0 {
		c.RecentWindowDays = d.RecentWindowDays
	}
	if c.RankingOutput == "" {
		c.RankingOutput = d.RankingOutput
	}
	if len(c.RankingKinds) == 0 {
		c.RankingKinds = d.RankingKinds
	}
	if c.RankingKeep <= 0 {
		c.RankingKeep = d.RankingKeep
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", configFileName, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	c.fillDefaults()
	return &c, nil
}

// GetOrCreateHomeDir returns the named directory under the user home.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
