// Package config loads feedmail's TOML configuration and the feed lists it
// points to.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bryan-buckman/feedmail/internal/fault"
)

// Paths contains directory configuration.
type Paths struct {
	Maildir  string `toml:"maildir"`
	StateDir string `toml:"state_dir"` // defaults to the maildir
}

// Fetch contains transport configuration.
type Fetch struct {
	UserAgent        string   `toml:"user_agent"`
	Proxy            string   `toml:"proxy"`
	Timeout          Interval `toml:"timeout"`
	MinCacheInterval Interval `toml:"min_cache_interval"`
	HostInterval     Interval `toml:"host_interval"`
	MaxRedirects     int      `toml:"max_redirects"`
}

// Mail contains message composition configuration.
type Mail struct {
	From     string `toml:"from"`
	Hostname string `toml:"hostname"`
	ReplyTo  bool   `toml:"reply_to"` // thread entries under a per-feed root message
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Feed is one configured feed URL with its own overrides.
type Feed struct {
	URL   string `toml:"url"`
	Title string `toml:"title,omitempty"` // label for OPML export; not used in mail
	From  string `toml:"from,omitempty"`  // sender name for this URL only
}

// Config encapsulates all configuration values for feedmail.
type Config struct {
	Paths     Paths    `toml:"paths"`
	Fetch     Fetch    `toml:"fetch"`
	Mail      Mail     `toml:"mail"`
	Logging   Logging  `toml:"logging"`
	URLFiles  []string `toml:"url_files"`
	OPMLFiles []string `toml:"opml_files"`
	Feeds     []Feed   `toml:"feeds"`
}

// Load locates, parses, and validates a configuration file. A missing file
// at the default location yields the defaults; a missing file that was
// asked for explicitly is an error. Every error is a fault.ErrConfig.
func Load(path string) (*Config, string, bool, error) {
	cfg, resolved, exists, err := load(path)
	if err != nil {
		return nil, resolved, exists, fault.Config("", err)
	}
	return cfg, resolved, exists, nil
}

func load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if path != "" && !exists {
		return nil, resolvedPath, false, fmt.Errorf("config file %s does not exist", resolvedPath)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, resolvedPath, true, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, resolvedPath, true, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, exists, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolvedPath, exists, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return expanded, false, nil
	case err != nil:
		return "", false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return "", false, fmt.Errorf("config %s is a directory", expanded)
	}
	return expanded, true, nil
}

// StateDir is where state records live.
func (c *Config) StateDir() string {
	if c.Paths.StateDir != "" {
		return c.Paths.StateDir
	}
	return c.Paths.Maildir
}

// LockPath is the file locked for the duration of a run.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.Maildir, ".feedmail.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
