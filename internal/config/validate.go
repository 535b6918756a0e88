package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateFeeds()
}

func (c *Config) validatePaths() error {
	if c.Paths.Maildir == "" {
		return errors.New("paths.maildir must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxRedirects < 0 {
		return errors.New("fetch.max_redirects must not be negative")
	}
	if c.Fetch.Proxy != "" {
		u, err := url.Parse(c.Fetch.Proxy)
		if err != nil {
			return fmt.Errorf("fetch.proxy: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("fetch.proxy %q: want scheme://host[:port]", c.Fetch.Proxy)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q: want console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: want debug, info, warn or error", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateFeeds() error {
	for i, f := range c.Feeds {
		if f.URL == "" {
			return fmt.Errorf("feeds[%d].url must be set", i)
		}
	}
	return nil
}
