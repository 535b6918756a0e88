package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeMail()
	c.normalizeLogging()
	for i := range c.Feeds {
		c.Feeds[i].URL = strings.TrimSpace(c.Feeds[i].URL)
		c.Feeds[i].Title = strings.TrimSpace(c.Feeds[i].Title)
		c.Feeds[i].From = strings.TrimSpace(c.Feeds[i].From)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Maildir) == "" {
		c.Paths.Maildir = defaultMaildir
	}
	if c.Paths.Maildir, err = expandPath(c.Paths.Maildir); err != nil {
		return fmt.Errorf("paths.maildir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	for i, p := range c.URLFiles {
		if c.URLFiles[i], err = expandPath(p); err != nil {
			return fmt.Errorf("url_files[%d]: %w", i, err)
		}
	}
	for i, p := range c.OPMLFiles {
		if c.OPMLFiles[i], err = expandPath(p); err != nil {
			return fmt.Errorf("opml_files[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
	c.Fetch.Proxy = strings.TrimSpace(c.Fetch.Proxy)
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = Interval(defaultTimeout)
	}
}

func (c *Config) normalizeMail() {
	c.Mail.From = strings.TrimSpace(c.Mail.From)
	c.Mail.Hostname = strings.TrimSpace(c.Mail.Hostname)
	if c.Mail.Hostname == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "localhost"
		}
		c.Mail.Hostname = host
	}
	c.Mail.Hostname = maildirSafe(c.Mail.Hostname)
}

// maildirSafe escapes the characters that would break a maildir name.
func maildirSafe(host string) string {
	return strings.NewReplacer("/", `\057`, ":", `\072`).Replace(host)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
