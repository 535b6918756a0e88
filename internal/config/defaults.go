package config

import "time"

const (
	defaultConfigPath       = "~/.config/feedmail/config.toml"
	defaultMaildir          = "~/Mail/feeds"
	defaultUserAgent        = "feedmail/1.0"
	defaultTimeout          = 30 * time.Second
	defaultMinCacheInterval = 0
	defaultHostInterval     = time.Second
	defaultMaxRedirects     = 5
	defaultReplyTo          = true
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Paths: Paths{
			Maildir: defaultMaildir,
		},
		Fetch: Fetch{
			UserAgent:        defaultUserAgent,
			Timeout:          Interval(defaultTimeout),
			MinCacheInterval: Interval(defaultMinCacheInterval),
			HostInterval:     Interval(defaultHostInterval),
			MaxRedirects:     defaultMaxRedirects,
		},
		Mail: Mail{
			ReplyTo: defaultReplyTo,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
