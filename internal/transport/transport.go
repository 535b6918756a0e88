// Package transport turns a feed URL into a byte stream plus the cache
// validators the state cache needs.
//
// http(s) URLs are fetched with conditional requests, file URLs are read
// from disk and "system:" URLs run a shell command whose standard output is
// the document.
package transport

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bryan-buckman/feedmail/internal/fault"
)

// CommandPrefix marks a URL whose remainder is a shell command.
const CommandPrefix = "system:"

// Validators are the conditional-request hints replayed from the last run.
type Validators struct {
	ETag     string
	Modified time.Time // sent as If-Modified-Since when ETag is empty
}

// Response is the outcome of one fetch. When NotModified is set Body is nil.
type Response struct {
	Body         io.ReadCloser
	NotModified  bool
	ETag         string
	Expires      time.Time
	LastModified time.Time
}

// Fetcher retrieves feed documents.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, v Validators) (*Response, error)
}

// Options configures a Client.
type Options struct {
	UserAgent    string
	Proxy        string
	Timeout      time.Duration
	MaxRedirects int
	HostInterval time.Duration // minimum spacing of requests to one host
	Shell        string        // defaults to /bin/sh
}

// Client is the default Fetcher.
type Client struct {
	http    *httpFetcher
	command *commandFetcher
	file    *fileFetcher
	limiter *HostLimiter
}

// New builds a Client. A malformed proxy URL is a configuration error.
func New(opts Options) (*Client, error) {
	hf, err := newHTTPFetcher(opts)
	if err != nil {
		return nil, err
	}
	shell := opts.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Client{
		http:    hf,
		command: &commandFetcher{shell: shell},
		file:    &fileFetcher{},
		limiter: NewHostLimiter(opts.HostInterval),
	}, nil
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, rawURL string, v Validators) (*Response, error) {
	if cmd, ok := strings.CutPrefix(rawURL, CommandPrefix); ok {
		return c.command.Fetch(ctx, cmd)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fault.Transport("parse url", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if err := c.limiter.Wait(ctx, u.Host); err != nil {
			return nil, fault.Transport("rate limit", err)
		}
		return c.http.Fetch(ctx, rawURL, v)
	case "file":
		return c.file.Fetch(u)
	default:
		return nil, fault.Transport("fetch", &url.Error{Op: "fetch", URL: rawURL, Err: errUnsupportedScheme})
	}
}
