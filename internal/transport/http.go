package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/feedmail/internal/fault"
)

var errUnsupportedScheme = errors.New("unsupported URL scheme")

const defaultMaxRedirects = 5

type httpFetcher struct {
	client    *http.Client
	userAgent string
}

func newHTTPFetcher(opts Options) (*httpFetcher, error) {
	proxy := http.ProxyFromEnvironment
	if opts.Proxy != "" {
		pu, err := url.Parse(opts.Proxy)
		if err != nil || pu.Host == "" {
			return nil, fault.Config("proxy", fmt.Errorf("invalid proxy URL %q", opts.Proxy))
		}
		proxy = http.ProxyURL(pu)
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	transport := &http.Transport{
		Proxy: proxy,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
	}

	return &httpFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
	}, nil
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string, v Validators) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fault.Transport("create request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	switch {
	case v.ETag != "":
		req.Header.Set("If-None-Match", v.ETag)
	case !v.Modified.IsZero():
		req.Header.Set("If-Modified-Since", v.Modified.UTC().Format(http.TimeFormat))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fault.Transport("fetch feed", err)
	}

	out := &Response{
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		Expires:      expiresFrom(resp.Header),
		LastModified: parseHTTPTime(resp.Header.Get("Last-Modified")),
	}

	switch resp.StatusCode {
	case http.StatusOK:
		out.Body = resp.Body
		return out, nil
	case http.StatusNotModified:
		resp.Body.Close()
		out.NotModified = true
		if out.ETag == "" {
			out.ETag = v.ETag
		}
		return out, nil
	default:
		resp.Body.Close()
		return nil, fault.Transport("fetch feed", fmt.Errorf("HTTP error: %s", resp.Status))
	}
}

// expiresFrom prefers Cache-Control max-age, counted from the Date header,
// over Expires.
func expiresFrom(h http.Header) time.Time {
	for _, directive := range strings.Split(h.Get("Cache-Control"), ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.ParseInt(strings.Trim(value, `"`), 10, 64)
		if err != nil || secs < 0 {
			break
		}
		base := parseHTTPTime(h.Get("Date"))
		if base.IsZero() {
			base = time.Now()
		}
		return base.Add(time.Duration(secs) * time.Second)
	}
	return parseHTTPTime(h.Get("Expires"))
}

func parseHTTPTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
