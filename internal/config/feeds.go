package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/opml"
)

// FeedList merges [[feeds]], url_files and opml_files in that order. A URL
// listed twice keeps its first entry, so per-feed overrides in [[feeds]]
// win over plain lists.
func (c *Config) FeedList() ([]Feed, error) {
	var out []Feed
	seen := make(map[string]bool)
	add := func(f Feed) {
		if f.URL == "" || seen[f.URL] {
			return
		}
		seen[f.URL] = true
		out = append(out, f)
	}

	for _, f := range c.Feeds {
		add(f)
	}
	for _, path := range c.URLFiles {
		urls, err := readFile(path, ReadURLList)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			add(Feed{URL: u})
		}
	}
	for _, path := range c.OPMLFiles {
		subs, err := readFile(path, opml.Parse)
		if err != nil {
			return nil, err
		}
		for _, s := range subs {
			add(Feed{URL: s.URL, Title: s.Title})
		}
	}
	return out, nil
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fault.Config("feed list", err)
	}
	defer f.Close()
	items, err := parse(f)
	if err != nil {
		return nil, fault.Config("feed list "+path, err)
	}
	return items, nil
}

// ReadURLList reads one URL per line. Blank lines and lines starting with
// '#' are ignored.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
