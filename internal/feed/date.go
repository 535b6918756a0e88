package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// rfc822Zones are the named zones RFC 822 allows besides UT and GMT.
// dateparse reads an unknown abbreviation as a zero offset.
var rfc822Zones = map[string]string{
	"EST": "-0500", "EDT": "-0400",
	"CST": "-0600", "CDT": "-0500",
	"MST": "-0700", "MDT": "-0600",
	"PST": "-0800", "PDT": "-0700",
}

// ParseDate parses a feed-supplied date. RFC 822/1123 (with numeric or
// named zones), RFC 3339, bare ISO dates and mm/dd/yy are accepted; values
// without a zone are taken as UTC. ok is false for blank or unparseable
// input.
func ParseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(numericZone(s), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// numericZone rewrites a trailing North American zone name to its offset.
func numericZone(s string) string {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return s
	}
	if off, ok := rfc822Zones[strings.ToUpper(s[i+1:])]; ok {
		return s[:i+1] + off
	}
	return s
}
