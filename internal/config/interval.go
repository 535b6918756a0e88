package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Interval is a duration written either as a Go duration ("1h30m") or as a
// whole number with an optional d, h, m or s unit ("2d", "90").
type Interval time.Duration

// Duration returns i as a time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interval) UnmarshalText(text []byte) error {
	d, err := ParseInterval(string(text))
	if err != nil {
		return err
	}
	*i = Interval(d)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (i Interval) MarshalText() ([]byte, error) {
	return []byte(time.Duration(i).String()), nil
}

// ParseInterval parses an Interval. Bare numbers are seconds.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}

	unit := time.Second
	num := s
	switch s[len(s)-1] {
	case 'd':
		unit, num = 24*time.Hour, s[:len(s)-1]
	case 'h':
		unit, num = time.Hour, s[:len(s)-1]
	case 'm':
		unit, num = time.Minute, s[:len(s)-1]
	case 's':
		num = s[:len(s)-1]
	}
	if n, err := strconv.ParseInt(num, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("interval %q: must not be negative", s)
		}
		if n > math.MaxInt64/int64(unit) {
			return 0, fmt.Errorf("interval %q: too large", s)
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("interval %q: want a duration such as 90s, 15m, 2h or 1d", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("interval %q: must not be negative", s)
	}
	return d, nil
}
