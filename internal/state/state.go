// Package state persists the per-feed cache record that decides whether a
// feed is fetched at all and which of its entries are new.
package state

import (
	"time"
)

// State is the record kept for one feed URL.
type State struct {
	LastSeen time.Time // newest entry date delivered so far
	Expires  time.Time // no fetch before this instant
	ETag     string    // revalidation token from the last response
	URL      string
}

// Equal compares records at the one-second resolution they are stored with.
func (s State) Equal(o State) bool {
	return s.LastSeen.Unix() == o.LastSeen.Unix() &&
		s.Expires.Unix() == o.Expires.Unix() &&
		s.ETag == o.ETag &&
		s.URL == o.URL
}

// Fresh reports whether the cached response is still valid at now.
func (s State) Fresh(now time.Time) bool {
	return !s.Expires.IsZero() && !now.After(s.Expires)
}

// IsNew reports whether an entry dated date has not been delivered. Entries
// without a usable date are always new. Dates are compared at the
// one-second resolution of the stored watermark.
func (s State) IsNew(date time.Time, dated bool) bool {
	if !dated {
		return true
	}
	return date.Truncate(time.Second).After(s.LastSeen)
}

// Observe raises the watermark to date. It never moves backwards.
func (s *State) Observe(date time.Time) {
	date = date.Truncate(time.Second)
	if date.After(s.LastSeen) {
		s.LastSeen = date
	}
}

// ExtendExpiry makes sure the record stays fresh until at least until.
func (s *State) ExtendExpiry(until time.Time) {
	if s.Expires.Before(until) {
		s.Expires = until
	}
}

// Store loads and saves records keyed by feed URL.
type Store interface {
	// Load returns the record for url, or a zero record with URL set
	// when none exists.
	Load(url string) (State, error)
	// Save replaces the record for s.URL atomically.
	Save(s State) error
}
