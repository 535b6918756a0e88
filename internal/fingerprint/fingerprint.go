// Package fingerprint derives the fixed-width identities used for state
// file names, Message-IDs and maildir file names.
//
// A fingerprint is SHA-1 over the fields in a declared order, each field
// followed by a NUL separator even when absent. The first 128 bits of the
// digest are folded to 64 bits by XOR-ing the two halves and rendered as 16
// lowercase hex characters.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/bryan-buckman/feedmail/internal/model"
)

// Size is the length of a rendered fingerprint.
const Size = 16

const separator = 0x00

// Of hashes fields in order. Empty strings count as absent.
func Of(fields ...string) string {
	h := sha1.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{separator})
	}
	sum := h.Sum(nil)

	var folded [8]byte
	for i := range folded {
		folded[i] = sum[i] ^ sum[i+8]
	}
	return hex.EncodeToString(folded[:])
}

// URL is the key of a feed's state record.
func URL(url string) string {
	return Of(url)
}

// Feed identifies a feed by id and link only, so the root message keeps
// its Message-ID when the description changes.
func Feed(f *model.Feed) string {
	return Of(f.ID, f.Link)
}

// Identity is the stable identity of an entry: its id, link and the
// owning feed's link. Used for Message-ID.
func Identity(e *model.Entry) string {
	return Of(e.ID, e.Link, e.FeedLink())
}

// Change covers every delivered field, so an edited entry gets a new
// value. Used for maildir file names.
func Change(e *model.Entry) string {
	return Of(e.ID, e.Link, e.Language, e.Subject, e.Date, e.Text.Content, e.FeedLink())
}
