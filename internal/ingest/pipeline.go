// Package ingest runs feeds through fetch, extraction, watermark filtering
// and mail delivery, one URL at a time.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bryan-buckman/feedmail/internal/feed"
	"github.com/bryan-buckman/feedmail/internal/fingerprint"
	"github.com/bryan-buckman/feedmail/internal/mail"
	"github.com/bryan-buckman/feedmail/internal/model"
	"github.com/bryan-buckman/feedmail/internal/state"
	"github.com/bryan-buckman/feedmail/internal/transport"
)

// Source is one feed URL of a batch.
type Source struct {
	URL string
	// From overrides the sender name for this URL only.
	From string
}

// Options configure a Pipeline.
type Options struct {
	// MinCacheInterval is the shortest time between two fetches of a feed,
	// whatever the server says.
	MinCacheInterval time.Duration
	// From overrides the sender name for every feed.
	From string
	// RootMessages enables the per-feed thread root message.
	RootMessages bool
	// Location renders message dates; time.Local when nil.
	Location *time.Location
}

// Result describes what happened to one URL.
type Result struct {
	URL         string
	Format      string
	Cached      bool // skipped because the cached record was still fresh
	NotModified bool // the source reported no change
	Entries     int  // entries in the document
	Delivered   int  // entry messages written to new/
	State       state.State
}

// Pipeline processes feed URLs.
type Pipeline struct {
	store      state.Store
	fetcher    transport.Fetcher
	dispatcher *feed.Dispatcher
	maildir    *mail.Maildir
	log        *slog.Logger
	opts       Options
	now        func() time.Time
}

// New builds a Pipeline.
func New(store state.Store, fetcher transport.Fetcher, maildir *mail.Maildir, logger *slog.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:      store,
		fetcher:    fetcher,
		dispatcher: feed.NewDispatcher(),
		maildir:    maildir,
		log:        logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Process fetches src and delivers its new entries. The state record is
// only written when the whole feed went through.
func (p *Pipeline) Process(ctx context.Context, src Source) (Result, error) {
	res := Result{URL: src.URL}
	log := p.log.With("url", src.URL, "feed", fingerprint.URL(src.URL))

	old, err := p.store.Load(src.URL)
	if err != nil {
		return res, err
	}
	res.State = old

	now := p.now()
	if old.Fresh(now) {
		res.Cached = true
		log.Debug("cached", "until", humanize.Time(old.Expires))
		return res, nil
	}

	resp, err := p.fetcher.Fetch(ctx, src.URL, transport.Validators{
		ETag:     old.ETag,
		Modified: old.LastSeen,
	})
	if err != nil {
		return res, err
	}

	next := old
	if resp.NotModified {
		res.NotModified = true
	} else {
		doc, err := p.decode(resp)
		if err != nil {
			return res, err
		}
		res.Format = doc.Format
		res.Entries = len(doc.Entries)
		if err := p.maildir.Prepare(); err != nil {
			return res, err
		}
		delivered, err := p.deliver(doc, old, &next, p.mailOptions(src), now)
		res.Delivered = delivered
		if err != nil {
			return res, err
		}
	}

	if resp.ETag != "" {
		next.ETag = resp.ETag
	}
	if !resp.Expires.IsZero() {
		next.Expires = resp.Expires
	}
	next.ExtendExpiry(now.Add(p.opts.MinCacheInterval))
	res.State = next

	if next.Equal(old) {
		return res, nil
	}
	if err := p.store.Save(next); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) decode(resp *transport.Response) (*feed.Document, error) {
	defer resp.Body.Close()
	return p.dispatcher.Decode(resp.Body)
}

func (p *Pipeline) mailOptions(src Source) mail.Options {
	from := p.opts.From
	if src.From != "" {
		from = src.From
	}
	return mail.Options{
		From:         from,
		RootMessages: p.opts.RootMessages,
		Location:     p.opts.Location,
	}
}

// deliver writes every entry newer than old's watermark and raises next's
// watermark. The root message goes out before the first entry, once.
func (p *Pipeline) deliver(doc *feed.Document, old state.State, next *state.State, opts mail.Options, now time.Time) (int, error) {
	rootDone := !opts.RootMessages || doc.Feed == nil
	delivered := 0
	var buf bytes.Buffer

	for _, e := range doc.Entries {
		date, dated := feed.ParseDate(e.Date)
		if dated {
			next.Observe(date)
		}
		if !old.IsNew(date, dated) {
			continue
		}

		if !rootDone {
			if err := p.deliverRoot(doc.Feed, opts); err != nil {
				return delivered, err
			}
			rootDone = true
		}

		buf.Reset()
		if !dated {
			date = time.Time{}
		}
		if err := mail.ComposeEntry(&buf, e, date, now, opts); err != nil {
			return delivered, fmt.Errorf("compose entry: %w", err)
		}
		created, err := p.maildir.Deliver(p.maildir.EntryPath(fingerprint.Change(e)), buf.Bytes())
		if err != nil {
			return delivered, err
		}
		if created {
			delivered++
		}
	}
	return delivered, nil
}

func (p *Pipeline) deliverRoot(f *model.Feed, opts mail.Options) error {
	var buf bytes.Buffer
	if err := mail.ComposeRoot(&buf, f, opts); err != nil {
		return fmt.Errorf("compose root: %w", err)
	}
	_, err := p.maildir.Deliver(p.maildir.RootPath(fingerprint.Feed(f)), buf.Bytes())
	return err
}
