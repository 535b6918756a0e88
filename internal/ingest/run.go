package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/bryan-buckman/feedmail/internal/fault"
)

// ErrPanic marks a URL whose processing panicked.
var ErrPanic = errors.New("panic while processing feed")

// Isolate runs fn and turns a panic into an error, so one broken feed
// cannot take the batch down with it.
func Isolate(fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, rvr, debug.Stack())
		}
	}()
	return fn()
}

// Summary totals a batch.
type Summary struct {
	Processed int
	Cached    int
	Failed    int
	Delivered int
}

// Run processes sources in order. A failing URL is logged and skipped;
// configuration and local resource errors stop the batch and are returned.
func (p *Pipeline) Run(ctx context.Context, sources []Source) (Summary, error) {
	var sum Summary
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		var res Result
		err := Isolate(func() error {
			var err error
			res, err = p.Process(ctx, src)
			return err
		})
		if err != nil {
			sum.Failed++
			p.log.Error("feed failed", "url", src.URL, "error", err)
			if fault.IsFatal(err) {
				return sum, err
			}
			continue
		}

		sum.Processed++
		sum.Delivered += res.Delivered
		switch {
		case res.Cached:
			sum.Cached++
		case res.NotModified:
			p.log.Info("feed not modified", "url", src.URL)
		default:
			p.log.Info("feed processed",
				"url", src.URL,
				"format", res.Format,
				"entries", res.Entries,
				"delivered", res.Delivered,
			)
		}
	}
	return sum, nil
}
