// Package fault classifies failures so the batch loop can tell a bad feed
// from an unusable working directory.
package fault

import (
	"errors"
	"fmt"
)

// Failure classes.
var (
	ErrConfig    = errors.New("configuration error")
	ErrTransport = errors.New("transport error")
	ErrParse     = errors.New("parse error")
	ErrResource  = errors.New("local resource error")
)

type classified struct {
	class error
	op    string
	err   error
}

func (c *classified) Error() string {
	if c.op == "" {
		return c.err.Error()
	}
	return fmt.Sprintf("%s: %v", c.op, c.err)
}

func (c *classified) Unwrap() []error {
	return []error{c.class, c.err}
}

func wrap(class error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, class) {
		if op == "" {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return &classified{class: class, op: op, err: err}
}

// Config marks err as a configuration error.
func Config(op string, err error) error { return wrap(ErrConfig, op, err) }

// Transport marks err as a transport error.
func Transport(op string, err error) error { return wrap(ErrTransport, op, err) }

// Parse marks err as a parse error.
func Parse(op string, err error) error { return wrap(ErrParse, op, err) }

// Resource marks err as a local resource error.
func Resource(op string, err error) error { return wrap(ErrResource, op, err) }

// IsFatal reports whether err must stop the whole run rather than just the
// feed being processed.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrResource)
}
