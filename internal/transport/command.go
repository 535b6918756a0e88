package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bryan-buckman/feedmail/internal/fault"
)

type commandFetcher struct {
	shell string
}

// Fetch runs cmd and returns its standard output. A failing command that
// printed nothing means "not modified"; one that printed something is an
// error.
func (f *commandFetcher) Fetch(ctx context.Context, cmd string) (*Response, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, fault.Transport("run command", errors.New("empty command"))
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, f.shell, "-c", cmd)
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return &Response{Body: io.NopCloser(&stdout)}, nil
	case errors.As(err, &exitErr) && stdout.Len() == 0:
		return &Response{NotModified: true}, nil
	case errors.As(err, &exitErr):
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = exitErr.Error()
		}
		return nil, fault.Transport("run command", fmt.Errorf("process terminated with failure: %s", msg))
	default:
		return nil, fault.Transport("run command", err)
	}
}

type fileFetcher struct{}

// Fetch reads a local file. Its modification time is reported as
// Last-Modified; files are always read in full.
func (f *fileFetcher) Fetch(u *url.URL) (*Response, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fault.Transport("stat feed file", err)
	}
	modified := info.ModTime().UTC().Truncate(time.Second)
	fh, err := os.Open(path)
	if err != nil {
		return nil, fault.Transport("open feed file", err)
	}
	return &Response{Body: fh, LastModified: modified}, nil
}
