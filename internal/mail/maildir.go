package mail

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bryan-buckman/feedmail/internal/fault"
)

// Maildir delivers messages into a maildir. Names are derived from
// fingerprints, so delivering the same message twice leaves one file.
type Maildir struct {
	dir      string
	hostname string
}

// NewMaildir returns a maildir rooted at dir. Nothing is created until
// Prepare is called.
func NewMaildir(dir, hostname string) *Maildir {
	if hostname == "" {
		hostname = "localhost"
	}
	return &Maildir{dir: dir, hostname: hostname}
}

// Dir returns the maildir root.
func (m *Maildir) Dir() string {
	return m.dir
}

// Prepare creates tmp, new and cur.
func (m *Maildir) Prepare() error {
	for _, sub := range []string{"tmp", "new", "cur"} {
		if err := os.MkdirAll(filepath.Join(m.dir, sub), 0o700); err != nil {
			return fault.Resource("create maildir", err)
		}
	}
	return nil
}

// EntryPath is where an entry with change fingerprint fp is delivered.
func (m *Maildir) EntryPath(fp string) string {
	return filepath.Join(m.dir, "new", "0."+fp+"."+m.hostname)
}

// RootPath is where the root message of a feed with fingerprint fp is
// delivered, already flagged as seen.
func (m *Maildir) RootPath(fp string) string {
	return filepath.Join(m.dir, "cur", "0."+fp+"."+m.hostname+":2,S")
}

// Deliver writes content through tmp and links it to target. It reports
// whether a new file was created; an existing target counts as delivered.
func (m *Maildir) Deliver(target string, content []byte) (bool, error) {
	tmp := filepath.Join(m.dir, "tmp", uuid.NewString()+"."+m.hostname)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return false, fault.Resource("create message", err)
	}
	defer os.Remove(tmp)

	if _, err := f.Write(content); err != nil {
		f.Close()
		return false, fault.Resource("write message", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return false, fault.Resource("sync message", err)
	}
	if err := f.Close(); err != nil {
		return false, fault.Resource("close message", err)
	}

	err = os.Link(tmp, target)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrExist):
		return false, nil
	default:
		return false, fault.Resource("link message", err)
	}
}
