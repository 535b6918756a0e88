package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/fingerprint"
)

// FilePrefix starts the name of every state file.
const FilePrefix = ".feedmailstate."

// noToken stands in for an absent revalidation token; a real entity tag is
// always quoted, so it can never be "-".
const noToken = "-"

const header = "# feedmail state: last seen, expires, revalidation token, url"

// FileStore keeps one plain-text file per feed in a directory. Files are
// replaced by writing a sibling temporary file and renaming it over the
// old one, so a crash leaves either the old or the new record.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the state file for url.
func (s *FileStore) Path(url string) string {
	return filepath.Join(s.dir, FilePrefix+fingerprint.URL(url))
}

// Load implements Store.
func (s *FileStore) Load(url string) (State, error) {
	path := s.Path(url)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{URL: url}, nil
	}
	if err != nil {
		return State{}, fault.Resource("open state", err)
	}
	defer f.Close()

	st, err := decode(f)
	if err != nil {
		return State{}, fault.Parse("state file "+path, err)
	}
	st.URL = url
	return st, nil
}

// Save implements Store.
func (s *FileStore) Save(st State) error {
	if st.URL == "" {
		return errors.New("save state: empty url")
	}
	path := s.Path(st.URL)
	tmp := path + ".tmp-" + uuid.NewString()

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fault.Resource("create state", err)
	}
	if err := encode(f, st); err != nil {
		f.Close()
		os.Remove(tmp)
		return fault.Resource("write state", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fault.Resource("sync state", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fault.Resource("close state", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fault.Resource("install state", err)
	}
	return nil
}

// List returns every record in the directory, ordered by URL.
func (s *FileStore) List() ([]State, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, FilePrefix+"*"))
	if err != nil {
		return nil, err
	}
	var out []State
	for _, path := range matches {
		if strings.Contains(filepath.Base(path), ".tmp-") {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fault.Resource("open state", err)
		}
		st, err := decode(f)
		f.Close()
		if err != nil {
			return nil, fault.Parse("state file "+path, err)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func encode(w io.Writer, st State) error {
	token := st.ETag
	if token == "" {
		token = noToken
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n%s\n%s\n",
		header, formatTime(st.LastSeen), formatTime(st.Expires), token, st.URL)
	return err
}

func decode(r io.Reader) (State, error) {
	var fields []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields = append(fields, line)
	}
	if err := sc.Err(); err != nil {
		return State{}, err
	}

	var st State
	var err error
	if len(fields) > 0 {
		if st.LastSeen, err = parseTime(fields[0]); err != nil {
			return State{}, fmt.Errorf("last seen: %w", err)
		}
	}
	if len(fields) > 1 {
		if st.Expires, err = parseTime(fields[1]); err != nil {
			return State{}, fmt.Errorf("expires: %w", err)
		}
	}
	if len(fields) > 2 && fields[2] != noToken {
		st.ETag = fields[2]
	}
	if len(fields) > 3 {
		st.URL = fields[3]
	}
	return st, nil
}

// Times are stored in RFC 2616 form. The zero time is written as the Unix
// epoch and read back as zero.
func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Unix(0, 0)
	}
	return t.UTC().Format(http.TimeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := http.ParseTime(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	if t.Unix() == 0 {
		return time.Time{}, nil
	}
	return t, nil
}
