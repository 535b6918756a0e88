package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/feedmail/internal/config"
	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/fingerprint"
	"github.com/bryan-buckman/feedmail/internal/ingest"
)

const feedDoc = `<rss version="2.0"><channel>
<title>Example</title><link>http://example.org/</link>
<item><title>Hello</title><link>http://example.org/1</link>
<pubDate>Thu, 02 Jan 2020 03:04:05 +0000</pubDate><description>Hi</description></item>
</channel></rss>`

type env struct {
	dir     string
	maildir string
	config  string
	feed    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	e := &env{
		dir:     dir,
		maildir: filepath.Join(dir, "Mail"),
		config:  filepath.Join(dir, "config.toml"),
		feed:    filepath.Join(dir, "feed.xml"),
	}
	require.NoError(t, os.WriteFile(e.feed, []byte(feedDoc), 0o600))
	cfg := `[paths]
maildir = "` + e.maildir + `"

[mail]
hostname = "testhost"

[[feeds]]
url = "file://` + e.feed + `"
title = "Example feed"
from = "Configured"
`
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o600))
	return e
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *env) newFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.maildir, "new"))
	require.NoError(t, err)
	var names []string
	for _, d := range entries {
		names = append(names, d.Name())
	}
	return names
}

func TestRunDeliversOnce(t *testing.T) {
	e := newEnv(t)

	_, stderr, err := execute(t, "--config", e.config, "run")
	require.NoError(t, err)
	assert.Contains(t, stderr, "run finished")

	files := e.newFiles(t)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".testhost"))
	msg, err := os.ReadFile(filepath.Join(e.maildir, "new", files[0]))
	require.NoError(t, err)
	assert.Contains(t, string(msg), "From: Configured <feed@example.org>\n")
	assert.Contains(t, string(msg), "Subject: Hello\n")

	roots, err := os.ReadDir(filepath.Join(e.maildir, "cur"))
	require.NoError(t, err)
	assert.Len(t, roots, 1)

	_, _, err = execute(t, "--config", e.config, "run")
	require.NoError(t, err)
	assert.Equal(t, files, e.newFiles(t))
}

func TestRunWithURLFlag(t *testing.T) {
	e := newEnv(t)

	_, _, err := execute(t, "--config", e.config, "run", "--no-reply-to",
		"--url", "file://"+e.feed, "--from", "Flagged", "--expire", "1d")
	require.NoError(t, err)

	files := e.newFiles(t)
	require.Len(t, files, 1)
	msg, err := os.ReadFile(filepath.Join(e.maildir, "new", files[0]))
	require.NoError(t, err)
	assert.Contains(t, string(msg), "From: Flagged <feed@example.org>\n")
	assert.NotContains(t, string(msg), "In-Reply-To:")

	_, err = os.Stat(filepath.Join(e.maildir, "cur"))
	require.NoError(t, err)
	roots, err := os.ReadDir(filepath.Join(e.maildir, "cur"))
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestRunFromAppliesToOneURL(t *testing.T) {
	e := newEnv(t)
	other := filepath.Join(e.dir, "other.xml")
	require.NoError(t, os.WriteFile(other, []byte(`<rss version="2.0"><channel>
<title>Other</title><link>http://other.example/</link>
<item><title>Later</title><link>http://other.example/1</link><description>Yo</description></item>
</channel></rss>`), 0o600))

	_, _, err := execute(t, "--config", e.config, "run",
		"--url", "file://"+e.feed, "--from", "Flagged", "--url", "file://"+other)
	require.NoError(t, err)

	files := e.newFiles(t)
	require.Len(t, files, 2)
	var all string
	for _, name := range files {
		msg, err := os.ReadFile(filepath.Join(e.maildir, "new", name))
		require.NoError(t, err)
		all += string(msg)
	}
	assert.Contains(t, all, "From: Flagged <feed@example.org>\n")
	assert.Contains(t, all, "From: Other <feed@other.example>\n")
	assert.NotContains(t, all, "From: Flagged <feed@other.example>")
}

func TestRunSourcesPairsSenders(t *testing.T) {
	cfg := config.Default()

	got, err := runSources(&cfg, []string{"http://a/", "http://b/"}, []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []ingest.Source{{URL: "http://a/", From: "A"}, {URL: "http://b/"}}, got)

	_, err = runSources(&cfg, []string{"http://a/"}, []string{"A", "B"})
	assert.ErrorIs(t, err, fault.ErrConfig)
	_, err = runSources(&cfg, nil, []string{"A"})
	assert.ErrorIs(t, err, fault.ErrConfig)
}

func TestRunBadExpire(t *testing.T) {
	e := newEnv(t)
	_, _, err := execute(t, "--config", e.config, "run", "--expire", "soon")
	assert.ErrorIs(t, err, fault.ErrConfig)
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.maildir, 0o700))
	lock := flock.New(filepath.Join(e.maildir, ".feedmail.lock"))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Unlock()

	_, _, err = execute(t, "--config", e.config, "run")
	assert.ErrorIs(t, err, errLocked)
	assert.ErrorIs(t, err, fault.ErrConfig)
}

func TestStateCommand(t *testing.T) {
	e := newEnv(t)

	out, _, err := execute(t, "--config", e.config, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "No feed state recorded.")

	_, _, err = execute(t, "--config", e.config, "run")
	require.NoError(t, err)

	out, _, err = execute(t, "--config", e.config, "state")
	require.NoError(t, err)
	assert.Contains(t, out, fingerprint.URL("file://"+e.feed))
	assert.Contains(t, out, "2020-01-02 03:04:05")
}

func TestFingerprintCommand(t *testing.T) {
	out, _, err := execute(t, "fingerprint", "http://example.org/feed")
	require.NoError(t, err)
	assert.Equal(t, ".feedmailstate."+fingerprint.URL("http://example.org/feed")+"\thttp://example.org/feed\n", out)
}

func TestOPMLExportAndImport(t *testing.T) {
	e := newEnv(t)

	out, _, err := execute(t, "--config", e.config, "opml", "export", "--title", "mine")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>mine</title>")
	assert.Contains(t, out, `xmlUrl="file://`+e.feed+`"`)
	assert.Contains(t, out, `title="Example feed"`)
	assert.NotContains(t, out, "Configured")

	path := filepath.Join(e.dir, "subs.opml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))

	out, _, err = execute(t, "opml", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[[feeds]]")
	assert.Contains(t, out, "file://"+e.feed)
	assert.Contains(t, out, "Example feed")
	assert.NotContains(t, out, "from =")

	out, _, err = execute(t, "opml", "import", "--titles", path)
	require.NoError(t, err)
	assert.Regexp(t, `from = .Example feed.`, out)
}
