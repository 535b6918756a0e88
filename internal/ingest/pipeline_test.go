package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/logging"
	"github.com/bryan-buckman/feedmail/internal/mail"
	"github.com/bryan-buckman/feedmail/internal/state"
	"github.com/bryan-buckman/feedmail/internal/transport"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func atomFeed(entries ...string) string {
	return `<feed xmlns="http://www.w3.org/2005/Atom">
<id>urn:feed</id><title>Example Feed</title><link href="http://example.org/"/>` +
		strings.Join(entries, "") + `</feed>`
}

func atomEntry(id, title, updated string) string {
	s := fmt.Sprintf(`<entry><id>%s</id><title>%s</title><link href="http://example.org/%s"/>`, id, title, id)
	if updated != "" {
		s += "<updated>" + updated + "</updated>"
	}
	return s + "<content>body of " + title + "</content></entry>"
}

// feedServer serves one mutable document under /feed.
type feedServer struct {
	mu   sync.Mutex
	body string
	etag string
	hits int
	srv  *httptest.Server
}

func newFeedServer(t *testing.T, body string) *feedServer {
	t.Helper()
	fs := &feedServer{body: body}
	r := chi.NewRouter()
	r.Get("/feed", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.hits++
		if fs.etag != "" {
			if r.Header.Get("If-None-Match") == fs.etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", fs.etag)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		io.WriteString(w, fs.body)
	})
	fs.srv = httptest.NewServer(r)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *feedServer) URL() string { return fs.srv.URL + "/feed" }

func (fs *feedServer) set(body, etag string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.body, fs.etag = body, etag
}

func (fs *feedServer) count() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.hits
}

type harness struct {
	p     *Pipeline
	dir   string
	store *state.FileStore
	clock time.Time
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	return newHarnessWith(t, opts, nil)
}

func newHarnessWith(t *testing.T, opts Options, fetcher transport.Fetcher) *harness {
	t.Helper()
	if fetcher == nil {
		c, err := transport.New(transport.Options{Timeout: 5 * time.Second})
		require.NoError(t, err)
		fetcher = c
	}
	dir := t.TempDir()
	h := &harness{dir: dir, store: state.NewFileStore(dir), clock: epoch}
	h.p = New(h.store, fetcher, mail.NewMaildir(dir, "test"), logging.Discard(), opts)
	h.p.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) files(t *testing.T, sub string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(h.dir, sub))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (h *harness) read(t *testing.T, sub, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(h.dir, sub, name))
	require.NoError(t, err)
	return string(b)
}

func TestProcessDeliversAndRecordsState(t *testing.T) {
	fs := newFeedServer(t, atomFeed(
		atomEntry("1", "One", "2024-04-01T00:00:00Z"),
		atomEntry("2", "Two", "2024-04-02T00:00:00Z"),
	))
	h := newHarness(t, Options{MinCacheInterval: time.Hour})

	res, err := h.p.Process(context.Background(), Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.Equal(t, "atom", res.Format)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 2, res.Delivered)
	assert.Len(t, h.files(t, "new"), 2)
	assert.Empty(t, h.files(t, "cur"))
	assert.Empty(t, h.files(t, "tmp"))

	st, err := h.store.Load(fs.URL())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), st.LastSeen.UTC())
	assert.Equal(t, epoch.Add(time.Hour).Unix(), st.Expires.Unix())
}

func TestProcessSkipsWhileCached(t *testing.T) {
	fs := newFeedServer(t, atomFeed(atomEntry("1", "One", "2024-04-01T00:00:00Z")))
	h := newHarness(t, Options{MinCacheInterval: time.Hour})
	ctx := context.Background()

	_, err := h.p.Process(ctx, Source{URL: fs.URL()})
	require.NoError(t, err)

	h.clock = epoch.Add(30 * time.Minute)
	res, err := h.p.Process(ctx, Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, 1, fs.count())

	h.clock = epoch.Add(2 * time.Hour)
	res, err = h.p.Process(ctx, Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, fs.count())
}

func TestIdempotentDelivery(t *testing.T) {
	doc := atomFeed(
		atomEntry("1", "One", "2024-04-01T00:00:00Z"),
		atomEntry("2", "Undated", ""),
	)
	ctx := context.Background()

	t.Run("unchanged body", func(t *testing.T) {
		fs := newFeedServer(t, doc)
		h := newHarness(t, Options{})
		_, err := h.p.Process(ctx, Source{URL: fs.URL()})
		require.NoError(t, err)
		before := h.files(t, "new")
		require.Len(t, before, 2)

		h.clock = epoch.Add(time.Minute)
		res, err := h.p.Process(ctx, Source{URL: fs.URL()})
		require.NoError(t, err)
		assert.Zero(t, res.Delivered)
		assert.Equal(t, before, h.files(t, "new"))
	})

	t.Run("not modified", func(t *testing.T) {
		fs := newFeedServer(t, doc)
		fs.set(doc, `"v1"`)
		h := newHarness(t, Options{})
		_, err := h.p.Process(ctx, Source{URL: fs.URL()})
		require.NoError(t, err)

		h.clock = epoch.Add(time.Minute)
		res, err := h.p.Process(ctx, Source{URL: fs.URL()})
		require.NoError(t, err)
		assert.True(t, res.NotModified)
		assert.Len(t, h.files(t, "new"), 2)

		st, err := h.store.Load(fs.URL())
		require.NoError(t, err)
		assert.Equal(t, `"v1"`, st.ETag)
	})
}

func TestWatermarkNeverDecreases(t *testing.T) {
	fs := newFeedServer(t, atomFeed(atomEntry("2", "Two", "2024-04-02T00:00:00Z")))
	h := newHarness(t, Options{})
	ctx := context.Background()
	want := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)

	_, err := h.p.Process(ctx, Source{URL: fs.URL()})
	require.NoError(t, err)

	fs.set(atomFeed(atomEntry("1", "One", "2024-04-01T00:00:00Z")), "")
	h.clock = epoch.Add(time.Minute)
	res, err := h.p.Process(ctx, Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.Zero(t, res.Delivered, "older entry is below the watermark")
	assert.Equal(t, want, res.State.LastSeen.UTC())

	fs.set(atomFeed(atomEntry("3", "Three", "2024-04-03T00:00:00Z")), "")
	h.clock = epoch.Add(2 * time.Minute)
	res, err = h.p.Process(ctx, Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, want.Add(24*time.Hour), res.State.LastSeen.UTC())
}

func TestUndatedEntriesAlwaysPass(t *testing.T) {
	fs := newFeedServer(t, atomFeed(
		atomEntry("1", "Undated", ""),
		atomEntry("2", "Garbled", "sometime soon"),
		atomEntry("3", "Dated", "2024-04-01T00:00:00Z"),
	))
	h := newHarness(t, Options{})
	require.NoError(t, h.store.Save(state.State{
		URL:      fs.URL(),
		LastSeen: time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	res, err := h.p.Process(context.Background(), Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Delivered)
	for _, name := range h.files(t, "new") {
		assert.NotContains(t, h.read(t, "new", name), "Subject: Dated")
	}
}

func TestRootMessageOncePerRun(t *testing.T) {
	fs := newFeedServer(t, atomFeed(
		atomEntry("1", "One", "2024-04-01T00:00:00Z"),
		atomEntry("2", "Two", "2024-04-02T00:00:00Z"),
	))
	h := newHarness(t, Options{RootMessages: true})

	_, err := h.p.Process(context.Background(), Source{URL: fs.URL()})
	require.NoError(t, err)

	roots := h.files(t, "cur")
	require.Len(t, roots, 1)
	assert.True(t, strings.HasSuffix(roots[0], ":2,S"))
	root := h.read(t, "cur", roots[0])
	rootID := strings.TrimPrefix(strings.SplitN(root, "\n", 2)[0], "Message-ID: ")

	for _, name := range h.files(t, "new") {
		assert.Contains(t, h.read(t, "new", name), "In-Reply-To: "+rootID+"\n")
	}
}

func TestNoRootMessageWithoutNewEntries(t *testing.T) {
	fs := newFeedServer(t, atomFeed(atomEntry("1", "One", "2024-04-01T00:00:00Z")))
	h := newHarness(t, Options{RootMessages: true})
	require.NoError(t, h.store.Save(state.State{
		URL:      fs.URL(),
		LastSeen: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}))

	res, err := h.p.Process(context.Background(), Source{URL: fs.URL()})
	require.NoError(t, err)
	assert.Zero(t, res.Delivered)
	assert.Empty(t, h.files(t, "cur"))
}

func TestRunIsolatesFailingURL(t *testing.T) {
	first := newFeedServer(t, atomFeed(atomEntry("a", "First", "2024-04-01T00:00:00Z")))
	third := newFeedServer(t, strings.ReplaceAll(
		atomFeed(atomEntry("c", "Third", "2024-04-01T00:00:00Z")),
		"http://example.org/", "http://example.net/"))
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL + "/feed"
	dead.Close()

	h := newHarness(t, Options{From: "Everyone"})
	seeded := state.State{URL: deadURL, LastSeen: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, h.store.Save(seeded))
	before, err := os.ReadFile(h.store.Path(deadURL))
	require.NoError(t, err)

	sum, err := h.p.Run(context.Background(), []Source{
		{URL: first.URL(), From: "Just First"},
		{URL: deadURL},
		{URL: third.URL()},
	})
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Failed: 1, Delivered: 2}, sum)

	after, err := os.ReadFile(h.store.Path(deadURL))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	for _, u := range []string{first.URL(), third.URL()} {
		st, err := h.store.Load(u)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), st.LastSeen.UTC(), u)
	}

	var froms []string
	for _, name := range h.files(t, "new") {
		msg := h.read(t, "new", name)
		for _, line := range strings.Split(msg, "\n") {
			if strings.HasPrefix(line, "From: ") {
				froms = append(froms, line)
			}
		}
	}
	assert.ElementsMatch(t, []string{
		`From: "Just First" <feed@example.org>`,
		`From: Everyone <feed@example.net>`,
	}, froms)
}

type fetchFunc func(ctx context.Context, rawURL string, v transport.Validators) (*transport.Response, error)

func (f fetchFunc) Fetch(ctx context.Context, rawURL string, v transport.Validators) (*transport.Response, error) {
	return f(ctx, rawURL, v)
}

func body(s string) *transport.Response {
	return &transport.Response{Body: io.NopCloser(strings.NewReader(s))}
}

func TestRunContinuesPastParseErrorsAndPanics(t *testing.T) {
	good := atomFeed(atomEntry("1", "One", "2024-04-01T00:00:00Z"))
	fetcher := fetchFunc(func(_ context.Context, u string, _ transport.Validators) (*transport.Response, error) {
		switch u {
		case "test:garbage":
			return body("<feed><unclosed>"), nil
		case "test:foreign":
			return body(`<html><body/></html>`), nil
		case "test:panic":
			panic("boom")
		default:
			return body(good), nil
		}
	})
	h := newHarnessWith(t, Options{}, fetcher)

	sum, err := h.p.Run(context.Background(), []Source{
		{URL: "test:garbage"},
		{URL: "test:foreign"},
		{URL: "test:panic"},
		{URL: "test:good"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Failed)
	assert.Equal(t, 1, sum.Processed)
	assert.Len(t, h.files(t, "new"), 1)
}

func TestRunStopsOnResourceError(t *testing.T) {
	good := atomFeed(atomEntry("1", "One", "2024-04-01T00:00:00Z"))
	calls := 0
	fetcher := fetchFunc(func(context.Context, string, transport.Validators) (*transport.Response, error) {
		calls++
		return body(good), nil
	})
	h := newHarnessWith(t, Options{}, fetcher)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "new"), nil, 0o600))

	sum, err := h.p.Run(context.Background(), []Source{{URL: "test:a"}, {URL: "test:b"}})
	assert.ErrorIs(t, err, fault.ErrResource)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, calls)
}

func TestRunHonoursCancellation(t *testing.T) {
	h := newHarnessWith(t, Options{}, fetchFunc(func(context.Context, string, transport.Validators) (*transport.Response, error) {
		t.Fatal("fetch after cancel")
		return nil, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.p.Run(ctx, []Source{{URL: "test:a"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsolate(t *testing.T) {
	assert.NoError(t, Isolate(func() error { return nil }))

	want := errors.New("plain")
	assert.Same(t, want, Isolate(func() error { return want }))

	err := Isolate(func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	assert.ErrorIs(t, err, ErrPanic)
	assert.False(t, fault.IsFatal(err))
}
