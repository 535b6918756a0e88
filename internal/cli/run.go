package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/bryan-buckman/feedmail/internal/config"
	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/ingest"
	"github.com/bryan-buckman/feedmail/internal/mail"
	"github.com/bryan-buckman/feedmail/internal/state"
	"github.com/bryan-buckman/feedmail/internal/transport"
)

// errLocked is returned when another run holds the maildir lock.
var errLocked = errors.New("another run is active")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var urls []string
	var froms []string
	var expire string
	var noReplyTo bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch feeds and deliver new entries",
		Long: `Fetch every configured feed, or only those given with --url, and deliver
entries newer than each feed's watermark into the maildir.

A URL of the form "system:<command>" runs the command with sh -c and reads
the feed from its standard output.

Each --from names the sender for one URL: the first --from applies to the
first --url, the second to the second, and so on. URLs without a matching
--from use the feed title.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if expire != "" {
				d, err := config.ParseInterval(expire)
				if err != nil {
					return fault.Config("--expire", err)
				}
				cfg.Fetch.MinCacheInterval = config.Interval(d)
			}
			if noReplyTo {
				cfg.Mail.ReplyTo = false
			}

			sources, err := runSources(cfg, urls, froms)
			if err != nil {
				return err
			}
			return runBatch(cmd, ctx, cfg, sources)
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Feed URL to process instead of the configured list (repeatable)")
	cmd.Flags().StringArrayVar(&froms, "from", nil, "Sender name for the --url at the same position (repeatable)")
	cmd.Flags().StringVar(&expire, "expire", "", "Minimum time between fetches of one feed (e.g. 30m, 2h, 1d)")
	cmd.Flags().BoolVar(&noReplyTo, "no-reply-to", false, "Do not thread entries under a per-feed root message")
	return cmd
}

func runSources(cfg *config.Config, urls, froms []string) ([]ingest.Source, error) {
	if len(froms) > len(urls) {
		return nil, fault.Config("--from", fmt.Errorf("%d sender names for %d URLs", len(froms), len(urls)))
	}
	if len(urls) > 0 {
		sources := make([]ingest.Source, 0, len(urls))
		for i, u := range urls {
			src := ingest.Source{URL: u}
			if i < len(froms) {
				src.From = froms[i]
			}
			sources = append(sources, src)
		}
		return sources, nil
	}
	feeds, err := cfg.FeedList()
	if err != nil {
		return nil, err
	}
	sources := make([]ingest.Source, 0, len(feeds))
	for _, f := range feeds {
		sources = append(sources, ingest.Source{URL: f.URL, From: f.From})
	}
	return sources, nil
}

func runBatch(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, sources []ingest.Source) error {
	logger, err := ctx.logger(cfg)
	if err != nil {
		return fault.Config("logging", err)
	}
	if len(sources) == 0 {
		logger.Warn("no feeds configured")
		return nil
	}

	for _, dir := range []string{cfg.Paths.Maildir, cfg.StateDir()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fault.Resource("create directory", err)
		}
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fault.Resource("acquire lock", err)
	}
	if !ok {
		return fault.Config(cfg.LockPath(), errLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", "lock", cfg.LockPath(), "error", err)
		}
	}()

	client, err := transport.New(transport.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Proxy:        cfg.Fetch.Proxy,
		Timeout:      cfg.Fetch.Timeout.Duration(),
		MaxRedirects: cfg.Fetch.MaxRedirects,
		HostInterval: cfg.Fetch.HostInterval.Duration(),
	})
	if err != nil {
		return err
	}

	p := ingest.New(
		state.NewFileStore(cfg.StateDir()),
		client,
		mail.NewMaildir(cfg.Paths.Maildir, cfg.Mail.Hostname),
		logger,
		ingest.Options{
			MinCacheInterval: cfg.Fetch.MinCacheInterval.Duration(),
			From:             cfg.Mail.From,
			RootMessages:     cfg.Mail.ReplyTo,
		},
	)
	sum, err := p.Run(cmd.Context(), sources)
	logger.Info("run finished",
		"feeds", len(sources),
		"processed", sum.Processed,
		"cached", sum.Cached,
		"failed", sum.Failed,
		"delivered", sum.Delivered,
	)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}
