package cli

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/bryan-buckman/feedmail/internal/config"
	"github.com/bryan-buckman/feedmail/internal/fault"
	"github.com/bryan-buckman/feedmail/internal/opml"
)

func newOPMLCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opml",
		Short: "Convert between the feed list and OPML",
	}
	cmd.AddCommand(newOPMLExportCommand(ctx))
	cmd.AddCommand(newOPMLImportCommand())
	return cmd
}

func newOPMLExportCommand(ctx *commandContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the configured feeds as an OPML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			feeds, err := cfg.FeedList()
			if err != nil {
				return err
			}
			subs := make([]opml.Subscription, 0, len(feeds))
			for _, f := range feeds {
				subs = append(subs, opml.Subscription{Title: f.Title, URL: f.URL})
			}
			return opml.Export(cmd.OutOrStdout(), title, subs, time.Now())
		},
	}
	cmd.Flags().StringVar(&title, "title", "feedmail subscriptions", "Document title")
	return cmd
}

// importedFeeds is the TOML shape printed by "opml import".
type importedFeeds struct {
	Feeds []config.Feed `toml:"feeds"`
}

func newOPMLImportCommand() *cobra.Command {
	var keepTitles bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Print the feeds of an OPML file as [[feeds]] configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fault.Config("open opml", err)
			}
			defer f.Close()
			subs, err := opml.Parse(f)
			if err != nil {
				return fault.Config(args[0], err)
			}

			var out importedFeeds
			for _, s := range subs {
				feed := config.Feed{URL: s.URL, Title: s.Title}
				if keepTitles {
					feed.From = s.Title
				}
				out.Feeds = append(out.Feeds, feed)
			}
			enc := toml.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&keepTitles, "titles", false, "Use outline titles as sender names")
	return cmd
}
