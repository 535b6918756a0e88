package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/bryan-buckman/feedmail/internal/fingerprint"
	"github.com/bryan-buckman/feedmail/internal/state"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "state [URL]",
		Short: "Show the cached state of feeds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := state.NewFileStore(cfg.StateDir())

			var records []state.State
			if len(args) == 1 {
				st, err := store.Load(args[0])
				if err != nil {
					return err
				}
				records = []state.State{st}
			} else {
				records, err = store.List()
				if err != nil {
					return err
				}
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No feed state recorded.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStates(records, time.Now()))
			return nil
		},
	}
}

func renderStates(records []state.State, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "URL", "Last seen", "Cached until", "ETag"})
	for _, st := range records {
		tw.AppendRow(table.Row{
			fingerprint.URL(st.URL),
			st.URL,
			formatWhen(st.LastSeen, now),
			formatWhen(st.Expires, now),
			st.ETag,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60, WidthMaxEnforcer: text.WrapHard},
	})
	return tw.Render()
}

func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", t.UTC().Format(time.DateTime), humanize.RelTime(t, now, "ago", "from now"))
}
