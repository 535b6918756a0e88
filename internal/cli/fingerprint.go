package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/feedmail/internal/fingerprint"
	"github.com/bryan-buckman/feedmail/internal/state"
)

func newFingerprintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint URL...",
		Short: "Print the state file name used for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, u := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\t%s\n", state.FilePrefix, fingerprint.URL(u), u)
			}
			return nil
		},
	}
}
