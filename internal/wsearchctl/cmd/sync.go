package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-search/internal/wsearchctl/client"
	"github.com/wrale/wrale-search/internal/wsearchctl/util"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger or inspect search analytics syncs",
	}
	cmd.AddCommand(newSyncRunCmd(opts), newSyncStatusCmd(opts))
	return cmd
}

func newSyncRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a sync now and wait for it to finish",
		Long: `Import the trailing lookback window from the analytics source, then run
opportunity detection and retention. Only one sync runs at a time; if another
is in progress the command fails without starting a second one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			res, err := c.RunSync(cmd.Context())
			if err != nil {
				if client.IsCode(err, "SYNC_IN_PROGRESS") {
					return fmt.Errorf("a sync is already running, try again later")
				}
				return fmt.Errorf("error running sync: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, res)
			}

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintf(tw, "RUN\t%s\n", res.RunID)
			fmt.Fprintf(tw, "SITE\t%s\n", res.Site)
			fmt.Fprintf(tw, "RANGE\t%s to %s\n", res.From, res.To)
			fmt.Fprintf(tw, "QUERY ROWS\t%d\n", res.QueryRows)
			fmt.Fprintf(tw, "PAGE ROWS\t%d (%d resolved)\n", res.PageRows, res.Resolved)
			fmt.Fprintf(tw, "DELETED ROWS\t%d\n", res.DeletedRows)
			fmt.Fprintf(tw, "DURATION\t%s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))

			types := make([]string, 0, len(res.Detected))
			for t := range res.Detected {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(tw, "DETECTED %s\t%d\n", t, res.Detected[t])
			}
			return nil
		},
	}
}

func newSyncStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest sync bookkeeping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			status, err := c.SyncStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching sync status: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, status)
			}

			now := time.Now()
			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintf(tw, "SITE\t%s\n", status.Site)
			fmt.Fprintf(tw, "LAST ATTEMPT\t%s\n", util.FormatAgo(status.LastAttemptAt, now))
			fmt.Fprintf(tw, "LAST SUCCESS\t%s\n", util.FormatAgo(status.LastSuccessAt, now))
			fmt.Fprintf(tw, "QUERY ROWS\t%d\n", status.QueryRows)
			fmt.Fprintf(tw, "PAGE ROWS\t%d\n", status.PageRows)
			if status.LastError != "" {
				fmt.Fprintf(tw, "LAST ERROR\t%s\n", status.LastError)
			}
			return nil
		},
	}
}
