package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-search/internal/wsearchctl/util"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show headline search totals",
		Long: `Show clicks, impressions, average CTR and average position over a
trailing window, along with the time of the last successful sync.`,
		Example: `  # Totals for the last 28 days
  wsearchctl dashboard

  # Totals for the last week as JSON
  wsearchctl dashboard --days=7 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			d, err := c.Dashboard(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("error fetching dashboard: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, d)
			}

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintf(tw, "WINDOW\t%s to %s\n", d.From.Format("2006-01-02"), d.To.Format("2006-01-02"))
			fmt.Fprintf(tw, "CLICKS\t%d\n", d.Clicks)
			fmt.Fprintf(tw, "IMPRESSIONS\t%d\n", d.Impressions)
			fmt.Fprintf(tw, "AVG CTR\t%s\n", util.FormatPercent(d.AvgCTR))
			fmt.Fprintf(tw, "AVG POSITION\t%.1f\n", d.AvgPosition)
			fmt.Fprintf(tw, "LAST SYNC\t%s\n", util.FormatAgo(d.LastSyncAt, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Trailing window in days (server default 28)")
	return cmd
}

func newTopCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show top queries or pages by clicks",
	}
	cmd.AddCommand(newTopQueriesCmd(opts), newTopPagesCmd(opts))
	return cmd
}

func newTopQueriesCmd(opts *rootOptions) *cobra.Command {
	var days, limit int

	cmd := &cobra.Command{
		Use:     "queries",
		Short:   "Show the keywords with the most clicks",
		Example: `  wsearchctl top queries --days=7 --limit=20`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			stats, err := c.TopQueries(cmd.Context(), days, limit)
			if err != nil {
				return fmt.Errorf("error fetching top queries: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, stats)
			}

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintln(tw, "KEYWORD\tCLICKS\tIMPRESSIONS\tCTR\tPOSITION")
			for _, s := range stats {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.1f\n",
					s.Keyword, s.Clicks, s.Impressions, util.FormatPercent(s.AvgCTR), s.AvgPosition)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Trailing window in days (server default 28)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of rows (server default 10)")
	return cmd
}

func newTopPagesCmd(opts *rootOptions) *cobra.Command {
	var days, limit int

	cmd := &cobra.Command{
		Use:     "pages",
		Short:   "Show the pages with the most clicks",
		Example: `  wsearchctl top pages --limit=20`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			stats, err := c.TopPages(cmd.Context(), days, limit)
			if err != nil {
				return fmt.Errorf("error fetching top pages: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, stats)
			}

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintln(tw, "URL\tCONTENT\tCLICKS\tIMPRESSIONS\tCTR\tPOSITION")
			for _, s := range stats {
				contentID := "-"
				if s.ContentID != nil {
					contentID = fmt.Sprintf("%d", *s.ContentID)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%.1f\n",
					s.URL, contentID, s.Clicks, s.Impressions, util.FormatPercent(s.AvgCTR), s.AvgPosition)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Trailing window in days (server default 28)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of rows (server default 10)")
	return cmd
}
