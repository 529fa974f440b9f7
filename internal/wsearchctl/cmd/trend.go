package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-search/internal/wsearchctl/util"
)

func newTrendCmd(opts *rootOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "trend CONTENT_ID",
		Short: "Show the rank trend of a content item",
		Long: `Compare a content item's average position over the last week with the
rest of the window. A change of two places or more is reported as rising or
declining; anything smaller is stable.`,
		Example: `  wsearchctl trend 42 --days=56`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid content ID %q", args[0])
			}

			c, err := opts.getClient()
			if err != nil {
				return err
			}

			trend, err := c.ContentTrend(cmd.Context(), contentID, days)
			if err != nil {
				return fmt.Errorf("error fetching trend: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, trend)
			}

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintf(tw, "CONTENT\t%d\n", trend.ContentID)
			fmt.Fprintf(tw, "TREND\t%s\n", trend.Trend)
			fmt.Fprintf(tw, "RECENT POSITION\t%s\n", util.FormatPosition(trend.RecentAvgPosition))
			fmt.Fprintf(tw, "PRIOR POSITION\t%s\n", util.FormatPosition(trend.PriorAvgPosition))
			if trend.PositionChange != nil {
				fmt.Fprintf(tw, "CHANGE\t%+.1f\n", *trend.PositionChange)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Trailing window in days (server default 28)")
	return cmd
}
