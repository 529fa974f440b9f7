package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-search/internal/wsearchctl/client"
	"github.com/wrale/wrale-search/internal/wsearchctl/util"
)

func newOpportunitiesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "opportunities",
		Aliases: []string{"opps"},
		Short:   "List and dismiss scored opportunities",
		Long: `Opportunities are keywords flagged by the detector as quick wins,
low click-through, declining rank or content gaps, scored from 0 to 100.`,
	}
	cmd.AddCommand(
		newOpportunitiesListCmd(opts),
		newOpportunitiesCountsCmd(opts),
		newOpportunitiesDismissCmd(opts),
	)
	return cmd
}

func newOpportunitiesListCmd(opts *rootOptions) *cobra.Command {
	var (
		listOpts    client.ListOptions
		showActions bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active opportunities by score",
		Example: `  # Highest scoring opportunities of any type
  wsearchctl opportunities list

  # The second page of quick wins with suggested actions
  wsearchctl opportunities list --type=quick_win --limit=20 --offset=20 --actions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			list, err := c.Opportunities(cmd.Context(), listOpts)
			if err != nil {
				return fmt.Errorf("error listing opportunities: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, list)
			}

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprint(tw, "ID\tTYPE\tSCORE\tKEYWORD\tPOSITION\tIMPRESSIONS")
			if showActions {
				fmt.Fprint(tw, "\tACTION")
			}
			fmt.Fprintln(tw)
			for _, o := range list.Items {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\t%d",
					o.ID, o.Type, o.Score, o.Keyword, util.FormatPosition(o.CurrentPosition), o.Impressions)
				if showActions {
					fmt.Fprintf(tw, "\t%s", o.SuggestedAction)
				}
				fmt.Fprintln(tw)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listOpts.Type, "type", "", "Filter by type (quick_win, low_ctr, declining, content_gap)")
	cmd.Flags().IntVar(&listOpts.Limit, "limit", 0, "Page size (server default 50)")
	cmd.Flags().IntVar(&listOpts.Offset, "offset", 0, "Number of opportunities to skip")
	cmd.Flags().BoolVar(&showActions, "actions", false, "Include suggested actions")
	return cmd
}

func newOpportunitiesCountsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show active opportunity counts per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			counts, err := c.OpportunityCounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching opportunity counts: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.output == util.OutputJSON {
				return util.PrintJSON(out, counts)
			}

			types := make([]string, 0, len(counts))
			for t := range counts {
				types = append(types, t)
			}
			sort.Strings(types)

			tw := util.NewTabWriter(out)
			defer tw.Flush()
			fmt.Fprintln(tw, "TYPE\tACTIVE")
			for _, t := range types {
				fmt.Fprintf(tw, "%s\t%d\n", t, counts[t])
			}
			return nil
		},
	}
}

func newOpportunitiesDismissCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss ID",
		Short: "Dismiss an opportunity",
		Long: `Dismiss an opportunity so it no longer appears in listings. A dismissed
opportunity stays dismissed even if the detector flags the keyword again.`,
		Example: `  wsearchctl opportunities dismiss 3f0c2a8e-6b1d-4c47-9a55-0d1c2b7e9f10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.getClient()
			if err != nil {
				return err
			}

			if err := c.DismissOpportunity(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("error dismissing opportunity: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Opportunity %q dismissed\n", args[0])
			return nil
		},
	}
}
