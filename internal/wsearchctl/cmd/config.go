package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-search/internal/wsearchctl/config"
	"github.com/wrale/wrale-search/internal/wsearchctl/util"
)

// newConfigCmd creates the config command that manages server contexts
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long: `Manage wsearchctl contexts. Each context names a wsearchd server and the
token used to reach it, so you can switch between environments quickly.`,
	}

	cmd.AddCommand(
		newConfigGetContextsCmd(opts),
		newConfigCurrentContextCmd(opts),
		newConfigSetContextCmd(opts),
		newConfigUseContextCmd(opts),
		newConfigDeleteContextCmd(opts),
	)
	return cmd
}

func newConfigGetContextsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-contexts",
		Short: "List contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			tw := util.NewTabWriter(cmd.OutOrStdout())
			defer tw.Flush()
			fmt.Fprintln(tw, "CURRENT\tNAME\tSERVER")
			for _, name := range cfg.ContextNames() {
				current := ""
				if name == cfg.CurrentContext {
					current = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", current, name, cfg.Contexts[name].Server)
			}
			return nil
		},
	}
}

func newConfigCurrentContextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Print the current context name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, err := cfg.GetCurrentContext()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ctx.Name)
			return nil
		},
	}
}

func newConfigSetContextCmd(opts *rootOptions) *cobra.Command {
	var (
		server   string
		token    string
		insecure bool
	)

	cmd := &cobra.Command{
		Use:   "set-context NAME",
		Short: "Create or update a context",
		Long: `Create a context or update an existing one. The first context created
becomes the current context.`,
		Example: `  # Local development server
  wsearchctl config set-context dev --server=http://localhost:8080

  # Production with an API token
  wsearchctl config set-context prod --server=https://search.example.com --token=mytoken`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			u, err := url.Parse(server)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid server URL %q", server)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			cfg.AddContext(name, &config.Context{
				Server:             server,
				Token:              token,
				InsecureSkipVerify: insecure,
			})
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q updated\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL (required)")
	cmd.Flags().StringVar(&token, "token", "", "API token")
	cmd.Flags().BoolVar(&insecure, "insecure-skip-tls", false, "Skip TLS certificate verification")
	cmd.MarkFlagRequired("server")
	return cmd
}

func newConfigUseContextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "use-context NAME",
		Short: "Switch to a different context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.SetCurrentContext(args[0]); err != nil {
				return fmt.Errorf("error setting current context: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", args[0])
			return nil
		},
	}
}

func newConfigDeleteContextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context NAME",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RemoveContext(args[0]); err != nil {
				return fmt.Errorf("error removing context: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", args[0])
			return nil
		},
	}
}
