// Package cmd implements the Wrale Search CLI commands
package cmd

import (
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wrale/wrale-search/internal/wsearchctl/client"
	"github.com/wrale/wrale-search/internal/wsearchctl/config"
	"github.com/wrale/wrale-search/internal/wsearchctl/util"
)

// Environment overrides for the active context
const (
	envServer = "WSEARCHCTL_SERVER"
	envToken  = "WSEARCHCTL_TOKEN"
)

// rootOptions holds the global flags shared by every command
type rootOptions struct {
	configPath string
	server     string
	token      string
	output     string
	timeout    time.Duration
}

// NewRootCmd creates the wsearchctl command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "wsearchctl",
		Short: "Wrale Search control tool",
		Long: `wsearchctl queries a wsearchd server for search performance insights:
headline totals, top queries and pages, scored opportunities and content
trends. It can also trigger a sync and manage server contexts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return util.ValidateOutput(opts.output)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.wsearchctl/config.yaml)")
	flags.StringVar(&opts.server, "server", "", "API server address, overrides the current context")
	flags.StringVar(&opts.token, "token", "", "API token, overrides the current context")
	flags.StringVarP(&opts.output, "output", "o", util.OutputTable, "Output format (table, json)")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Request timeout")

	cmd.AddCommand(
		newDashboardCmd(opts),
		newTopCmd(opts),
		newOpportunitiesCmd(opts),
		newTrendCmd(opts),
		newSyncCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the CLI config file
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// getClient resolves the server from flags, then environment, then the
// current context
func (o *rootOptions) getClient() (*client.Client, error) {
	server := firstNonEmpty(o.server, os.Getenv(envServer))
	token := firstNonEmpty(o.token, os.Getenv(envToken))
	insecure := false

	if server == "" {
		cfg, err := o.loadConfig()
		if err != nil {
			return nil, err
		}
		ctx, err := cfg.GetCurrentContext()
		if err != nil {
			return nil, fmt.Errorf("no API server configured - pass --server, set %s or run 'wsearchctl config set-context': %w", envServer, err)
		}
		server = ctx.Server
		token = firstNonEmpty(token, ctx.Token)
		insecure = ctx.InsecureSkipVerify
	}

	clientOpts := []client.ClientOption{client.WithTimeout(o.timeout)}
	if token != "" {
		clientOpts = append(clientOpts, client.WithToken(token))
	}
	if insecure {
		// #nosec G402 -- explicitly requested per context
		clientOpts = append(clientOpts, client.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}

	c, err := client.NewClient(server, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
