// ABOUTME: Root cobra command for the races CLI
// ABOUTME: Declares global flags and shared helpers for config, client and output

package cli

import (
	"fmt"
	"net"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/2389/races/internal/client"
	"github.com/2389/races/internal/config"
)

// Version is set at build time.
var Version = "dev"

// EnvToken names the environment variable holding the API bearer token
const EnvToken = "RACES_TOKEN"

const defaultServerURL = "http://localhost:8000"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
	Server     string
	Token      string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the races CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "races",
		Short:   "Race definition service",
		Long:    "Serve and manage sailing race definitions stored as one YAML file per race.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $"+config.EnvConfigPath+" or ./"+config.DefaultConfigPath+")")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "API base URL (default derived from server.http_addr)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token (default $"+EnvToken+")")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewHealthCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewImportLegCommand(opts))
	cmd.AddCommand(NewSlugCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// loadConfig reads the config file named by the flag, the environment or the default path.
func (o *RootOptions) loadConfig() (*config.Config, string, error) {
	path := config.ResolvePath(o.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

// serverURL returns --server, else a URL built from the config's http_addr, else localhost.
func (o *RootOptions) serverURL() string {
	if o.Server != "" {
		return o.Server
	}
	cfg, _, err := o.loadConfig()
	if err != nil || cfg.Server.HTTPAddr == "" {
		return defaultServerURL
	}
	return urlFromListenAddr(cfg.Server.HTTPAddr)
}

// urlFromListenAddr turns a listen address such as "0.0.0.0:8000" into a dialable URL.
func urlFromListenAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (o *RootOptions) token() string {
	if o.Token != "" {
		return o.Token
	}
	return os.Getenv(EnvToken)
}

func (o *RootOptions) client() *client.Client {
	return client.New(o.serverURL(), client.WithToken(o.token()))
}

func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{Format: o.Format, Writer: cmd.OutOrStdout()}
}
