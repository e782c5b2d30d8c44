// ABOUTME: serve subcommand that runs the races HTTP API
// ABOUTME: Loads config, wires store, boat lookup, metrics and auth, then blocks until the context ends

package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/races/internal/auth"
	"github.com/2389/races/internal/config"
	"github.com/2389/races/internal/logging"
	"github.com/2389/races/internal/metrics"
	"github.com/2389/races/internal/polar"
	"github.com/2389/races/internal/server"
	"github.com/2389/races/internal/store"
)

const banner = `
  _ __ __ _  ___ ___  ___
 | '__/ _' |/ __/ _ \/ __|
 | | | (_| | (_|  __/\__ \
 |_|  \__,_|\___\___||___/
`

// NewServeCommand creates the serve subcommand.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the races API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, quiet)
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip the startup banner")

	return cmd
}

func runServe(cmd *cobra.Command, opts *RootOptions, quiet bool) error {
	out := cmd.OutOrStdout()

	cfg, configPath, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(cfg.Logging, cmd.ErrOrStderr())

	fileStore, err := store.NewFileStore(store.FileStoreConfig{
		RacesDir:    cfg.Storage.RacesDir,
		ArchivedDir: cfg.Storage.ArchivedDir,
		Extension:   cfg.Storage.Extension,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	boats := polar.NewClient(polar.Config{
		URL:      cfg.Polars.URL,
		Timeout:  cfg.Polars.Timeout,
		CacheTTL: cfg.Polars.CacheTTL,
		Logger:   logger,
	})
	defer boats.Close()

	deps := server.Deps{
		Config: cfg,
		Store:  fileStore,
		Boats:  boats,
		Logger: logger,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
	}
	if cfg.Auth.JWTSecret != "" {
		verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("creating token verifier: %w", err)
		}
		deps.Verifier = verifier
	}

	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if !quiet {
		printStartup(out, configPath, cfg)
	}

	logger.Info("starting races",
		"version", Version,
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"races_dir", cfg.Storage.RacesDir,
		"archived_dir", cfg.Storage.ArchivedDir,
		"auth", deps.Verifier != nil,
	)

	return srv.Run(cmd.Context())
}

func printStartup(w io.Writer, configPath string, cfg *config.Config) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", Version)

	line := func(label, value string) {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "%-10s %s\n", label+":", value)
	}

	line("Config", configPath)
	if cfg.Server.HTTPAddr != "" {
		line("HTTP", cfg.Server.HTTPAddr)
	}
	line("Races", cfg.Storage.RacesDir)
	line("Archived", cfg.Storage.ArchivedDir)
	if cfg.Polars.URL != "" {
		line("Polars", cfg.Polars.URL)
	}
	if cfg.Metrics.Enabled {
		line("Metrics", cfg.Metrics.Path)
	}
	if cfg.Auth.JWTSecret == "" {
		green.Fprint(w, "    ▶ ")
		yellow.Fprintln(w, "Auth:      disabled, mutating routes are open")
	}

	if cfg.Tailscale.Enabled {
		green.Fprint(w, "    ▶ ")
		fmt.Fprint(w, "Tailscale: ")
		cyan.Fprint(w, cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Fprint(w, " [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Fprint(w, " (ephemeral)")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
}
