// ABOUTME: Client subcommands that operate on races through the HTTP API
// ABOUTME: health, list, get, archive, restore, delete and import-leg

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewHealthCommand creates the health subcommand.
func NewHealthCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := rootOpts.serverURL()
			if err := rootOpts.client().Health(cmd.Context()); err != nil {
				return fmt.Errorf("server %s unhealthy: %w", base, err)
			}
			p := rootOpts.printer(cmd)
			if p.Format == "json" {
				return p.JSON(map[string]string{"server": base, "status": "ok"})
			}
			color.New(color.FgGreen).Fprint(p.Writer, "✓ ")
			_, err := fmt.Fprintf(p.Writer, "%s is healthy\n", base)
			return err
		},
		SilenceUsage: true,
	}
}

// NewListCommand creates the list subcommand.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active or archived races",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			races, err := rootOpts.client().List(cmd.Context(), archived)
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd).Races(races)
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "list archived races instead of active ones")

	return cmd
}

// NewGetCommand creates the get subcommand.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			race, err := rootOpts.client().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd).Race(race)
		},
		SilenceUsage: true,
	}
}

// NewArchiveCommand creates the archive subcommand.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID",
		Short: "Move a race to the archived set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.client().Archive(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rootOpts.printer(cmd).Done("archived", args[0])
		},
		SilenceUsage: true,
	}
}

// NewRestoreCommand creates the restore subcommand.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID",
		Short: "Move an archived race back to the active set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.client().Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rootOpts.printer(cmd).Done("restored", args[0])
		},
		SilenceUsage: true,
	}
}

// NewDeleteCommand creates the delete subcommand.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a race, active or archived",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rootOpts.printer(cmd).Done("deleted", args[0])
		},
		SilenceUsage: true,
	}
}

// NewImportLegCommand creates the import-leg subcommand.
func NewImportLegCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-leg FILE",
		Short: "Create a race from a leg JSON document (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			id, err := rootOpts.client().ImportLeg(cmd.Context(), data)
			if err != nil {
				return err
			}
			return rootOpts.printer(cmd).Done("imported", id)
		},
		SilenceUsage: true,
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
