// ABOUTME: slug subcommand printing the race identifier derived from a name
// ABOUTME: Uses the same derivation the store applies when a race is created without one

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/races/internal/store"
)

// NewSlugCommand creates the slug subcommand.
func NewSlugCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "slug NAME...",
		Short: "Print the identifier derived from a race name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			id := store.DeriveID(name)
			if err := store.ValidateID(id); err != nil {
				return fmt.Errorf("name %q does not yield a usable id: %w", name, err)
			}

			p := rootOpts.printer(cmd)
			if p.Format == "json" {
				return p.JSON(map[string]string{"name": name, "id": id})
			}
			_, err := fmt.Fprintln(p.Writer, id)
			return err
		},
		SilenceUsage: true,
	}
}
