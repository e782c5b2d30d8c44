// ABOUTME: token subcommand that mints an API bearer token from the configured secret
// ABOUTME: The token carries the given subject and expires after --ttl

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/races/internal/auth"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// NewTokenCommand creates the token subcommand.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a bearer token for the mutating API routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if ttl <= 0 {
				return fmt.Errorf("ttl must be positive, got %s", ttl)
			}

			verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
			if err != nil {
				return err
			}
			token, err := verifier.Generate(subject, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}

			p := rootOpts.printer(cmd)
			if p.Format == "json" {
				return p.JSON(map[string]string{
					"subject":    subject,
					"token":      token,
					"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
				})
			}
			_, err = fmt.Fprintln(p.Writer, token)
			return err
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&subject, "subject", "", "token subject, recorded in audit logs")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
