package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prdkit/internal/apitoken"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an API token for POST /generate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.APIToken.Secret == "" {
				return errors.New("apiToken.secret is not configured (set PRDKIT_API_TOKEN_SECRET)")
			}
			if ttl > 0 {
				cfg.APIToken.TTL = ttl
			}
			m, err := apitoken.NewManager(apitoken.Options{
				Secret: cfg.APIToken.Secret,
				Issuer: cfg.APIToken.Issuer,
				TTL:    cfg.APIToken.TTL,
			})
			if err != nil {
				return err
			}
			token, expires, err := m.Sign(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓")+" "+mutedStyle.Render("expires "+expires.Format(time.RFC3339)))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default from config)")
	return cmd
}
