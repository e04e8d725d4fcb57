package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Inspect and manage the idempotency guard",
}

var guardStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which guard tier is active",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("guard"); err != nil {
			return err
		}

		g, err := initGuard(ctx)
		if err != nil {
			return err
		}
		defer g.Close() //nolint:errcheck

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "driver: %s\n", cfg.Guard.Driver)
		fmt.Fprintf(out, "tier:   %s\n", g.Tier())
		fmt.Fprintf(out, "ttl:    %s\n", cfg.Guard.TTL())
		return nil
	},
}

var guardClearCmd = &cobra.Command{
	Use:   "clear <key>",
	Short: "Release an idempotency key so the lead can be resubmitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("guard"); err != nil {
			return err
		}

		g, err := initGuard(ctx)
		if err != nil {
			return err
		}
		defer g.Close() //nolint:errcheck

		if err := g.Release(ctx, args[0]); err != nil {
			return eris.Wrapf(err, "clear key %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "released %s (%s tier)\n", args[0], g.Tier())
		return nil
	},
}

var guardPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired idempotency keys from SQL-backed stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("guard"); err != nil {
			return err
		}

		g, err := initGuard(ctx)
		if err != nil {
			return err
		}
		defer g.Close() //nolint:errcheck

		n, err := g.Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d expired keys (%s tier)\n", n, g.Tier())
		return nil
	},
}

func init() {
	guardCmd.AddCommand(guardStatusCmd, guardClearCmd, guardPruneCmd)
	rootCmd.AddCommand(guardCmd)
}
