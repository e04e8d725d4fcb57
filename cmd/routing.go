package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-router/internal/routing"
)

var routingCmd = &cobra.Command{
	Use:   "routing",
	Short: "Inspect the territory routing table",
}

var routingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective routing table and its source",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("routing"); err != nil {
			return err
		}
		table, source := initRouting(cmd.Context())
		printRouting(cmd, table, source)
		return nil
	},
}

func init() {
	routingCmd.AddCommand(routingShowCmd)
	rootCmd.AddCommand(routingCmd)
}

func printRouting(cmd *cobra.Command, table routing.Table, source routing.Source) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source: %s\n\n", source)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTRY\tOWNER")
	for _, c := range table.Countries() {
		fmt.Fprintf(tw, "%s\t%s\n", c, table[c])
	}
	fmt.Fprintf(tw, "%s\t%s\n", routing.DefaultKey, table.Default())
	_ = tw.Flush()
}
