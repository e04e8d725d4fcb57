package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-router/internal/similarity"
)

var outcomeFlags struct {
	account   string
	outcome   string
	reason    string
	industry  string
	employees int
	country   string
	tech      []string
	dealSize  string
}

var outcomeCmd = &cobra.Command{
	Use:   "outcome",
	Short: "Record a closed account outcome for similar-account lookups",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		o, err := buildOutcome()
		if err != nil {
			return err
		}
		if err := cfg.Validate("outcome"); err != nil {
			return err
		}

		w, err := newWeaviate()
		if err != nil {
			return err
		}
		if err := w.EnsureSchema(ctx); err != nil {
			return err
		}
		return w.StoreOutcome(ctx, o)
	},
}

func init() {
	f := outcomeCmd.Flags()
	f.StringVar(&outcomeFlags.account, "account", "", "account (company) name (required)")
	f.StringVar(&outcomeFlags.outcome, "outcome", "", "won or lost (required)")
	f.StringVar(&outcomeFlags.reason, "reason", "", "why the deal was won or lost")
	f.StringVar(&outcomeFlags.industry, "industry", "", "account industry")
	f.IntVar(&outcomeFlags.employees, "employees", 0, "account headcount")
	f.StringVar(&outcomeFlags.country, "country", "", "ISO country code")
	f.StringSliceVar(&outcomeFlags.tech, "tech", nil, "technologies used by the account")
	f.StringVar(&outcomeFlags.dealSize, "deal-size", "", "deal size label")
	_ = outcomeCmd.MarkFlagRequired("account")
	_ = outcomeCmd.MarkFlagRequired("outcome")
	rootCmd.AddCommand(outcomeCmd)
}

func buildOutcome() (similarity.Outcome, error) {
	var label string
	switch strings.ToLower(strings.TrimSpace(outcomeFlags.outcome)) {
	case "won":
		label = "Won"
	case "lost":
		label = "Lost"
	default:
		return similarity.Outcome{}, eris.Errorf("outcome must be won or lost, got %q", outcomeFlags.outcome)
	}
	return similarity.Outcome{
		Company:   strings.TrimSpace(outcomeFlags.account),
		Industry:  outcomeFlags.industry,
		Employees: outcomeFlags.employees,
		Country:   outcomeFlags.country,
		Tech:      outcomeFlags.tech,
		Outcome:   label,
		Reason:    outcomeFlags.reason,
		DealSize:  outcomeFlags.dealSize,
	}, nil
}
