package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-router/internal/intake"
	"github.com/sells-group/lead-router/internal/model"
)

var runFile string

// runOutput is the intake response plus the full lead record.
type runOutput struct {
	*intake.Response
	Lead *model.Lead `json:"lead,omitempty"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single lead from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		payload, err := readPayload(runFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initEngine(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Intake.Submit(ctx, payload)
		if err != nil {
			return eris.Wrap(err, "run lead")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runOutput{Response: resp, Lead: resp.Lead})
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "lead payload JSON file, - for stdin (required)")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

// readPayload decodes one JSON object from path, or from stdin when path is "-".
func readPayload(path string, stdin io.Reader) (map[string]any, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "open lead file")
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, eris.Wrap(err, "decode lead payload")
	}
	if payload == nil {
		return nil, eris.New("decode lead payload: expected a JSON object")
	}
	return payload, nil
}
