package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-router/internal/intake"
	"github.com/sells-group/lead-router/internal/leadfile"
)

var (
	batchFile        string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process leads from a CSV, TSV, XLSX or JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}

		env, err := initEngine(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := leadfile.Read(ctx, batchFile, batchLimit)
		if err != nil {
			return eris.Wrap(err, "read lead file")
		}

		sum, err := processBatch(ctx, records, cfg.Batch.Concurrency, env.Intake.Submit)
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			return eris.Errorf("batch: %d of %d leads failed", sum.Failed, len(records))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "lead file (.csv, .tsv, .xlsx, .json, .jsonl) (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of leads to process (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent submissions (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// submitFunc is the callback signature for submitting one lead.
type submitFunc func(ctx context.Context, payload map[string]any) (*intake.Response, error)

// batchSummary counts outcomes across a batch.
type batchSummary struct {
	Processed  int64
	Duplicates int64
	Failed     int64
}

// processBatch submits records concurrently. A failed lead is logged and
// counted; it never aborts the rest of the batch.
func processBatch(ctx context.Context, records []leadfile.Record, concurrency int, submit submitFunc) (batchSummary, error) {
	if len(records) == 0 {
		zap.L().Info("no leads found")
		return batchSummary{}, nil
	}

	zap.L().Info("processing batch",
		zap.Int("leads", len(records)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var processed, duplicates, failed atomic.Int64

	for _, rec := range records {
		g.Go(func() error {
			log := zap.L().With(zap.Int("line", rec.Line))

			resp, err := submit(gctx, rec.Payload)
			if err != nil {
				failed.Add(1)
				log.Error("lead failed", zap.Error(err))
				return nil
			}

			if resp.Status == intake.StatusDuplicate {
				duplicates.Add(1)
				log.Info("lead skipped as duplicate", zap.String("idempotency_key", resp.Key))
				return nil
			}

			processed.Add(1)
			score := 0.0
			if resp.Score != nil {
				score = *resp.Score
			}
			log.Info("lead processed",
				zap.String("lead_id", resp.LeadID),
				zap.Float64("score", score),
				zap.String("decided_path", string(resp.DecidedPath)),
				zap.Int("errors", len(resp.Errors)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{
		Processed:  processed.Load(),
		Duplicates: duplicates.Load(),
		Failed:     failed.Load(),
	}
	zap.L().Info("batch complete",
		zap.Int64("processed", sum.Processed),
		zap.Int64("duplicates", sum.Duplicates),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}
