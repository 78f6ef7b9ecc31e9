package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/batch"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/resilience"
)

var retryLimit int

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Retry funds queued after transient failures",
	Long:  "Reprocesses dead letter queue entries whose next retry time has passed. Successful funds leave the queue; failures are rescheduled with exponential backoff until max retries is reached.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		opts := applyRunFlags(cmd, cfg)
		if !cmd.Flags().Changed("label") {
			opts.Label = "retry"
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := retryDue(ctx, env.Store, env.Runner.Run, opts, retryLimit, cfg.DLQ.BaseDelay, time.Now())
		if err != nil {
			return err
		}
		if res != nil {
			printSummary(os.Stdout, res)
		}
		return nil
	},
}

func init() {
	retryCmd.Flags().IntVar(&retryLimit, "limit", 100, "max number of queued funds to retry")
	addRunFlags(retryCmd)
	rootCmd.AddCommand(retryCmd)
}

// dlqStore is the part of the ledger the retry command needs.
type dlqStore interface {
	ListDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DeleteDLQ(ctx context.Context, id string) error
}

type runFunc func(ctx context.Context, inputs []string, opts batch.Options) (*model.BatchResult, error)

// retryDue runs every due queue entry through run. Entries whose fund now
// succeeds are removed; the rest are rescheduled. Entries not reached because
// ctx was cancelled are left untouched. Returns nil when nothing was due.
func retryDue(ctx context.Context, dlq dlqStore, run runFunc, opts batch.Options, limit int, baseDelay time.Duration, now time.Time) (*model.BatchResult, error) {
	entries, err := dlq.ListDLQ(ctx, resilience.DLQFilter{Due: true, Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "retry: list dlq")
	}
	if len(entries) == 0 {
		zap.L().Info("no queued funds are due for retry")
		return nil, nil
	}

	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}
	zap.L().Info("retrying queued funds", zap.Int("count", len(entries)))

	res, err := run(ctx, symbols, opts)
	if err != nil {
		return nil, eris.Wrap(err, "retry: run")
	}

	byInput := make(map[string]model.FundResult, len(res.Results))
	for _, r := range res.Results {
		byInput[r.Input] = r
	}

	ctx = context.WithoutCancel(ctx)
	for _, e := range entries {
		r, ok := byInput[e.Symbol]
		if !ok {
			continue
		}
		log := zap.L().With(zap.String("symbol", e.Symbol), zap.Int("retry_count", e.RetryCount))

		if r.Success {
			if err := dlq.DeleteDLQ(ctx, e.ID); err != nil {
				log.Warn("failed to remove retried fund from queue", zap.Error(err))
			}
			continue
		}

		e.RunID = res.RunID
		e.Error = r.Message
		e.ErrorCategory = string(r.ErrorCategory)
		if r.ErrorCategory != model.CategoryNetwork {
			e.ErrorType = "permanent"
		}
		e.ScheduleNext(now, baseDelay)
		if !e.CanRetry() {
			log.Warn("fund exhausted its retries", zap.String("error", e.Error))
		}
		if err := dlq.EnqueueDLQ(ctx, e); err != nil {
			log.Warn("failed to reschedule fund", zap.Error(err))
		}
	}
	return res, nil
}
