package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospectus-cli/internal/config"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/resilience"
	"github.com/sells-group/prospectus-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect batch run history",
	Long:  "Commands for listing and viewing batch runs and the retry queue.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batch runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openLedgerOnly(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		label, _ := cmd.Flags().GetString("label")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Label:  label,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its per-fund results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openLedgerOnly(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		failedOnly, _ := cmd.Flags().GetBool("failed")
		results, err := st.ListResults(ctx, run.ID, store.ResultFilter{FailedOnly: failedOnly})
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*model.Run
			Results []model.FundResult `json:"results"`
		}{run, results})
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openLedgerOnly(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 1000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		cutoff := time.Now().Add(-since)
		recent := runs[:0]
		for _, r := range runs {
			if r.CreatedAt.After(cutoff) {
				recent = append(recent, r)
			}
		}

		formatRunStats(os.Stdout, computeRunStats(recent))
		return nil
	},
}

// -- runs queue --

var runsQueueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List funds waiting in the retry queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openLedgerOnly(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		due, _ := cmd.Flags().GetBool("due")
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := st.ListDLQ(ctx, resilience.DLQFilter{Due: due, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs queue")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "Retry queue is empty.")
			return nil
		}

		formatQueue(os.Stdout, entries)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, interrupted, failed)")
	runsListCmd.Flags().String("label", "", "filter by run label")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().Bool("failed", false, "only include failed funds")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsQueueCmd.Flags().Bool("due", false, "only entries due for retry")
	runsQueueCmd.Flags().Int("limit", 100, "max number of entries to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsQueueCmd)
	rootCmd.AddCommand(runsCmd)
}

// openLedgerOnly opens the ledger for commands that never contact EDGAR.
func openLedgerOnly(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(config.ModeLedger); err != nil {
		return nil, err
	}
	return openLedger(ctx)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total       int
	Complete    int
	Interrupted int
	Failed      int
	Other       int
	Funds       int
	Succeeded   int
	FundsFailed int
	AvgDurSecs  float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.Run) runStats {
	var s runStats
	s.Total = len(runs)

	var totalDur time.Duration
	var durCount int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			totalDur += r.UpdatedAt.Sub(r.CreatedAt)
			durCount++
		case model.RunStatusInterrupted:
			s.Interrupted++
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Other++
		}
		if r.Summary != nil {
			s.Funds += r.Summary.Total
			s.Succeeded += r.Summary.Succeeded
			s.FundsFailed += r.Summary.Failed
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL\tSTATUS\tFUNDS\tOK\tFAILED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-----\t--\t------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		label := r.Label
		if r.DryRun {
			label += " (dry)"
		}
		if len(label) > 30 {
			label = label[:27] + "..."
		}

		funds, ok, failed := "-", "-", "-"
		if r.Summary != nil {
			funds = fmt.Sprint(r.Summary.Total)
			ok = fmt.Sprint(r.Summary.Succeeded)
			failed = fmt.Sprint(r.Summary.Failed)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			label,
			r.Status,
			funds,
			ok,
			failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Interrupted:\t%d\n", s.Interrupted)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Other:\t%d\n", s.Other)
	_, _ = fmt.Fprintf(w, "Funds processed:\t%d\n", s.Funds)
	_, _ = fmt.Fprintf(w, "  Succeeded:\t%d\n", s.Succeeded)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.FundsFailed)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// formatQueue writes the retry queue to w.
func formatQueue(out io.Writer, entries []resilience.DLQEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SYMBOL\tCATEGORY\tTYPE\tRETRIES\tNEXT RETRY\tERROR")
	for _, e := range entries {
		msg := e.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.Symbol,
			e.ErrorCategory,
			e.ErrorType,
			e.RetryCount,
			e.MaxRetries,
			e.NextRetryAt.Format("2006-01-02 15:04"),
			msg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
