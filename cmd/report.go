package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/report"
	"github.com/sells-group/prospectus-cli/internal/store"
)

var (
	reportXLSX string
	reportJSON string
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render the summary of a recorded run",
	Long:  "Prints the text summary of a run from the ledger and optionally exports it as an XLSX workbook or JSON.",
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
			return eris.Wrap(err, "report")
		}
		results, err := st.ListResults(ctx, run.ID, store.ResultFilter{})
		if err != nil {
			return eris.Wrap(err, "report")
		}
		res := runReport(run, results)

		if reportXLSX != "" {
			if err := report.WriteXLSX(reportXLSX, res.Summary, res.Results); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", reportXLSX))
		}
		if reportJSON != "" {
			if err := report.WriteJSON(reportJSON, res); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", reportJSON))
		}

		_, _ = fmt.Fprintln(os.Stdout, report.FormatSummary(res.Summary, res.Results))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "write an XLSX workbook to this path")
	reportCmd.Flags().StringVar(&reportJSON, "json", "", "write the run and its results as JSON to this path")
	rootCmd.AddCommand(reportCmd)
}

// runReport rebuilds a batch result from the ledger. Runs that never
// completed have no stored summary, so it is recomputed from the results.
func runReport(run *model.Run, results []model.FundResult) *model.BatchResult {
	res := &model.BatchResult{RunID: run.ID, Label: run.Label, Results: results}
	if run.Summary != nil {
		res.Summary = *run.Summary
	} else {
		res.Summary = report.Summarize(results, run.CreatedAt, run.UpdatedAt)
	}
	return res
}
