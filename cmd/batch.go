package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/batch"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/report"
)

var batchFile string

var batchCmd = &cobra.Command{
	Use:   "batch [symbol...]",
	Short: "Download prospectuses for a list of funds",
	Long:  "Processes symbols given as arguments and/or read from --file (.txt, .csv or .xlsx). Per-fund failures are reported in the summary and never abort the batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		symbols, err := batchInputs(args, batchFile)
		if err != nil {
			return err
		}
		if len(symbols) == 0 {
			return eris.New("no symbols given: pass symbols as arguments or use --file")
		}

		opts := applyRunFlags(cmd, cfg)
		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Runner.Run(ctx, symbols, opts)
		if err != nil {
			return eris.Wrap(err, "batch")
		}
		printSummary(os.Stdout, res)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "file of symbols (.txt, .csv or .xlsx)")
	addRunFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

// batchInputs merges positional symbols with those read from file, keeping
// first occurrence order.
func batchInputs(args []string, file string) ([]string, error) {
	out := make([]string, 0, len(args))
	seen := make(map[string]bool, len(args))
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, a := range args {
		add(a)
	}
	if file == "" {
		return out, nil
	}
	fromFile, err := batch.LoadSymbols(file)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded symbols from file", zap.String("file", file), zap.Int("count", len(fromFile)))
	for _, s := range fromFile {
		add(s)
	}
	return out, nil
}

func printSummary(w io.Writer, res *model.BatchResult) {
	_, _ = fmt.Fprintln(w, report.FormatSummary(res.Summary, res.Results))
	if res.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run ID: %s\n", res.RunID)
	}
}
