package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <symbol>",
	Short: "Download the current prospectus for a single fund",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		opts := applyRunFlags(cmd, cfg)
		if !cmd.Flags().Changed("label") {
			opts.Label = "fetch"
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Runner.Run(ctx, args, opts)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}
		if len(res.Results) == 0 {
			return nil
		}

		result := res.Results[0]
		if result.Success {
			zap.L().Info("fetch complete",
				zap.String("symbol", string(result.Symbol)),
				zap.Bool("skipped", result.Skipped),
				zap.Bool("dry_run", result.DryRun),
			)
		} else {
			zap.L().Error("fetch failed",
				zap.String("input", result.Input),
				zap.String("category", string(result.ErrorCategory)),
				zap.String("error", result.Message),
			)
		}

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	addRunFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}
