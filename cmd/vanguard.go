package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/batch"
)

var vanguardList bool

var vanguardCmd = &cobra.Command{
	Use:   "vanguard",
	Short: "Download prospectuses for every Vanguard mutual fund listed by EDGAR",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		opts := applyRunFlags(cmd, cfg)
		if !cmd.Flags().Changed("label") {
			opts.Label = "vanguard"
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		symbols, err := batch.VanguardSymbols(ctx, env.EDGAR)
		if err != nil {
			return err
		}
		zap.L().Info("found vanguard funds", zap.Int("count", len(symbols)))

		if vanguardList {
			for _, s := range symbols {
				_, _ = fmt.Fprintln(os.Stdout, s)
			}
			return nil
		}

		res, err := env.Runner.Run(ctx, symbols, opts)
		if err != nil {
			return eris.Wrap(err, "vanguard batch")
		}
		printSummary(os.Stdout, res)
		return nil
	},
}

func init() {
	vanguardCmd.Flags().BoolVar(&vanguardList, "list", false, "print the symbols without processing them")
	addRunFlags(vanguardCmd)
	rootCmd.AddCommand(vanguardCmd)
}
