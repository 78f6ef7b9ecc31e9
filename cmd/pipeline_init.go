package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/batch"
	"github.com/sells-group/prospectus-cli/internal/classify"
	"github.com/sells-group/prospectus-cli/internal/config"
	"github.com/sells-group/prospectus-cli/internal/discovery"
	"github.com/sells-group/prospectus-cli/internal/edgar"
	"github.com/sells-group/prospectus-cli/internal/fetcher"
	"github.com/sells-group/prospectus-cli/internal/filing"
	"github.com/sells-group/prospectus-cli/internal/resilience"
	"github.com/sells-group/prospectus-cli/internal/storage"
	"github.com/sells-group/prospectus-cli/internal/store"
)

// pipelineEnv holds the initialized clients and the runner needed by the
// fetch/batch/vanguard/retry commands.
type pipelineEnv struct {
	Store  store.Store
	EDGAR  *edgar.Client
	Files  *storage.Store
	Runner *batch.Runner
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the configuration, opens the ledger and wires the
// pipeline stages. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(config.ModeFetch); err != nil {
		return nil, err
	}

	var forms *classify.FormTable
	if cfg.Classify.FormsFile != "" {
		t, err := classify.LoadFormTable(cfg.Classify.FormsFile)
		if err != nil {
			return nil, err
		}
		forms = t
	}

	st, err := openLedger(ctx)
	if err != nil {
		return nil, err
	}

	f := newFetcher(cfg)
	client := edgar.NewClient(f, edgar.Options{DataURL: cfg.Edgar.DataURL, WWWURL: cfg.Edgar.WWWURL})
	files := storage.New(cfg.Storage.Root, f, cfg.Storage.MinFreeMB<<20)
	window := time.Duration(cfg.Batch.SupplementWindowDays) * 24 * time.Hour

	runner := batch.NewRunner(batch.Deps{
		Resolver:    discovery.NewResolver(discovery.DefaultStrategies(client)...),
		Classifier:  classify.New(forms),
		Selector:    filing.NewSelector(client, window),
		Persister:   files,
		DocumentURL: client.DocumentURL,
		Ledger:      st,
	})

	zap.L().Debug("pipeline initialized",
		zap.String("storage_root", cfg.Storage.Root),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Duration("request_delay", cfg.Edgar.RequestDelay),
	)

	return &pipelineEnv{Store: st, EDGAR: client, Files: files, Runner: runner}, nil
}

// newFetcher builds the shared EDGAR transport. Every worker goes through
// the same pacing limiter.
func newFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.Edgar.UserAgent,
		Timeout:      time.Duration(c.Edgar.TimeoutSecs) * time.Second,
		RequestDelay: c.Edgar.RequestDelay,
		MaxBodyBytes: c.Edgar.MaxBodyMB << 20,
		Retry:        resilience.FromRetryConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoff, c.Retry.MaxBackoff),
		Breakers:     resilience.NewHostBreakers(resilience.FromCircuitConfig(c.Circuit.FailureThreshold, c.Circuit.ResetTimeout)),
	})
}

// addRunFlags registers the flags shared by the commands that download.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("dry-run", false, "resolve and select filings without downloading")
	f.Bool("skip-existing", true, "skip funds that already have a verified prospectus on disk")
	f.Int("max-funds", 0, "stop after this many funds (0 = no limit)")
	f.Int("concurrency", 1, "number of funds processed in parallel")
	f.String("label", "", "run label, names {label}_batch_results.json")
	f.Duration("request-delay", 0, "minimum delay between EDGAR requests (default from config)")
	f.String("user-agent", "", "User-Agent sent to EDGAR, must include a contact email")
}

// applyRunFlags overlays explicitly set flags onto the loaded config and
// returns the batch options. It must run before initPipeline so the edgar
// overrides are validated.
func applyRunFlags(cmd *cobra.Command, c *config.Config) batch.Options {
	f := cmd.Flags()
	if f.Changed("request-delay") {
		c.Edgar.RequestDelay, _ = f.GetDuration("request-delay")
	}
	if f.Changed("user-agent") {
		c.Edgar.UserAgent, _ = f.GetString("user-agent")
	}
	if f.Changed("dry-run") {
		c.Batch.DryRun, _ = f.GetBool("dry-run")
	}
	if f.Changed("skip-existing") {
		c.Batch.SkipExisting, _ = f.GetBool("skip-existing")
	}
	if f.Changed("max-funds") {
		c.Batch.MaxFunds, _ = f.GetInt("max-funds")
	}
	if f.Changed("concurrency") {
		c.Batch.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("label") {
		c.Batch.Label, _ = f.GetString("label")
	}

	return batch.Options{
		DryRun:        c.Batch.DryRun,
		SkipExisting:  c.Batch.SkipExisting,
		MaxFunds:      c.Batch.MaxFunds,
		Concurrency:   c.Batch.Concurrency,
		Label:         c.Batch.Label,
		OutputDir:     c.Storage.Root,
		DLQMaxRetries: c.DLQ.MaxRetries,
	}
}

// openLedger opens and migrates the run ledger.
func openLedger(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
