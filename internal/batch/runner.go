// Package batch runs the per-fund pipeline (normalize, resolve, classify,
// select, store) over many symbols with a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/report"
	"github.com/sells-group/prospectus-cli/internal/resilience"
	"github.com/sells-group/prospectus-cli/internal/storage"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

// Resolver maps a symbol to its registrant CIK.
type Resolver interface {
	Resolve(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error)
}

// Classifier derives the fund profile from a resolved record.
type Classifier interface {
	Classify(rec model.CIKRecord) model.FundProfile
}

// Selector picks the filing to download.
type Selector interface {
	Select(ctx context.Context, sym model.FundSymbol, cik string, profile model.FundProfile) (*model.SelectedFiling, error)
}

// Persister fetches documents and finds previously stored ones.
type Persister interface {
	Existing(sym model.FundSymbol) (*model.DownloadResult, error)
	FetchAndStore(ctx context.Context, req storage.Request) (*model.DownloadResult, error)
}

// Ledger is the part of the run ledger the runner writes to.
type Ledger interface {
	CreateRun(ctx context.Context, label string, dryRun bool) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.BatchSummary) error
	RecordResult(ctx context.Context, runID string, result model.FundResult) error
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
}

// Deps are the pipeline stages. Ledger may be nil.
type Deps struct {
	Resolver    Resolver
	Classifier  Classifier
	Selector    Selector
	Persister   Persister
	DocumentURL func(model.FilingCandidate) string
	Ledger      Ledger
}

// Options control one batch run.
type Options struct {
	DryRun       bool
	SkipExisting bool
	// MaxFunds stops issuing new work after that many symbols. Zero means
	// no limit.
	MaxFunds    int
	Concurrency int
	// Label names the run and its {label}_batch_results.json file.
	Label string
	// OutputDir receives download_summary.json and the batch results file.
	// Empty skips writing them.
	OutputDir     string
	DLQMaxRetries int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SkipExisting:  true,
		Concurrency:   1,
		Label:         "custom",
		DLQMaxRetries: 3,
	}
}

// Runner executes the pipeline for a list of symbols.
type Runner struct {
	deps Deps
	now  func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps, now: time.Now}
}

type outcome struct {
	result model.FundResult
	done   bool
}

// Run processes inputs and returns their results in input order. Per-fund
// failures are reported in the results and never abort the batch. When ctx
// is cancelled no new symbols are started; the returned result covers the
// symbols that were.
func (r *Runner) Run(ctx context.Context, inputs []string, opts Options) (*model.BatchResult, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Label == "" {
		opts.Label = "custom"
	}
	if opts.MaxFunds > 0 && len(inputs) > opts.MaxFunds {
		inputs = inputs[:opts.MaxFunds]
	}

	started := r.now()
	batch := &model.BatchResult{Label: opts.Label}
	if r.deps.Ledger != nil {
		run, err := r.deps.Ledger.CreateRun(ctx, opts.Label, opts.DryRun)
		if err != nil {
			return nil, eris.Wrap(err, "batch: create run")
		}
		batch.RunID = run.ID
	}

	log := zap.L().With(zap.String("label", opts.Label), zap.String("run_id", batch.RunID))
	log.Info("processing batch",
		zap.Int("funds", len(inputs)),
		zap.Int("concurrency", opts.Concurrency),
		zap.Bool("dry_run", opts.DryRun),
	)

	outcomes := make([]outcome, len(inputs))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for i, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := r.Process(ctx, input, opts)
			outcomes[i] = outcome{result: res, done: true}
			r.record(ctx, batch.RunID, res, err, opts)
			return nil // don't abort batch on individual failure
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.done {
			batch.Results = append(batch.Results, o.result)
		}
	}
	batch.Summary = report.Summarize(batch.Results, started, r.now())

	status := model.RunStatusComplete
	if ctx.Err() != nil {
		status = model.RunStatusInterrupted
		log.Warn("batch interrupted",
			zap.Int("processed", len(batch.Results)),
			zap.Int("requested", len(inputs)),
		)
	}

	// Written once, after every worker has returned. An interrupted run is
	// still recorded.
	finishCtx := context.WithoutCancel(ctx)
	if err := r.writeOutputs(batch, opts); err != nil {
		log.Error("failed to write batch outputs", zap.Error(err))
	}
	if r.deps.Ledger != nil {
		if err := r.deps.Ledger.CompleteRun(finishCtx, batch.RunID, status, &batch.Summary); err != nil {
			log.Error("failed to complete run in ledger", zap.Error(err))
		}
	}

	log.Info("batch complete",
		zap.Int("succeeded", batch.Summary.Succeeded),
		zap.Int("skipped", batch.Summary.Skipped),
		zap.Int("failed", batch.Summary.Failed),
		zap.String("downloaded", batch.Summary.TotalSize),
	)
	return batch, nil
}

// Process runs the pipeline for one input. The returned error is the cause
// of a failed result, nil otherwise.
func (r *Runner) Process(ctx context.Context, input string, opts Options) (res model.FundResult, err error) {
	start := r.now()
	res.Input = input
	defer func() {
		res.Duration = r.now().Sub(start)
		if err != nil {
			res.Success = false
			res.ErrorCategory = model.CategorizeError(err)
			res.Message = err.Error()
		}
	}()

	sym, err := symbol.Normalize(input)
	if err != nil {
		return res, err
	}
	res.Symbol = sym
	log := zap.L().With(zap.String("symbol", string(sym)))

	if opts.SkipExisting && !opts.DryRun {
		existing, xerr := r.deps.Persister.Existing(sym)
		if xerr != nil {
			log.Warn("could not check existing prospectus", zap.Error(xerr))
		}
		if existing != nil {
			log.Info("prospectus already exists, skipping", zap.String("path", existing.Path))
			res.Success = true
			res.Skipped = true
			res.Download = existing
			res.Message = "already exists: " + existing.Path
			return res, nil
		}
	}

	rec, err := r.deps.Resolver.Resolve(ctx, sym)
	if err != nil {
		log.Warn("discovery failed", zap.Error(err))
		return res, err
	}
	res.CIK = rec

	profile := r.deps.Classifier.Classify(*rec)
	res.Profile = &profile
	log = log.With(zap.String("cik", rec.CIK), zap.String("fund_type", string(profile.Type)))

	sel, err := r.deps.Selector.Select(ctx, sym, rec.CIK, profile)
	if err != nil {
		log.Warn("filing selection failed", zap.Error(err))
		return res, err
	}
	res.Filing = sel
	url := r.deps.DocumentURL(sel.Primary)

	if opts.DryRun {
		log.Info("dry run, not downloading",
			zap.String("form", sel.Primary.Form),
			zap.String("url", url),
		)
		res.Success = true
		res.DryRun = true
		res.Message = "would download " + url
		return res, nil
	}

	dl, err := r.deps.Persister.FetchAndStore(ctx, storage.Request{
		Symbol:  sym,
		Record:  *rec,
		Profile: profile,
		Filing:  *sel,
		URL:     url,
	})
	if err != nil {
		log.Warn("download failed", zap.Error(err))
		return res, err
	}
	res.Download = dl
	res.Success = true
	return res, nil
}

// record writes a result to the ledger and queues transient failures.
func (r *Runner) record(ctx context.Context, runID string, res model.FundResult, cause error, opts Options) {
	if r.deps.Ledger == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := zap.L().With(zap.String("input", res.Input))

	if err := r.deps.Ledger.RecordResult(ctx, runID, res); err != nil {
		log.Warn("failed to record result", zap.Error(err))
	}
	if cause == nil || !resilience.IsTransient(cause) || errors.Is(cause, context.Canceled) {
		return
	}
	now := r.now().UTC()
	entry := resilience.DLQEntry{
		Symbol:        string(res.Symbol),
		RunID:         runID,
		Error:         res.Message,
		ErrorType:     resilience.ClassifyError(cause),
		ErrorCategory: string(res.ErrorCategory),
		MaxRetries:    opts.DLQMaxRetries,
		NextRetryAt:   now,
		CreatedAt:     now,
		LastFailedAt:  now,
	}
	if err := r.deps.Ledger.EnqueueDLQ(ctx, entry); err != nil {
		log.Warn("failed to enqueue for retry", zap.Error(err))
	}
}

func (r *Runner) writeOutputs(batch *model.BatchResult, opts Options) error {
	if opts.OutputDir == "" {
		return nil
	}
	if err := report.AppendDownloads(opts.OutputDir, batch, r.now()); err != nil {
		return err
	}
	path := report.BatchResultsPath(opts.OutputDir, opts.Label)
	if err := report.WriteJSON(path, batch); err != nil {
		return err
	}
	zap.L().Info("batch results saved", zap.String("path", path))
	return nil
}
