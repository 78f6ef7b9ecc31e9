// Package discovery resolves fund symbols to SEC registrant CIKs through an
// ordered cascade of lookup strategies.
package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/edgar"
	"github.com/sells-group/prospectus-cli/internal/model"
)

// ErrNotFound is returned by a Strategy that completed without a match.
var ErrNotFound = eris.New("not found")

// Strategy is one step of the resolution cascade.
type Strategy interface {
	Name() model.DiscoveryMethod
	Attempt(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error)
}

// Source is the EDGAR surface the built-in strategies read.
type Source interface {
	CompanyTickers(ctx context.Context) ([]edgar.CompanyTicker, error)
	MutualFundTickers(ctx context.Context) ([]edgar.MutualFundTicker, error)
	Submissions(ctx context.Context, cik string) (*edgar.Submissions, error)
	EntityName(ctx context.Context, cik string) (string, error)
}

// Miss is a clean miss that still carries a provider hint.
type Miss struct {
	Provider string
}

func (m *Miss) Error() string { return "not found (provider hint " + m.Provider + ")" }

func (m *Miss) Unwrap() error { return ErrNotFound }

// Resolver runs strategies in declared order and returns the first match.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a Resolver over strategies in the given order.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// DefaultStrategies returns the built-in cascade backed by src:
// DirectCIK, DirectAPI, MutualFundJSON, KnownETFDatabase, PatternMatch,
// HardcodedFallback.
func DefaultStrategies(src Source) []Strategy {
	return []Strategy{
		&DirectCIK{src: src},
		&DirectAPI{src: src},
		&MutualFundJSON{src: src},
		&KnownETFDatabase{},
		&PatternMatch{src: src, MaxCandidates: defaultPatternCandidates},
		&HardcodedFallback{table: hardcodedCIKs},
	}
}

// Resolve returns the CIK record for sym. Every strategy tried, including the
// winner, is recorded on the record. When all strategies miss, the error is a
// *model.DiscoveryFailedError carrying the same attempts.
func (r *Resolver) Resolve(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	log := zap.L().With(zap.String("symbol", string(sym)))

	if reason := Rejected(sym); reason != "" {
		log.Info("symbol rejected before discovery", zap.String("reason", reason))
		return nil, &model.DiscoveryFailedError{Symbol: sym, Reason: reason}
	}

	attempts := make([]model.StrategyAttempt, 0, len(r.strategies))
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "discovery: resolve %s", sym)
		}

		start := time.Now()
		rec, err := s.Attempt(ctx, sym)
		a := model.StrategyAttempt{
			Method:     s.Name(),
			DurationMs: time.Since(start).Milliseconds(),
		}

		var miss *Miss
		switch {
		case err == nil && rec != nil:
			a.Found = true
			a.CIK = rec.CIK
			a.Provider = rec.Provider
			attempts = append(attempts, a)

			rec.Symbol = sym
			rec.Method = s.Name()
			rec.Attempts = attempts
			log.Info("resolved cik",
				zap.String("cik", rec.CIK),
				zap.String("method", string(rec.Method)),
				zap.String("title", rec.Title),
			)
			return rec, nil
		case errors.As(err, &miss):
			a.Provider = miss.Provider
		case err == nil || errors.Is(err, ErrNotFound):
		default:
			a.Error = err.Error()
			log.Warn("discovery strategy failed",
				zap.String("method", string(s.Name())),
				zap.Error(err),
			)
		}
		attempts = append(attempts, a)
	}

	return nil, &model.DiscoveryFailedError{Symbol: sym, Attempts: attempts}
}
