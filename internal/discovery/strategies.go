package discovery

import (
	"context"
	"slices"
	"strings"

	"github.com/sells-group/prospectus-cli/internal/classify"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

const defaultPatternCandidates = 5

// prospectusForms are the forms whose primary documents PatternMatch
// inspects when validating a provider registrant.
var prospectusForms = []string{"497", "497K", "N-1A", "485BPOS", "485APOS"}

// DirectCIK accepts numeric input as a CIK. The registrant name comes from
// submissions, then company facts; a 404 from both is a miss, any other
// failure leaves the CIK unvalidated but accepted.
type DirectCIK struct {
	src Source
}

func (s *DirectCIK) Name() model.DiscoveryMethod { return model.DiscoveryDirectCIK }

func (s *DirectCIK) Attempt(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	if !symbol.IsNumericCIK(sym) {
		return nil, ErrNotFound
	}
	cik := symbol.PadCIK(string(sym))
	rec := &model.CIKRecord{CIK: cik}

	sub, err := s.src.Submissions(ctx, cik)
	if err == nil {
		rec.Title = sub.Name
		return rec, nil
	}
	if !model.IsNotFound(err) {
		return rec, nil
	}

	name, err := s.src.EntityName(ctx, cik)
	switch {
	case err == nil:
		rec.Title = name
		return rec, nil
	case model.IsNotFound(err):
		return nil, ErrNotFound
	default:
		return rec, nil
	}
}

// DirectAPI matches the ticker exactly in company_tickers.json.
type DirectAPI struct {
	src Source
}

func (s *DirectAPI) Name() model.DiscoveryMethod { return model.DiscoveryDirectAPI }

func (s *DirectAPI) Attempt(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	tickers, err := s.src.CompanyTickers(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tickers {
		if strings.EqualFold(t.Ticker, string(sym)) {
			return &model.CIKRecord{CIK: t.CIK, Title: t.Title}, nil
		}
	}
	return nil, ErrNotFound
}

// MutualFundJSON matches the ticker exactly in company_tickers_mf.json.
type MutualFundJSON struct {
	src Source
}

func (s *MutualFundJSON) Name() model.DiscoveryMethod { return model.DiscoveryMutualFundJSON }

func (s *MutualFundJSON) Attempt(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	funds, err := s.src.MutualFundTickers(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range funds {
		if strings.EqualFold(f.Symbol, string(sym)) {
			return &model.CIKRecord{CIK: f.CIK, SeriesID: f.SeriesID, ClassID: f.ClassID}, nil
		}
	}
	return nil, ErrNotFound
}

// KnownETFDatabase looks the ticker up in the built-in ETF table.
type KnownETFDatabase struct{}

func (s *KnownETFDatabase) Name() model.DiscoveryMethod { return model.DiscoveryKnownETF }

func (s *KnownETFDatabase) Attempt(_ context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	e, ok := classify.KnownETF(string(sym))
	if !ok {
		return nil, ErrNotFound
	}
	return &model.CIKRecord{CIK: e.CIK, Title: e.Title, Provider: e.Provider}, nil
}

// PatternMatch guesses the fund family from the ticker, finds that family's
// registrants by title, and accepts the first whose recent prospectus
// filings name the ticker in a primary document.
type PatternMatch struct {
	src           Source
	MaxCandidates int
}

func (s *PatternMatch) Name() model.DiscoveryMethod { return model.DiscoveryPatternMatch }

func (s *PatternMatch) Attempt(ctx context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	provider := classify.ProviderFromTicker(string(sym))
	if provider == "" {
		return nil, ErrNotFound
	}

	candidates, err := s.registrants(ctx, provider)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(string(sym))
	for _, c := range candidates {
		sub, err := s.src.Submissions(ctx, c.CIK)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		for _, f := range sub.Filings {
			if slices.Contains(prospectusForms, f.Form) && strings.Contains(strings.ToLower(f.PrimaryDocument), needle) {
				return &model.CIKRecord{CIK: c.CIK, Title: c.Title, Provider: provider}, nil
			}
		}
	}
	return nil, &Miss{Provider: provider}
}

// registrants returns distinct registrants whose title names the provider,
// ordered by CIK so the probe order is stable across runs.
func (s *PatternMatch) registrants(ctx context.Context, provider string) ([]model.CIKRecord, error) {
	tickers, err := s.src.CompanyTickers(ctx)
	if err != nil {
		return nil, err
	}
	terms := classify.SearchTerms(provider)

	seen := make(map[string]bool)
	var out []model.CIKRecord
	for _, t := range tickers {
		title := strings.ToUpper(t.Title)
		if seen[t.CIK] || !slices.ContainsFunc(terms, func(term string) bool { return strings.Contains(title, term) }) {
			continue
		}
		seen[t.CIK] = true
		out = append(out, model.CIKRecord{CIK: t.CIK, Title: t.Title})
	}
	slices.SortFunc(out, func(a, b model.CIKRecord) int { return strings.Compare(a.CIK, b.CIK) })

	if s.MaxCandidates > 0 && len(out) > s.MaxCandidates {
		out = out[:s.MaxCandidates]
	}
	return out, nil
}

// HardcodedFallback resolves a few funds that are absent from every dataset.
type HardcodedFallback struct {
	table map[string]model.CIKRecord
}

func (s *HardcodedFallback) Name() model.DiscoveryMethod { return model.DiscoveryHardcodedFallback }

func (s *HardcodedFallback) Attempt(_ context.Context, sym model.FundSymbol) (*model.CIKRecord, error) {
	rec, ok := s.table[string(sym)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}
