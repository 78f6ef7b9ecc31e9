// Package filing picks the prospectus filing to download from a registrant's
// filing index.
package filing

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// DefaultSupplementWindow is how far either side of the primary filing
// related filings are collected.
const DefaultSupplementWindow = 30 * 24 * time.Hour

// monitoredForms are registration forms logged for visibility but never selected.
var monitoredForms = []string{"S-1", "S-3", "N-14"}

// Index is the EDGAR surface the selector reads.
type Index interface {
	Filings(ctx context.Context, cik string) ([]model.FilingCandidate, error)
	PrimaryDocument(ctx context.Context, f model.FilingCandidate) (string, error)
}

// Selector chooses the primary prospectus and its nearby supplements.
type Selector struct {
	index  Index
	window time.Duration
}

// NewSelector creates a Selector. A non-positive window uses DefaultSupplementWindow.
func NewSelector(index Index, window time.Duration) *Selector {
	if window <= 0 {
		window = DefaultSupplementWindow
	}
	return &Selector{index: index, window: window}
}

// Select returns the best filing for profile: the preferred form with the
// lowest rank, newest first within a rank. It fails with
// *model.NoProspectusError when no filing of a preferred form exists.
func (s *Selector) Select(ctx context.Context, sym model.FundSymbol, cik string, profile model.FundProfile) (*model.SelectedFiling, error) {
	log := zap.L().With(zap.String("symbol", string(sym)), zap.String("cik", cik))

	filings, err := s.index.Filings(ctx, cik)
	if err != nil {
		return nil, eris.Wrapf(err, "filing: index for CIK %s", cik)
	}

	sel, ok := Choose(filings, profile, s.window)
	if !ok {
		return nil, &model.NoProspectusError{
			Symbol:     sym,
			CIK:        cik,
			Forms:      profile.PreferredForms,
			Considered: len(filings),
		}
	}
	for _, m := range sel.Monitored {
		log.Info("registration filing observed",
			zap.String("form", m.Form),
			zap.Time("filing_date", m.FilingDate),
			zap.String("accession", m.AccessionNumber),
		)
	}

	if sel.Primary.PrimaryDocument == "" {
		doc, err := s.index.PrimaryDocument(ctx, sel.Primary)
		if err != nil {
			return nil, eris.Wrapf(err, "filing: primary document for %s", sel.Primary.AccessionNumber)
		}
		sel.Primary.PrimaryDocument = doc
	}

	log.Info("selected filing",
		zap.String("form", sel.Primary.Form),
		zap.Time("filing_date", sel.Primary.FilingDate),
		zap.String("accession", sel.Primary.AccessionNumber),
		zap.Int("supplements", len(sel.Supplements)),
	)
	return sel, nil
}

// Choose applies the selection rules to an in-memory index. Filings are
// ordered by preference rank ascending and filing date descending; the sort
// is stable so index order breaks remaining ties.
func Choose(filings []model.FilingCandidate, profile model.FundProfile, window time.Duration) (*model.SelectedFiling, bool) {
	type ranked struct {
		f    model.FilingCandidate
		rank int
	}
	var eligible []ranked
	var monitored []model.FilingCandidate
	for _, f := range filings {
		form := strings.ToUpper(strings.TrimSpace(f.Form))
		if r, ok := profile.Rank(form); ok {
			eligible = append(eligible, ranked{f, r})
			continue
		}
		if slices.Contains(monitoredForms, strings.TrimSuffix(form, "/A")) {
			monitored = append(monitored, f)
		}
	}
	if len(eligible) == 0 {
		return nil, false
	}

	slices.SortStableFunc(eligible, func(a, b ranked) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return b.f.FilingDate.Compare(a.f.FilingDate)
	})
	primary := eligible[0].f

	var supplements []model.FilingCandidate
	for _, f := range filings {
		if f.AccessionNumber == primary.AccessionNumber {
			continue
		}
		if d := f.FilingDate.Sub(primary.FilingDate); d >= -window && d <= window {
			supplements = append(supplements, f)
		}
	}
	slices.SortStableFunc(supplements, func(a, b model.FilingCandidate) int {
		return b.FilingDate.Compare(a.FilingDate)
	})

	return &model.SelectedFiling{
		Primary:     primary,
		Supplements: supplements,
		Monitored:   monitored,
	}, true
}
