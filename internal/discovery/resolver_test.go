package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospectus-cli/internal/edgar"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/resilience"
)

type stubSource struct {
	tickers     []edgar.CompanyTicker
	tickersErr  error
	funds       []edgar.MutualFundTicker
	fundsErr    error
	submissions map[string]*edgar.Submissions
	subErr      error
	names       map[string]string

	subCalls int
}

func (s *stubSource) CompanyTickers(context.Context) ([]edgar.CompanyTicker, error) {
	return s.tickers, s.tickersErr
}

func (s *stubSource) MutualFundTickers(context.Context) ([]edgar.MutualFundTicker, error) {
	return s.funds, s.fundsErr
}

func (s *stubSource) Submissions(_ context.Context, cik string) (*edgar.Submissions, error) {
	s.subCalls++
	if s.subErr != nil {
		return nil, s.subErr
	}
	if sub, ok := s.submissions[cik]; ok {
		return sub, nil
	}
	return nil, &model.NetworkError{URL: "submissions/" + cik, StatusCode: 404}
}

func (s *stubSource) EntityName(_ context.Context, cik string) (string, error) {
	if n, ok := s.names[cik]; ok {
		return n, nil
	}
	return "", &model.NetworkError{URL: "companyfacts/" + cik, StatusCode: 404}
}

func methods(attempts []model.StrategyAttempt) []model.DiscoveryMethod {
	out := make([]model.DiscoveryMethod, len(attempts))
	for i, a := range attempts {
		out[i] = a.Method
	}
	return out
}

func TestResolve_DirectAPIBeatsKnownETF(t *testing.T) {
	src := &stubSource{tickers: []edgar.CompanyTicker{
		{CIK: "0009999999", Ticker: "SPY", Title: "DATASET SPY TRUST"},
	}}
	r := NewResolver(DefaultStrategies(src)...)

	rec, err := r.Resolve(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "0009999999", rec.CIK)
	assert.Equal(t, model.DiscoveryDirectAPI, rec.Method)
	assert.Equal(t, model.FundSymbol("SPY"), rec.Symbol)
	assert.Equal(t, []model.DiscoveryMethod{model.DiscoveryDirectCIK, model.DiscoveryDirectAPI}, methods(rec.Attempts))
	assert.True(t, rec.Attempts[1].Found)
}

func TestResolve_FallsThroughToKnownETF(t *testing.T) {
	src := &stubSource{}
	r := NewResolver(DefaultStrategies(src)...)

	rec, err := r.Resolve(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Equal(t, "0001067839", rec.CIK)
	assert.Equal(t, model.DiscoveryKnownETF, rec.Method)
	assert.Len(t, rec.Attempts, 4)
}

func TestResolve_MutualFundJSON(t *testing.T) {
	src := &stubSource{funds: []edgar.MutualFundTicker{
		{CIK: "0000862084", SeriesID: "S000002147", ClassID: "C000005908", Symbol: "VUSXX"},
	}}
	rec, err := NewResolver(DefaultStrategies(src)...).Resolve(context.Background(), "VUSXX")
	require.NoError(t, err)
	assert.Equal(t, model.DiscoveryMutualFundJSON, rec.Method)
	assert.Equal(t, "S000002147", rec.SeriesID)
	assert.Equal(t, "C000005908", rec.ClassID)
}

func TestResolve_TransientErrorMovesOn(t *testing.T) {
	outage := resilience.NewTransientError(&model.NetworkError{URL: "tickers", StatusCode: 503}, 503)
	src := &stubSource{tickersErr: outage, fundsErr: outage}

	rec, err := NewResolver(DefaultStrategies(src)...).Resolve(context.Background(), "VUSXX")
	require.NoError(t, err)
	assert.Equal(t, model.DiscoveryHardcodedFallback, rec.Method)
	assert.Equal(t, "0000862084", rec.CIK)

	require.Len(t, rec.Attempts, 6)
	assert.NotEmpty(t, rec.Attempts[1].Error)
	assert.NotEmpty(t, rec.Attempts[2].Error)
	// PatternMatch saw V***X but could not list registrants
	assert.NotEmpty(t, rec.Attempts[4].Error)
}

func TestResolve_AllMiss(t *testing.T) {
	src := &stubSource{}
	_, err := NewResolver(DefaultStrategies(src)...).Resolve(context.Background(), "ZZZZX")
	require.Error(t, err)

	var dfe *model.DiscoveryFailedError
	require.True(t, errors.As(err, &dfe))
	assert.Len(t, dfe.Attempts, 6)
	assert.Equal(t, model.CategoryDiscoveryFailed, model.CategorizeError(err))
	for _, a := range dfe.Attempts {
		assert.False(t, a.Found)
	}
}

func TestResolve_RejectsStockAndPlaceholder(t *testing.T) {
	src := &stubSource{tickers: []edgar.CompanyTicker{{CIK: "0000320193", Ticker: "AAPL", Title: "Apple Inc."}}}
	r := NewResolver(DefaultStrategies(src)...)

	for _, sym := range []model.FundSymbol{"AAPL", "TEST1", "FAKEX", "AB123"} {
		_, err := r.Resolve(context.Background(), sym)
		var dfe *model.DiscoveryFailedError
		require.True(t, errors.As(err, &dfe), sym)
		assert.NotEmpty(t, dfe.Reason, sym)
		assert.Empty(t, dfe.Attempts, sym)
	}
}

func TestResolve_DirectCIK(t *testing.T) {
	src := &stubSource{submissions: map[string]*edgar.Submissions{
		"0000862084": {CIK: "0000862084", Name: "VANGUARD ADMIRAL FUNDS"},
	}}
	rec, err := NewResolver(DefaultStrategies(src)...).Resolve(context.Background(), "862084")
	require.NoError(t, err)
	assert.Equal(t, model.DiscoveryDirectCIK, rec.Method)
	assert.Equal(t, "0000862084", rec.CIK)
	assert.Equal(t, "VANGUARD ADMIRAL FUNDS", rec.Title)
}

func TestDirectCIK_CompanyFactsAndUnavailable(t *testing.T) {
	s := &DirectCIK{src: &stubSource{names: map[string]string{"0000036405": "VANGUARD INDEX FUNDS"}}}
	rec, err := s.Attempt(context.Background(), "36405")
	require.NoError(t, err)
	assert.Equal(t, "VANGUARD INDEX FUNDS", rec.Title)

	_, err = s.Attempt(context.Background(), "1234567")
	assert.ErrorIs(t, err, ErrNotFound)

	s = &DirectCIK{src: &stubSource{subErr: resilience.NewTransientError(errors.New("reset"), 0)}}
	rec, err = s.Attempt(context.Background(), "1234567")
	require.NoError(t, err)
	assert.Equal(t, "0001234567", rec.CIK)
	assert.Empty(t, rec.Title)
}

func TestPatternMatch_ValidatesAgainstPrimaryDocuments(t *testing.T) {
	src := &stubSource{
		tickers: []edgar.CompanyTicker{
			{CIK: "0000036405", Ticker: "VTI", Title: "VANGUARD INDEX FUNDS"},
			{CIK: "0000036405", Ticker: "VOO", Title: "VANGUARD INDEX FUNDS"},
			{CIK: "0000862084", Ticker: "VNQ", Title: "VANGUARD ADMIRAL FUNDS"},
			{CIK: "0000320193", Ticker: "AAPL", Title: "Apple Inc."},
		},
		submissions: map[string]*edgar.Submissions{
			"0000036405": {Filings: []model.FilingCandidate{{Form: "497K", PrimaryDocument: "vfiax497k.htm"}}},
			"0000862084": {Filings: []model.FilingCandidate{
				{Form: "N-CSR", PrimaryDocument: "vmfxx_ncsr.htm"},
				{Form: "497K", PrimaryDocument: "vmfxx497k.htm"},
			}},
		},
	}
	s := &PatternMatch{src: src}

	rec, err := s.Attempt(context.Background(), "VMFXX")
	require.NoError(t, err)
	assert.Equal(t, "0000862084", rec.CIK)
	assert.Equal(t, "Vanguard", rec.Provider)
	assert.Equal(t, 2, src.subCalls)

	_, err = s.Attempt(context.Background(), "VZZZX")
	var miss *Miss
	require.True(t, errors.As(err, &miss))
	assert.Equal(t, "Vanguard", miss.Provider)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_RecordsProviderHintOnMiss(t *testing.T) {
	_, err := NewResolver(DefaultStrategies(&stubSource{})...).Resolve(context.Background(), "FZZZX")
	var dfe *model.DiscoveryFailedError
	require.True(t, errors.As(err, &dfe))
	assert.Equal(t, "Fidelity", dfe.Attempts[4].Provider)
}

func TestResolve_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(DefaultStrategies(&stubSource{})...).Resolve(ctx, "VUSXX")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRejected(t *testing.T) {
	assert.Empty(t, Rejected("VUSXX"))
	assert.Empty(t, Rejected("0000862084"))
	assert.Empty(t, Rejected("XLK"))
	assert.NotEmpty(t, Rejected("MSFT"))
	assert.NotEmpty(t, Rejected("SAMPLE"))
}
