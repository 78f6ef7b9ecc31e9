package model

// FundSymbol is a validated, uppercased fund ticker or numeric CIK. Values
// are produced by symbol.Normalize and never mutated afterwards.
type FundSymbol string

func (s FundSymbol) String() string { return string(s) }

// DiscoveryMethod names the resolver strategy that produced a CIK.
type DiscoveryMethod string

const (
	DiscoveryDirectCIK         DiscoveryMethod = "DirectCIK"
	DiscoveryDirectAPI         DiscoveryMethod = "DirectAPI"
	DiscoveryMutualFundJSON    DiscoveryMethod = "MutualFundJSON"
	DiscoveryKnownETF          DiscoveryMethod = "KnownETFDatabase"
	DiscoveryPatternMatch      DiscoveryMethod = "PatternMatch"
	DiscoveryHardcodedFallback DiscoveryMethod = "HardcodedFallback"
)

// StrategyAttempt records the outcome of one resolver strategy.
type StrategyAttempt struct {
	Method     DiscoveryMethod `json:"method"`
	Found      bool            `json:"found"`
	CIK        string          `json:"cik,omitempty"`
	Provider   string          `json:"provider,omitempty"` // hint, set even on a miss
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// CIKRecord is the resolved registrant for a fund symbol.
type CIKRecord struct {
	Symbol   FundSymbol        `json:"symbol"`
	CIK      string            `json:"cik"` // 10-digit, zero padded
	Method   DiscoveryMethod   `json:"discovery_method"`
	Title    string            `json:"title,omitempty"`
	Provider string            `json:"provider,omitempty"`
	SeriesID string            `json:"series_id,omitempty"`
	ClassID  string            `json:"class_id,omitempty"`
	Attempts []StrategyAttempt `json:"attempts,omitempty"`
}

// FundType is the coarse kind of investment company.
type FundType string

const (
	FundTypeMutualFund FundType = "MUTUAL_FUND"
	FundTypeETF        FundType = "ETF"
	FundTypeUnknown    FundType = "UNKNOWN"
)

// FundProfile is computed once per fund after resolution.
type FundProfile struct {
	Type           FundType `json:"fund_type"`
	Provider       string   `json:"provider,omitempty"`
	PreferredForms []string `json:"preferred_forms"`
}

// Rank returns the position of form in PreferredForms.
func (p FundProfile) Rank(form string) (int, bool) {
	for i, f := range p.PreferredForms {
		if f == form {
			return i, true
		}
	}
	return 0, false
}
