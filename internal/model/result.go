package model

import "time"

// ErrorCategory classifies a per-fund failure.
type ErrorCategory string

const (
	CategoryNone            ErrorCategory = ""
	CategoryInvalidSymbol   ErrorCategory = "INVALID_SYMBOL"
	CategoryDiscoveryFailed ErrorCategory = "DISCOVERY_FAILED"
	CategoryNoProspectus    ErrorCategory = "NO_PROSPECTUS"
	CategoryNetwork         ErrorCategory = "NETWORK_ERROR"
	CategoryIntegrity       ErrorCategory = "INTEGRITY_ERROR"
	CategoryProcessing      ErrorCategory = "PROCESSING_ERROR"
)

// FundResult is the outcome of processing one input symbol.
type FundResult struct {
	Input         string          `json:"input"`
	Symbol        FundSymbol      `json:"symbol,omitempty"`
	Success       bool            `json:"success"`
	Skipped       bool            `json:"skipped,omitempty"`
	DryRun        bool            `json:"dry_run,omitempty"`
	ErrorCategory ErrorCategory   `json:"error_category,omitempty"`
	Message       string          `json:"message,omitempty"`
	CIK           *CIKRecord      `json:"cik_record,omitempty"`
	Profile       *FundProfile    `json:"fund_profile,omitempty"`
	Filing        *SelectedFiling `json:"filing,omitempty"`
	Download      *DownloadResult `json:"download,omitempty"`
	Duration      time.Duration   `json:"duration_ns"`
}

// BatchSummary aggregates the results of one batch run.
type BatchSummary struct {
	Total            int                     `json:"total_processed"`
	Succeeded        int                     `json:"successful"`
	Skipped          int                     `json:"skipped"`
	Failed           int                     `json:"failed"`
	SuccessRate      float64                 `json:"success_rate"`
	TotalBytes       int64                   `json:"total_bytes"`
	TotalSize        string                  `json:"total_size"`
	FormTypes        map[string]int          `json:"form_types"`
	ErrorCategories  map[ErrorCategory]int   `json:"error_categories"`
	DiscoveryMethods map[DiscoveryMethod]int `json:"discovery_methods"`
	StartedAt        time.Time               `json:"started_at"`
	FinishedAt       time.Time               `json:"finished_at"`
}

// BatchResult is everything a batch run produced.
type BatchResult struct {
	RunID   string       `json:"run_id,omitempty"`
	Label   string       `json:"label"`
	Results []FundResult `json:"results"`
	Summary BatchSummary `json:"summary"`
}

// Failures returns the unsuccessful results in input order.
func (b *BatchResult) Failures() []FundResult {
	var out []FundResult
	for _, r := range b.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}
