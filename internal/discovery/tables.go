package discovery

import (
	"strings"

	"github.com/sells-group/prospectus-cli/internal/classify"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

var hardcodedCIKs = map[string]model.CIKRecord{
	"VUSXX": {CIK: "0000862084", Title: "VANGUARD ADMIRAL FUNDS", Provider: classify.ProviderVanguard},
	"VFIAX": {CIK: "0000036405", Title: "VANGUARD INDEX FUNDS", Provider: classify.ProviderVanguard},
	"VTSAX": {CIK: "0000036405", Title: "VANGUARD INDEX FUNDS", Provider: classify.ProviderVanguard},
	"FXAIX": {CIK: "0000819118", Title: "FIDELITY CONCORD STREET TRUST", Provider: classify.ProviderFidelity},
}

// operating companies that are commonly mistaken for funds
var stockTickers = map[string]bool{
	"AAPL": true, "MSFT": true, "GOOGL": true, "GOOG": true, "AMZN": true, "TSLA": true, "META": true,
	"NVDA": true, "JPM": true, "JNJ": true, "V": true, "PG": true, "HD": true, "MA": true, "UNH": true,
	"DIS": true, "PYPL": true, "ADBE": true, "NFLX": true, "CRM": true, "TMO": true, "ABT": true,
	"COST": true, "PFE": true, "XOM": true, "KO": true, "PEP": true, "WMT": true,
}

var placeholderWords = []string{"UNKNOWN", "FUND123", "RANDOM", "TEST", "FAKE", "INVALID", "SAMPLE"}

// Rejected returns a reason when sym is an operating-company ticker or
// looks like placeholder input. Numeric CIKs are never rejected.
func Rejected(sym model.FundSymbol) string {
	s := string(sym)
	if symbol.IsNumericCIK(sym) {
		return ""
	}
	if stockTickers[s] {
		return "operating company ticker, not a fund"
	}
	for _, w := range placeholderWords {
		if strings.Contains(s, w) {
			return "placeholder or test symbol"
		}
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits > 2 {
		return "ticker contains more than two digits"
	}
	return ""
}
