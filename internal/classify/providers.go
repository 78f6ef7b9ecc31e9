package classify

import "strings"

// Fund family names used as provider hints.
const (
	ProviderVanguard  = "Vanguard"
	ProviderFidelity  = "Fidelity"
	ProviderSPDR      = "SPDR"
	ProviderIShares   = "iShares"
	ProviderInvesco   = "Invesco"
	ProviderSchwab    = "Schwab"
	ProviderARK       = "ARK"
	ProviderProShares = "ProShares"
)

// titleIndicators maps registrant-name fragments to providers, checked in order.
var titleIndicators = []struct {
	fragment string
	provider string
}{
	{"VANGUARD", ProviderVanguard},
	{"FIDELITY", ProviderFidelity},
	{"STATE STREET", ProviderSPDR},
	{"SPDR", ProviderSPDR},
	{"SELECT SECTOR", ProviderSPDR},
	{"BLACKROCK", ProviderIShares},
	{"ISHARES", ProviderIShares},
	{"INVESCO", ProviderInvesco},
	{"SCHWAB", ProviderSchwab},
	{"ARK ETF", ProviderARK},
	{"ARK INVESTMENT", ProviderARK},
	{"PROSHARES", ProviderProShares},
}

// searchTerms are the company-title fragments used to find a provider's
// registrant in company_tickers.json.
var searchTerms = map[string][]string{
	ProviderSPDR:      {"SPDR", "SELECT SECTOR", "STATE STREET"},
	ProviderIShares:   {"ISHARES", "BLACKROCK"},
	ProviderVanguard:  {"VANGUARD"},
	ProviderInvesco:   {"INVESCO"},
	ProviderFidelity:  {"FIDELITY"},
	ProviderSchwab:    {"SCHWAB"},
	ProviderARK:       {"ARK ETF", "ARK INVESTMENT"},
	ProviderProShares: {"PROSHARES"},
}

// ProviderFromTitle returns the provider named in a registrant title.
func ProviderFromTitle(title string) string {
	t := strings.ToUpper(title)
	for _, ind := range titleIndicators {
		if strings.Contains(t, ind.fragment) {
			return ind.provider
		}
	}
	return ""
}

// ProviderFromTicker guesses a provider from ticker shape alone. Only
// patterns that do not collide with operating-company tickers are used.
func ProviderFromTicker(ticker string) string {
	t := strings.ToUpper(ticker)
	switch {
	case t == "SPY" || t == "GLD" || t == "DIA":
		return ProviderSPDR
	case strings.HasPrefix(t, "XL") && len(t) == 3:
		return ProviderSPDR
	case strings.HasPrefix(t, "QQQ") && len(t) <= 4:
		return ProviderInvesco
	case isOneOf(t, "IWM", "EFA", "IEF", "IJH", "IJR", "TLT"):
		return ProviderIShares
	case isOneOf(t, "VTI", "VOO", "VEA", "BND"):
		return ProviderVanguard
	case strings.HasPrefix(t, "ARK") && len(t) == 4:
		return ProviderARK
	case isMutualFundShape(t) && t[0] == 'V':
		return ProviderVanguard
	case isMutualFundShape(t) && t[0] == 'F':
		return ProviderFidelity
	}
	return ""
}

// SearchTerms returns the title fragments that identify a provider's registrants.
func SearchTerms(provider string) []string {
	return searchTerms[provider]
}

// isMutualFundShape reports the NASDAQ mutual fund ticker convention:
// five characters ending in X.
func isMutualFundShape(t string) bool {
	return len(t) == 5 && t[4] == 'X'
}

func isOneOf(s string, set ...string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
