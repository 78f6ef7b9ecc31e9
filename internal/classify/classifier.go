// Package classify infers fund type and provider and maps them to an ordered
// list of prospectus forms.
package classify

import (
	"strings"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// Classifier derives a FundProfile from a resolved CIK record.
type Classifier struct {
	forms *FormTable
}

// New creates a Classifier. A nil table uses DefaultFormTable.
func New(forms *FormTable) *Classifier {
	if forms == nil {
		forms = DefaultFormTable()
	}
	return &Classifier{forms: forms}
}

// Classify computes the fund's type, provider and form preferences.
func (c *Classifier) Classify(rec model.CIKRecord) model.FundProfile {
	typ := FundType(rec)
	provider := Provider(rec)
	return model.FundProfile{
		Type:           typ,
		Provider:       provider,
		PreferredForms: c.forms.Preferences(rec.Symbol, typ, provider),
	}
}

// FundType infers the fund type from the ETF table, the registrant title and
// the ticker shape, in that order.
func FundType(rec model.CIKRecord) model.FundType {
	sym := string(rec.Symbol)
	if _, ok := KnownETF(sym); ok {
		return model.FundTypeETF
	}

	title := strings.ToUpper(rec.Title)
	if strings.Contains(title, "ETF") || strings.Contains(title, "EXCHANGE TRADED") || strings.Contains(title, "EXCHANGE-TRADED") {
		return model.FundTypeETF
	}
	if strings.Contains(title, "VANGUARD") || strings.Contains(title, "ADMIRAL") || strings.Contains(title, "VG ") {
		return model.FundTypeMutualFund
	}

	switch {
	case isMutualFundShape(sym):
		return model.FundTypeMutualFund
	case len(sym) == 5 && sym[0] == 'V':
		return model.FundTypeMutualFund
	case rec.Method == model.DiscoveryMutualFundJSON:
		return model.FundTypeMutualFund
	}
	return model.FundTypeUnknown
}

// Provider returns the discovery hint, else the provider named in the title,
// else the ticker-pattern guess.
func Provider(rec model.CIKRecord) string {
	if rec.Provider != "" {
		return rec.Provider
	}
	if p := ProviderFromTitle(rec.Title); p != "" {
		return p
	}
	return ProviderFromTicker(string(rec.Symbol))
}
