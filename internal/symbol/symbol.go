// Package symbol normalizes user-supplied fund tickers and CIKs.
package symbol

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/sells-group/prospectus-cli/internal/model"
)

var (
	tickerRe = regexp.MustCompile(`^[A-Z0-9]{1,6}$`)
	cikRe    = regexp.MustCompile(`^(?:CIK([0-9]{1,10})|([0-9]{1,10})(?:CIK)?)$`)
)

// Normalize trims, folds full-width characters and uppercases raw, then
// accepts a 1-6 character alphanumeric ticker or a numeric CIK of up to ten
// digits (an optional leading or trailing "CIK" qualifier is dropped). Normalize(Normalize(x)) is
// Normalize(x).
func Normalize(raw string) (model.FundSymbol, error) {
	s := strings.ToUpper(strings.TrimSpace(width.Fold.String(raw)))
	if s == "" {
		return "", &model.InvalidSymbolError{Raw: raw, Reason: "empty symbol"}
	}

	if m := cikRe.FindStringSubmatch(s); m != nil {
		return model.FundSymbol(m[1] + m[2]), nil
	}
	if tickerRe.MatchString(s) {
		return model.FundSymbol(s), nil
	}

	reason := "must be 1-6 letters or digits, or a numeric CIK"
	if len(s) > 6 && !strings.ContainsFunc(s, notAlnum) {
		reason = "ticker longer than 6 characters"
	}
	return "", &model.InvalidSymbolError{Raw: raw, Reason: reason}
}

// IsNumericCIK reports whether sym consists only of digits.
func IsNumericCIK(sym model.FundSymbol) bool {
	if sym == "" {
		return false
	}
	return !strings.ContainsFunc(string(sym), func(r rune) bool { return r < '0' || r > '9' })
}

// PadCIK left-pads a numeric CIK with zeros to ten digits.
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}

// TrimCIK strips leading zeros as EDGAR archive paths expect.
func TrimCIK(cik string) string {
	t := strings.TrimLeft(cik, "0")
	if t == "" {
		return "0"
	}
	return t
}

func notAlnum(r rune) bool {
	return (r < 'A' || r > 'Z') && (r < '0' || r > '9')
}
