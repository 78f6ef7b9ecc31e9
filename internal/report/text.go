package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// maxListedFailures bounds the failure list in FormatSummary.
const maxListedFailures = 10

var formDescriptions = map[string]string{
	"497":     "Definitive materials filed under Securities Act Rule 497",
	"497K":    "Summary prospectus filed under Securities Act Rule 497(k)",
	"N-1A":    "Registration statement for open-end management investment companies",
	"485APOS": "Post-effective amendment filed under Securities Act Rule 485(a)",
	"485BPOS": "Post-effective amendment filed under Securities Act Rule 485(b)",
	"N-CSR":   "Certified shareholder report of registered management investment companies",
	"N-14":    "Registration statement for business combinations of investment companies",
	"S-1":     "General registration statement",
	"S-3":     "Simplified registration statement",
}

// FormDescription returns a human-readable description of an SEC form type.
func FormDescription(form string) string {
	if d, ok := formDescriptions[strings.ToUpper(form)]; ok {
		return d
	}
	return "SEC Form " + form
}

// FormatSummary renders the human-readable batch summary.
func FormatSummary(s model.BatchSummary, results []model.FundResult) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "FUND PROSPECTUS BATCH SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Total funds processed:   %d\n", s.Total)
	fmt.Fprintf(&b, "Successful downloads:    %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Skipped (already exist): %d\n", s.Skipped)
	fmt.Fprintf(&b, "Failed:                  %d\n", s.Failed)
	fmt.Fprintf(&b, "Success rate:            %.1f%%\n", s.SuccessRate)
	fmt.Fprintf(&b, "Total data downloaded:   %s\n", s.TotalSize)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Total processing time:   %.1f seconds\n", s.FinishedAt.Sub(s.StartedAt).Seconds())
	}

	if len(s.FormTypes) > 0 {
		fmt.Fprintln(&b, "\nForm types:")
		for _, form := range sortedKeys(s.FormTypes) {
			fmt.Fprintf(&b, "  - %s: %d (%s)\n", form, s.FormTypes[form], FormDescription(form))
		}
	}
	if len(s.DiscoveryMethods) > 0 {
		fmt.Fprintln(&b, "\nDiscovery methods used:")
		for _, m := range sortedKeys(s.DiscoveryMethods) {
			fmt.Fprintf(&b, "  - %s: %d funds\n", m, s.DiscoveryMethods[m])
		}
	}
	if len(s.ErrorCategories) > 0 {
		fmt.Fprintln(&b, "\nError categories:")
		for _, c := range sortedKeys(s.ErrorCategories) {
			fmt.Fprintf(&b, "  - %s: %d funds\n", c, s.ErrorCategories[c])
		}
	}

	var failures []model.FundResult
	for _, r := range results {
		if !r.Success {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(&b, "\nFailures:")
		for _, r := range failures[:min(len(failures), maxListedFailures)] {
			fmt.Fprintf(&b, "  - %s [%s] %s\n", r.Input, r.ErrorCategory, r.Message)
		}
		if rest := len(failures) - maxListedFailures; rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}
	fmt.Fprintln(&b, rule)
	return b.String()
}
