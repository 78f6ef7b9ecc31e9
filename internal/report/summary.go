// Package report aggregates batch results and renders them for the terminal
// and for files.
package report

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// Summarize aggregates results into a BatchSummary. It must be called once,
// after every worker has finished.
func Summarize(results []model.FundResult, started, finished time.Time) model.BatchSummary {
	s := model.BatchSummary{
		Total:            len(results),
		FormTypes:        map[string]int{},
		ErrorCategories:  map[model.ErrorCategory]int{},
		DiscoveryMethods: map[model.DiscoveryMethod]int{},
		StartedAt:        started,
		FinishedAt:       finished,
	}
	for _, r := range results {
		switch {
		case !r.Success:
			s.Failed++
			cat := r.ErrorCategory
			if cat == model.CategoryNone {
				cat = model.CategoryProcessing
			}
			s.ErrorCategories[cat]++
			continue
		case r.Skipped:
			s.Skipped++
		default:
			s.Succeeded++
			if r.Download != nil {
				s.TotalBytes += r.Download.Size
			}
			if r.CIK != nil {
				s.DiscoveryMethods[r.CIK.Method]++
			}
		}
		if r.Filing != nil {
			s.FormTypes[r.Filing.Primary.Form]++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total) * 100
	}
	s.TotalSize = FormatBytes(s.TotalBytes)
	return s
}

// FormatBytes renders n with one decimal place in B, KB, MB, GB or TB.
func FormatBytes(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
