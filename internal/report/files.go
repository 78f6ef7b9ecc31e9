package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/storage"
)

// DownloadSummaryFile is the cumulative download log under the storage root.
const DownloadSummaryFile = "download_summary.json"

// MaxDownloadEntries caps the download log; older entries are dropped.
const MaxDownloadEntries = 1000

// DownloadEntry is one stored prospectus in the download log.
type DownloadEntry struct {
	Symbol       model.FundSymbol `json:"fund_symbol"`
	FormType     string           `json:"form_type"`
	FilingDate   string           `json:"filing_date"`
	DownloadedAt time.Time        `json:"download_timestamp"`
	FilePath     string           `json:"file_path"`
	FileSize     int64            `json:"file_size"`
	SHA256       string           `json:"sha256"`
	RunID        string           `json:"run_id,omitempty"`
}

// DownloadLog is the content of download_summary.json.
type DownloadLog struct {
	Downloads      []DownloadEntry `json:"downloads"`
	LastUpdated    time.Time       `json:"last_updated"`
	TotalDownloads int             `json:"total_downloads"`
}

// WriteJSON marshals v with indentation and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "report: encode %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir for %s", path)
	}
	return storage.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// AppendDownloads adds an entry for every newly stored document in batch to
// the download log under root, keeping the most recent MaxDownloadEntries.
// Skipped and dry-run results are not logged.
func AppendDownloads(root string, batch *model.BatchResult, now time.Time) error {
	path := filepath.Join(root, DownloadSummaryFile)

	var log DownloadLog
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &log); err != nil {
			return eris.Wrapf(err, "report: parse %s", path)
		}
	case !os.IsNotExist(err):
		return eris.Wrapf(err, "report: read %s", path)
	}

	added := 0
	for _, r := range batch.Results {
		if !r.Success || r.Skipped || r.Download == nil || r.Filing == nil {
			continue
		}
		rel, err := filepath.Rel(root, r.Download.Path)
		if err != nil {
			rel = r.Download.Path
		}
		log.Downloads = append(log.Downloads, DownloadEntry{
			Symbol:       r.Symbol,
			FormType:     r.Filing.Primary.Form,
			FilingDate:   r.Filing.Primary.FilingDate.Format(time.DateOnly),
			DownloadedAt: r.Download.DownloadedAt,
			FilePath:     filepath.ToSlash(rel),
			FileSize:     r.Download.Size,
			SHA256:       r.Download.SHA256,
			RunID:        batch.RunID,
		})
		added++
	}
	if added == 0 {
		return nil
	}

	if n := len(log.Downloads); n > MaxDownloadEntries {
		log.Downloads = log.Downloads[n-MaxDownloadEntries:]
	}
	log.LastUpdated = now.UTC()
	log.TotalDownloads = len(log.Downloads)
	return WriteJSON(path, log)
}

// BatchResultsPath returns {root}/{label}_batch_results.json.
func BatchResultsPath(root, label string) string {
	if label == "" {
		label = "custom"
	}
	return filepath.Join(root, label+"_batch_results.json")
}
