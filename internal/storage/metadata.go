package storage

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// Metadata is the JSON sidecar stored next to every document.
type Metadata struct {
	Symbol          model.FundSymbol        `json:"symbol"`
	CIK             string                  `json:"cik"`
	FormType        string                  `json:"form_type"`
	FilingDate      string                  `json:"filing_date"`
	AccessionNumber string                  `json:"accession_number"`
	SourceURL       string                  `json:"source_url"`
	FileSize        int64                   `json:"file_size"`
	SHA256          string                  `json:"sha256"`
	ContentType     string                  `json:"content_type,omitempty"`
	Extension       string                  `json:"extension"`
	DiscoveryMethod model.DiscoveryMethod   `json:"discovery_method"`
	FundType        model.FundType          `json:"fund_type"`
	Provider        string                  `json:"provider,omitempty"`
	SeriesID        string                  `json:"series_id,omitempty"`
	ClassID         string                  `json:"class_id,omitempty"`
	Supplements     []model.FilingCandidate `json:"supplements,omitempty"`
	DownloadedAt    time.Time               `json:"download_timestamp"`
	LocalPath       string                  `json:"local_path"`
}

// Result converts the sidecar into a DownloadResult.
func (m *Metadata) Result(metaPath string) *model.DownloadResult {
	return &model.DownloadResult{
		SHA256:       m.SHA256,
		Size:         m.FileSize,
		Path:         m.LocalPath,
		MetadataPath: metaPath,
		Extension:    m.Extension,
		ContentType:  m.ContentType,
		SourceURL:    m.SourceURL,
		DownloadedAt: m.DownloadedAt,
	}
}

// ReadMetadata loads a sidecar file.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read metadata %s", path)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "parse metadata %s", path)
	}
	return &m, nil
}
