package model

import (
	"strings"
	"time"
)

// FilingCandidate is one entry of a registrant's filing index.
type FilingCandidate struct {
	CIK             string    `json:"cik"`
	Form            string    `json:"form"`
	FilingDate      time.Time `json:"filing_date"`
	AccessionNumber string    `json:"accession_number"`
	PrimaryDocument string    `json:"primary_document,omitempty"`
}

// IsAmendment reports whether the form is an amendment such as "N-1A/A".
func (c FilingCandidate) IsAmendment() bool {
	return strings.HasSuffix(c.Form, "/A")
}

// BaseForm returns the form without an amendment suffix.
func (c FilingCandidate) BaseForm() string {
	return strings.TrimSuffix(c.Form, "/A")
}

// AccessionNoDashes returns the accession number as used in archive paths.
func (c FilingCandidate) AccessionNoDashes() string {
	return strings.ReplaceAll(c.AccessionNumber, "-", "")
}

// SelectedFiling is the chosen prospectus plus related filings observed near it.
type SelectedFiling struct {
	Primary     FilingCandidate   `json:"primary"`
	Supplements []FilingCandidate `json:"supplements,omitempty"`
	Monitored   []FilingCandidate `json:"monitored,omitempty"`
}

// DownloadResult describes a document persisted on disk.
type DownloadResult struct {
	SHA256       string    `json:"sha256"`
	Size         int64     `json:"file_size"`
	Path         string    `json:"file_path"`
	MetadataPath string    `json:"metadata_path"`
	Extension    string    `json:"extension"`
	ContentType  string    `json:"content_type,omitempty"`
	SourceURL    string    `json:"source_url"`
	DownloadedAt time.Time `json:"downloaded_at"`
}
