package storage

import (
	"mime"
	"path"
	"strings"

	"github.com/sells-group/prospectus-cli/internal/model"
)

// MetadataSuffix is appended to a document path to name its sidecar.
const MetadataSuffix = ".meta.json"

var formReplacer = strings.NewReplacer("/", "-", " ", "-", "\\", "-")

// FileName returns {SYMBOL}_{FORM}_{YYYYMMDD}_{ACCESSION}.{ext}.
func FileName(sym model.FundSymbol, f model.FilingCandidate, ext string) string {
	return string(sym) + "_" +
		formReplacer.Replace(f.Form) + "_" +
		f.FilingDate.Format("20060102") + "_" +
		f.AccessionNoDashes() + "." + ext
}

// Extension picks the stored extension from the document name, falling back
// to the response media type.
func Extension(document, contentType string) string {
	switch strings.ToLower(path.Ext(document)) {
	case ".pdf":
		return "pdf"
	case ".htm", ".html":
		return "html"
	case ".txt":
		return "txt"
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "application/pdf":
			return "pdf"
		case "text/plain":
			return "txt"
		}
	}
	return "html"
}
