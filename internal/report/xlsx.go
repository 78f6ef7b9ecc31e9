package report

import (
	"bytes"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/storage"
)

var resultColumns = []string{
	"Input", "Symbol", "Status", "Error Category", "Message",
	"CIK", "Discovery Method", "Fund Type", "Provider",
	"Form", "Filing Date", "Accession", "Supplements",
	"File", "Bytes", "SHA-256", "Duration (s)",
}

// WriteXLSX writes a workbook with a Summary sheet and a Results sheet.
func WriteXLSX(path string, s model.BatchSummary, results []model.FundResult) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	addPair(summary, "Total processed", s.Total)
	addPair(summary, "Successful", s.Succeeded)
	addPair(summary, "Skipped", s.Skipped)
	addPair(summary, "Failed", s.Failed)
	row := summary.AddRow()
	row.AddCell().SetString("Success rate (%)")
	row.AddCell().SetFloatWithFormat(s.SuccessRate, "0.0")
	row = summary.AddRow()
	row.AddCell().SetString("Total downloaded")
	row.AddCell().SetString(s.TotalSize)
	for _, form := range sortedKeys(s.FormTypes) {
		addPair(summary, "Form "+form, s.FormTypes[form])
	}
	for _, c := range sortedKeys(s.ErrorCategories) {
		addPair(summary, "Errors "+string(c), s.ErrorCategories[c])
	}

	sheet, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "xlsx: add results sheet")
	}
	header := sheet.AddRow()
	for _, col := range resultColumns {
		header.AddCell().SetString(col)
	}
	for _, r := range results {
		addResultRow(sheet.AddRow(), r)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return eris.Wrap(err, "xlsx: encode workbook")
	}
	return storage.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func addPair(sheet *xlsx.Sheet, label string, n int) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetInt(n)
}

func addResultRow(row *xlsx.Row, r model.FundResult) {
	str := func(v string) { row.AddCell().SetString(v) }

	status := "failed"
	switch {
	case r.Skipped:
		status = "skipped"
	case r.DryRun && r.Success:
		status = "dry-run"
	case r.Success:
		status = "downloaded"
	}
	str(r.Input)
	str(string(r.Symbol))
	str(status)
	str(string(r.ErrorCategory))
	str(r.Message)

	if r.CIK != nil {
		str(r.CIK.CIK)
		str(string(r.CIK.Method))
	} else {
		str("")
		str("")
	}
	if r.Profile != nil {
		str(string(r.Profile.Type))
		str(r.Profile.Provider)
	} else {
		str("")
		str("")
	}
	if r.Filing != nil {
		str(r.Filing.Primary.Form)
		str(r.Filing.Primary.FilingDate.Format(time.DateOnly))
		str(r.Filing.Primary.AccessionNumber)
		row.AddCell().SetInt(len(r.Filing.Supplements))
	} else {
		str("")
		str("")
		str("")
		str("")
	}
	if r.Download != nil {
		str(r.Download.Path)
		row.AddCell().SetInt64(r.Download.Size)
		str(r.Download.SHA256)
	} else {
		str("")
		str("")
		str("")
	}
	row.AddCell().SetFloatWithFormat(r.Duration.Seconds(), "0.00")
}
