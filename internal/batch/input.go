package batch

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospectus-cli/internal/edgar"
)

// headerNames are first-row values treated as a column header, not a symbol.
var headerNames = []string{"SYMBOL", "TICKER", "FUND", "FUND_SYMBOL", "CIK"}

// LoadSymbols reads symbols from a .txt, .csv or .xlsx file. Text files hold
// one or more symbols per line separated by commas or whitespace, with '#'
// comments. CSV and XLSX files use the first column of the first sheet.
// Duplicates are dropped, keeping first occurrence order.
func LoadSymbols(path string) ([]string, error) {
	var (
		raw []string
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		raw, err = readXLSXColumn(path)
	case ".csv":
		raw, err = readCSVColumn(path)
	default:
		raw, err = readTextSymbols(path)
	}
	if err != nil {
		return nil, err
	}
	return dedupe(raw), nil
}

func readTextSymbols(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "symbols: read %s", path)
	}
	var out []string
	for line := range strings.Lines(string(data)) {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		out = append(out, strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\r' || r == '\n'
		})...)
	}
	return out, nil
}

func readCSVColumn(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "symbols: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var out []string
	for first := true; ; first = false {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "symbols: parse %s", path)
		}
		if len(record) == 0 || (first && isHeader(record[0])) {
			continue
		}
		out = append(out, record[0])
	}
	return out, nil
}

func readXLSXColumn(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "symbols: open workbook %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("symbols: workbook %s has no sheets", path)
	}

	var out []string
	for i, row := range f.Sheets[0].Rows {
		if row == nil || len(row.Cells) == 0 {
			continue
		}
		v := strings.TrimSpace(row.Cells[0].String())
		if i == 0 && isHeader(v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func isHeader(v string) bool {
	return slices.Contains(headerNames, strings.ToUpper(strings.TrimSpace(v)))
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToUpper(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// MutualFundLister lists the share classes in company_tickers_mf.json.
type MutualFundLister interface {
	MutualFundTickers(ctx context.Context) ([]edgar.MutualFundTicker, error)
}

// VanguardSymbols returns every Vanguard-shaped mutual fund ticker (five
// characters, V...X) listed by EDGAR, sorted.
func VanguardSymbols(ctx context.Context, src MutualFundLister) ([]string, error) {
	funds, err := src.MutualFundTickers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "vanguard: list mutual funds")
	}
	var out []string
	for _, f := range funds {
		t := strings.ToUpper(strings.TrimSpace(f.Symbol))
		if len(t) == 5 && t[0] == 'V' && t[4] == 'X' {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
