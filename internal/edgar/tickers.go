package edgar

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospectus-cli/internal/fetcher"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

// CompanyTicker is one row of company_tickers.json.
type CompanyTicker struct {
	CIK    string // 10-digit
	Ticker string
	Title  string
}

// MutualFundTicker is one row of company_tickers_mf.json.
type MutualFundTicker struct {
	CIK      string // 10-digit
	SeriesID string
	ClassID  string
	Symbol   string
}

type companyTickerEntry struct {
	CIKStr int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

type mfTickerFile struct {
	Fields []string `json:"fields"`
	Data   [][]any  `json:"data"`
}

// CompanyTickers returns the operating-company and ETF ticker map.
func (c *Client) CompanyTickers(ctx context.Context) ([]CompanyTicker, error) {
	return c.tickers.get(ctx, func(ctx context.Context) ([]CompanyTicker, error) {
		raw, err := fetcher.GetJSON[map[string]companyTickerEntry](ctx, c.f, c.wwwURL+"/files/company_tickers.json")
		if err != nil {
			return nil, eris.Wrap(err, "edgar: company tickers")
		}
		out := make([]CompanyTicker, 0, len(*raw))
		for _, e := range *raw {
			out = append(out, CompanyTicker{
				CIK:    symbol.PadCIK(strconv.FormatInt(e.CIKStr, 10)),
				Ticker: e.Ticker,
				Title:  e.Title,
			})
		}
		return out, nil
	})
}

// MutualFundTickers returns the mutual fund series/class ticker table.
func (c *Client) MutualFundTickers(ctx context.Context) ([]MutualFundTicker, error) {
	return c.mfTickers.get(ctx, func(ctx context.Context) ([]MutualFundTicker, error) {
		raw, err := fetcher.GetJSON[mfTickerFile](ctx, c.f, c.wwwURL+"/files/company_tickers_mf.json")
		if err != nil {
			return nil, eris.Wrap(err, "edgar: mutual fund tickers")
		}
		return parseMFTickers(raw)
	})
}

func parseMFTickers(raw *mfTickerFile) ([]MutualFundTicker, error) {
	idx := map[string]int{"cik": -1, "seriesId": -1, "classId": -1, "symbol": -1}
	for i, f := range raw.Fields {
		if _, ok := idx[f]; ok {
			idx[f] = i
		}
	}
	if idx["cik"] < 0 || idx["symbol"] < 0 {
		return nil, eris.Errorf("edgar: mutual fund tickers: unexpected fields %v", raw.Fields)
	}

	out := make([]MutualFundTicker, 0, len(raw.Data))
	for _, row := range raw.Data {
		t := MutualFundTicker{
			CIK:      symbol.PadCIK(cell(row, idx["cik"])),
			SeriesID: cell(row, idx["seriesId"]),
			ClassID:  cell(row, idx["classId"]),
			Symbol:   cell(row, idx["symbol"]),
		}
		if t.Symbol == "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func cell(row []any, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}
