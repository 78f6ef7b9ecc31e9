package edgar

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/fetcher"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/resilience"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

// Submissions is the registrant header plus its recent filing index.
type Submissions struct {
	CIK     string
	Name    string
	Tickers []string
	Filings []model.FilingCandidate
}

type submissionsResponse struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent filingList `json:"recent"`
	} `json:"filings"`
}

type filingList struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDoc      []string `json:"primaryDocument"`
}

type companyFactsResponse struct {
	CIK        int64  `json:"cik"`
	EntityName string `json:"entityName"`
}

// Submissions fetches data.sec.gov/submissions for cik.
func (c *Client) Submissions(ctx context.Context, cik string) (*Submissions, error) {
	cik = symbol.PadCIK(cik)
	raw, err := fetcher.GetJSON[submissionsResponse](ctx, c.f, c.submissionsURL(cik))
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: submissions for CIK %s", cik)
	}
	return &Submissions{
		CIK:     cik,
		Name:    raw.Name,
		Tickers: raw.Tickers,
		Filings: raw.Filings.Recent.candidates(cik),
	}, nil
}

// EntityName returns the registrant name from the XBRL company facts API.
func (c *Client) EntityName(ctx context.Context, cik string) (string, error) {
	raw, err := fetcher.GetJSON[companyFactsResponse](ctx, c.f, c.companyFactsURL(cik))
	if err != nil {
		return "", eris.Wrapf(err, "edgar: company facts for CIK %s", cik)
	}
	return raw.EntityName, nil
}

// Filings returns the filing index for cik. When the submissions API fails
// for a reason other than a transient outage, the company Atom feed is used.
func (c *Client) Filings(ctx context.Context, cik string) ([]model.FilingCandidate, error) {
	sub, err := c.Submissions(ctx, cik)
	if err == nil {
		return sub.Filings, nil
	}
	if resilience.IsTransient(err) || ctx.Err() != nil {
		return nil, err
	}

	zap.L().Warn("submissions unavailable, falling back to atom feed",
		zap.String("cik", symbol.PadCIK(cik)),
		zap.Error(err),
	)
	filings, ferr := c.FeedFilings(ctx, cik)
	if ferr != nil {
		return nil, eris.Wrapf(ferr, "edgar: feed fallback after %v", err)
	}
	return filings, nil
}

func (l filingList) candidates(cik string) []model.FilingCandidate {
	n := min(len(l.AccessionNumber), len(l.FilingDate), len(l.Form))
	out := make([]model.FilingCandidate, 0, n)
	for i := range n {
		date, err := parseDate(l.FilingDate[i])
		if err != nil {
			continue
		}
		c := model.FilingCandidate{
			CIK:             cik,
			Form:            strings.TrimSpace(l.Form[i]),
			FilingDate:      date,
			AccessionNumber: l.AccessionNumber[i],
		}
		if i < len(l.PrimaryDoc) {
			c.PrimaryDocument = l.PrimaryDoc[i]
		}
		out = append(out, c)
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse filing date %q", s)
	}
	return t, nil
}
