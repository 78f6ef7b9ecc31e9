package edgar

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

var (
	accessionRe  = regexp.MustCompile(`(\d{10}-\d{2}-\d{6})`)
	accessionDir = regexp.MustCompile(`/(\d{18})/`)
	filingDateRe = regexp.MustCompile(`<filing-date>\s*(\d{4}-\d{2}-\d{2})\s*</filing-date>`)
	filingTypeRe = regexp.MustCompile(`<filing-type>\s*([^<\s]+)\s*</filing-type>`)
)

// FeedFilings reads the company browse Atom feed for cik. Feed entries carry
// no primary document name; callers resolve it from the index page.
func (c *Client) FeedFilings(ctx context.Context, cik string) ([]model.FilingCandidate, error) {
	cik = symbol.PadCIK(cik)
	resp, err := c.f.Get(ctx, c.feedURL(cik))
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: atom feed for CIK %s", cik)
	}
	feed, err := c.parser.ParseString(string(resp.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: parse atom feed for CIK %s", cik)
	}

	out := make([]model.FilingCandidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		acc := feedAccession(item.GUID, item.Link, item.Content)
		if acc == "" {
			continue
		}
		// Categories hold the "form type" label, not the term.
		form := ""
		if m := filingTypeRe.FindStringSubmatch(item.Content); m != nil {
			form = m[1]
		}
		if form == "" {
			if fields := strings.Fields(item.Title); len(fields) > 0 {
				form = fields[0]
			}
		}

		var date time.Time
		if m := filingDateRe.FindStringSubmatch(item.Content); m != nil {
			date, _ = parseDate(m[1])
		}
		if date.IsZero() && item.UpdatedParsed != nil {
			date, _ = parseDate(item.UpdatedParsed.Format(time.DateOnly))
		}
		if date.IsZero() {
			continue
		}

		out = append(out, model.FilingCandidate{
			CIK:             cik,
			Form:            form,
			FilingDate:      date,
			AccessionNumber: acc,
		})
	}
	return out, nil
}

func feedAccession(guid, link, content string) string {
	for _, s := range []string{guid, content} {
		if m := accessionRe.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	if m := accessionDir.FindStringSubmatch(link); m != nil {
		d := m[1]
		return fmt.Sprintf("%s-%s-%s", d[:10], d[10:12], d[12:])
	}
	return ""
}
