package edgar

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospectus-cli/internal/model"
)

var documentExts = []string{".htm", ".html", ".pdf", ".txt"}

// PrimaryDocument reads the filing index page and returns the file name of
// the document whose type matches the filing's form, or the first readable
// document when none does.
func (c *Client) PrimaryDocument(ctx context.Context, f model.FilingCandidate) (string, error) {
	u := c.IndexURL(f)
	resp, err := c.f.Get(ctx, u)
	if err != nil {
		return "", eris.Wrapf(err, "edgar: filing index %s", f.AccessionNumber)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", eris.Wrapf(err, "edgar: parse filing index %s", f.AccessionNumber)
	}

	var exact, first string
	doc.Find("table.tableFile tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return true
		}
		href, ok := cells.Eq(2).Find("a").Attr("href")
		if !ok {
			return true
		}
		name := documentName(href)
		if !readable(name) {
			return true
		}
		if first == "" {
			first = name
		}
		docType := strings.TrimSpace(cells.Eq(3).Text())
		if strings.EqualFold(docType, f.Form) || strings.EqualFold(docType, f.BaseForm()) {
			exact = name
			return false
		}
		return true
	})

	switch {
	case exact != "":
		return exact, nil
	case first != "":
		return first, nil
	default:
		return "", eris.Errorf("edgar: no document listed in filing index %s", u)
	}
}

func documentName(href string) string {
	if i := strings.Index(href, "doc="); i >= 0 {
		href = href[i+len("doc="):]
	}
	return path.Base(href)
}

func readable(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range documentExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
