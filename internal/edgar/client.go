// Package edgar reads the SEC EDGAR endpoints used to resolve funds and
// locate their prospectus filings.
package edgar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"

	"github.com/sells-group/prospectus-cli/internal/fetcher"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/symbol"
)

const (
	DefaultDataURL = "https://data.sec.gov"
	DefaultWWWURL  = "https://www.sec.gov"
)

// Options points the client at EDGAR (or a test server).
type Options struct {
	DataURL string
	WWWURL  string
}

// Client reads EDGAR JSON, Atom and HTML endpoints through a Fetcher. The
// ticker datasets are downloaded at most once per Client.
type Client struct {
	f       fetcher.Fetcher
	dataURL string
	wwwURL  string
	parser  *gofeed.Parser

	tickers   cached[[]CompanyTicker]
	mfTickers cached[[]MutualFundTicker]
}

// NewClient creates a Client. Empty option fields use the public EDGAR hosts.
func NewClient(f fetcher.Fetcher, opts Options) *Client {
	if opts.DataURL == "" {
		opts.DataURL = DefaultDataURL
	}
	if opts.WWWURL == "" {
		opts.WWWURL = DefaultWWWURL
	}
	return &Client{
		f:       f,
		dataURL: strings.TrimRight(opts.DataURL, "/"),
		wwwURL:  strings.TrimRight(opts.WWWURL, "/"),
		parser:  gofeed.NewParser(),
	}
}

// DocumentURL returns the archive URL of a filing's primary document.
func (c *Client) DocumentURL(f model.FilingCandidate) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.wwwURL, symbol.TrimCIK(f.CIK), f.AccessionNoDashes(), f.PrimaryDocument)
}

// IndexURL returns the archive URL of a filing's index page.
func (c *Client) IndexURL(f model.FilingCandidate) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s-index.htm",
		c.wwwURL, symbol.TrimCIK(f.CIK), f.AccessionNoDashes(), f.AccessionNumber)
}

func (c *Client) submissionsURL(cik string) string {
	return fmt.Sprintf("%s/submissions/CIK%s.json", c.dataURL, symbol.PadCIK(cik))
}

func (c *Client) companyFactsURL(cik string) string {
	return fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.dataURL, symbol.PadCIK(cik))
}

func (c *Client) feedURL(cik string) string {
	return fmt.Sprintf("%s/cgi-bin/browse-edgar?action=getcompany&CIK=%s&type=&dateb=&owner=include&count=100&output=atom",
		c.wwwURL, symbol.PadCIK(cik))
}

// cached holds a lazily loaded value. Failed loads are not remembered so a
// later caller can try again.
type cached[T any] struct {
	mu     sync.Mutex
	val    T
	loaded bool
}

func (c *cached[T]) get(ctx context.Context, load func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.val, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.val, c.loaded = v, true
	return v, nil
}
