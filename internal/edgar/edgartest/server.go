// Package edgartest provides an in-process EDGAR stand-in for tests.
package edgartest

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Filing is a filing served by the fake registrant.
type Filing struct {
	Form            string
	Date            string // YYYY-MM-DD
	Accession       string // with dashes
	PrimaryDocument string // empty to omit it from submissions
	Body            []byte
	ContentType     string
}

type registrant struct {
	name    string
	filings []Filing
}

type company struct {
	cik    int64
	ticker string
	title  string
}

type fund struct {
	cik      int64
	seriesID string
	classID  string
	symbol   string
}

// Server is a fake of data.sec.gov and www.sec.gov served from one host.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	companies   []company
	funds       []fund
	registrants map[int64]*registrant
	status      map[string]int
	hits        map[string]int
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		registrants: make(map[int64]*registrant),
		status:      make(map[string]int),
		hits:        make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddCompany lists a ticker in company_tickers.json.
func (s *Server) AddCompany(cik int64, ticker, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies = append(s.companies, company{cik, ticker, title})
}

// AddMutualFund lists a share class in company_tickers_mf.json.
func (s *Server) AddMutualFund(cik int64, seriesID, classID, symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds = append(s.funds, fund{cik, seriesID, classID, symbol})
}

// AddRegistrant makes submissions available for cik.
func (s *Server) AddRegistrant(cik int64, name string, filings ...Filing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrants[cik]
	if !ok {
		r = &registrant{}
		s.registrants[cik] = r
	}
	r.name = name
	r.filings = append(r.filings, filings...)
}

// SetStatus forces every request to path to answer code.
func (s *Server) SetStatus(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = code
}

// Hits returns how many requests path received.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// SubmissionsPath returns the request path of the submissions document for cik.
func SubmissionsPath(cik int64) string {
	return fmt.Sprintf("/submissions/CIK%010d.json", cik)
}

// DocumentPath returns the archive path of a filing document.
func DocumentPath(cik int64, accession, name string) string {
	return fmt.Sprintf("/Archives/edgar/data/%d/%s/%s", cik, strings.ReplaceAll(accession, "-", ""), name)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := r.URL.Path
	s.hits[p]++
	if code, ok := s.status[p]; ok {
		w.WriteHeader(code)
		return
	}

	switch {
	case p == "/files/company_tickers.json":
		out := make(map[string]any, len(s.companies))
		for i, c := range s.companies {
			out[strconv.Itoa(i)] = map[string]any{"cik_str": c.cik, "ticker": c.ticker, "title": c.title}
		}
		writeJSON(w, out)
	case p == "/files/company_tickers_mf.json":
		data := make([][]any, 0, len(s.funds))
		for _, f := range s.funds {
			data = append(data, []any{f.cik, f.seriesID, f.classID, f.symbol})
		}
		writeJSON(w, map[string]any{"fields": []string{"cik", "seriesId", "classId", "symbol"}, "data": data})
	case strings.HasPrefix(p, "/submissions/CIK"):
		s.submissions(w, p)
	case strings.HasPrefix(p, "/api/xbrl/companyfacts/CIK"):
		r, cik := s.lookup(strings.TrimSuffix(strings.TrimPrefix(p, "/api/xbrl/companyfacts/CIK"), ".json"))
		if r == nil {
			http.NotFound(w, nil)
			return
		}
		writeJSON(w, map[string]any{"cik": cik, "entityName": r.name})
	case p == "/cgi-bin/browse-edgar":
		s.feed(w, r.URL.Query().Get("CIK"))
	case strings.HasPrefix(p, "/Archives/edgar/data/"):
		s.archive(w, strings.Split(strings.TrimPrefix(p, "/Archives/edgar/data/"), "/"))
	default:
		http.NotFound(w, nil)
	}
}

func (s *Server) lookup(cikText string) (*registrant, int64) {
	cik, err := strconv.ParseInt(cikText, 10, 64)
	if err != nil {
		return nil, 0
	}
	return s.registrants[cik], cik
}

func (s *Server) submissions(w http.ResponseWriter, p string) {
	r, _ := s.lookup(strings.TrimSuffix(strings.TrimPrefix(p, "/submissions/CIK"), ".json"))
	if r == nil {
		http.NotFound(w, nil)
		return
	}
	var forms, dates, accs, docs []string
	for _, f := range r.filings {
		forms = append(forms, f.Form)
		dates = append(dates, f.Date)
		accs = append(accs, f.Accession)
		docs = append(docs, f.PrimaryDocument)
	}
	writeJSON(w, map[string]any{
		"name": r.name,
		"filings": map[string]any{"recent": map[string]any{
			"form": forms, "filingDate": dates, "accessionNumber": accs, "primaryDocument": docs,
		}},
	})
}

func (s *Server) feed(w http.ResponseWriter, cikText string) {
	r, cik := s.lookup(cikText)
	if r == nil {
		http.NotFound(w, nil)
		return
	}
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" ?>` + "\n")
	b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom"><title>` + html.EscapeString(r.name) + `</title>`)
	for _, f := range r.filings {
		nodash := strings.ReplaceAll(f.Accession, "-", "")
		fmt.Fprintf(&b, `<entry><category label="form type" scheme="https://www.sec.gov/" term="%s"/>`, f.Form)
		fmt.Fprintf(&b, `<content type="text/xml"><accession-number>%s</accession-number><filing-date>%s</filing-date><filing-type>%s</filing-type></content>`, f.Accession, f.Date, f.Form)
		fmt.Fprintf(&b, `<id>urn:tag:sec.gov,2008:accession-number=%s</id>`, f.Accession)
		fmt.Fprintf(&b, `<link href="https://www.sec.gov/Archives/edgar/data/%d/%s/%s-index.htm" rel="alternate" type="text/html"/>`, cik, nodash, f.Accession)
		fmt.Fprintf(&b, `<title>%s  - filing</title><updated>%sT16:00:00-05:00</updated></entry>`, f.Form, f.Date)
	}
	b.WriteString(`</feed>`)
	w.Header().Set("Content-Type", "application/atom+xml")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) archive(w http.ResponseWriter, parts []string) {
	if len(parts) != 3 {
		http.NotFound(w, nil)
		return
	}
	r, _ := s.lookup(parts[0])
	if r == nil {
		http.NotFound(w, nil)
		return
	}
	for _, f := range r.filings {
		if strings.ReplaceAll(f.Accession, "-", "") != parts[1] {
			continue
		}
		if parts[2] == f.Accession+"-index.htm" {
			writeIndex(w, f)
			return
		}
		if parts[2] == f.PrimaryDocument || (f.PrimaryDocument == "" && parts[2] == defaultDocument(f)) {
			ct := f.ContentType
			if ct == "" {
				ct = "text/html"
			}
			w.Header().Set("Content-Type", ct)
			_, _ = w.Write(f.Body)
			return
		}
	}
	http.NotFound(w, nil)
}

func defaultDocument(f Filing) string {
	return strings.ToLower(strings.ReplaceAll(f.Form, "/", "")) + ".htm"
}

func writeIndex(w http.ResponseWriter, f Filing) {
	doc := f.PrimaryDocument
	if doc == "" {
		doc = defaultDocument(f)
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><body><table class="tableFile" summary="Document Format Files">
<tr><th>Seq</th><th>Description</th><th>Document</th><th>Type</th><th>Size</th></tr>
<tr><td>1</td><td>cover</td><td><a href="/Archives/edgar/data/0/%s/cover.jpg">cover.jpg</a></td><td>GRAPHIC</td><td>10</td></tr>
<tr><td>2</td><td>prospectus</td><td><a href="/ix?doc=/Archives/edgar/data/0/%s/%s">%s</a></td><td>%s</td><td>%d</td></tr>
</table></body></html>`, strings.ReplaceAll(f.Accession, "-", ""), strings.ReplaceAll(f.Accession, "-", ""), doc, doc, f.Form, len(f.Body))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
