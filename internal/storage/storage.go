// Package storage validates downloaded filings and persists them atomically
// with an integrity sidecar.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospectus-cli/internal/fetcher"
	"github.com/sells-group/prospectus-cli/internal/model"
)

// ErrInsufficientSpace is wrapped in the IntegrityError returned when the
// disk preflight fails.
var ErrInsufficientSpace = eris.New("insufficient disk space")

const defaultMinFreeBytes = 1 << 20

// Request is everything needed to fetch and record one prospectus.
type Request struct {
	Symbol  model.FundSymbol
	Record  model.CIKRecord
	Profile model.FundProfile
	Filing  model.SelectedFiling
	URL     string
}

// Store writes documents under Root/{SYMBOL}/.
type Store struct {
	root      string
	f         fetcher.Fetcher
	minFree   uint64
	freeSpace func(dir string) (uint64, error)
	now       func() time.Time
}

// New creates a Store rooted at root. minFreeBytes is the floor of the disk
// preflight; zero uses 1 MiB.
func New(root string, f fetcher.Fetcher, minFreeBytes uint64) *Store {
	if minFreeBytes == 0 {
		minFreeBytes = defaultMinFreeBytes
	}
	return &Store{
		root:      root,
		f:         f,
		minFree:   minFreeBytes,
		freeSpace: freeBytes,
		now:       time.Now,
	}
}

// Root returns the storage root directory.
func (s *Store) Root() string { return s.root }

// Validate checks a response before anything touches disk.
func Validate(resp *fetcher.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.IntegrityError{URL: resp.URL, Reason: "non-success status"}
	}
	if len(resp.Body) == 0 {
		return &model.IntegrityError{URL: resp.URL, Reason: "empty body"}
	}
	if resp.ContentLength >= 0 && resp.ContentLength != int64(len(resp.Body)) {
		return &model.IntegrityError{
			URL:      resp.URL,
			Reason:   "content length mismatch",
			Expected: resp.ContentLength,
			Actual:   int64(len(resp.Body)),
		}
	}
	return nil
}

// FetchAndStore downloads req.URL, validates and digests it, and writes the
// document and its sidecar atomically. On error nothing is left at the
// canonical paths.
func (s *Store) FetchAndStore(ctx context.Context, req Request) (*model.DownloadResult, error) {
	log := zap.L().With(zap.String("symbol", string(req.Symbol)), zap.String("url", req.URL))

	resp, err := s.f.Get(ctx, req.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: fetch %s", req.URL)
	}
	if err := Validate(resp); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(resp.Body)
	digest := hex.EncodeToString(sum[:])
	size := int64(len(resp.Body))
	primary := req.Filing.Primary
	ext := Extension(primary.PrimaryDocument, resp.ContentType())

	dir := filepath.Join(s.root, string(req.Symbol))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "storage: create %s", dir)
	}
	if err := s.preflight(dir, size); err != nil {
		return nil, &model.IntegrityError{URL: req.URL, Reason: "disk preflight failed", Err: err}
	}

	path := filepath.Join(dir, FileName(req.Symbol, primary, ext))
	metaPath := path + MetadataSuffix
	// A document from an earlier run at the same path is complete; only a
	// file this call created is rolled back.
	_, statErr := os.Lstat(path)
	created := os.IsNotExist(statErr)
	rollback := func() {
		if created {
			_ = os.Remove(path)
		}
	}
	if err := WriteFileAtomic(path, resp.Body, 0o644); err != nil {
		return nil, eris.Wrap(err, "storage: write document")
	}

	now := s.now().UTC()
	meta := Metadata{
		Symbol:          req.Symbol,
		CIK:             req.Record.CIK,
		FormType:        primary.Form,
		FilingDate:      primary.FilingDate.Format(time.DateOnly),
		AccessionNumber: primary.AccessionNumber,
		SourceURL:       req.URL,
		FileSize:        size,
		SHA256:          digest,
		ContentType:     resp.ContentType(),
		Extension:       ext,
		DiscoveryMethod: req.Record.Method,
		FundType:        req.Profile.Type,
		Provider:        req.Profile.Provider,
		SeriesID:        req.Record.SeriesID,
		ClassID:         req.Record.ClassID,
		Supplements:     req.Filing.Supplements,
		DownloadedAt:    now,
		LocalPath:       path,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		rollback()
		return nil, eris.Wrap(err, "storage: encode metadata")
	}
	if err := WriteFileAtomic(metaPath, data, 0o644); err != nil {
		rollback()
		return nil, eris.Wrap(err, "storage: write metadata")
	}

	log.Info("stored prospectus",
		zap.String("path", path),
		zap.Int64("bytes", size),
		zap.String("sha256", digest),
	)
	return meta.Result(metaPath), nil
}

func (s *Store) preflight(dir string, size int64) error {
	need := max(uint64(size)*2, s.minFree)
	free, err := s.freeSpace(dir)
	if err != nil {
		zap.L().Debug("disk preflight unavailable", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	if free < need {
		return eris.Wrapf(ErrInsufficientSpace, "need %d bytes, %d free", need, free)
	}
	return nil
}

// Existing returns the newest stored document for sym whose sidecar digest
// matches the bytes on disk, or nil when there is none.
func (s *Store) Existing(sym model.FundSymbol) (*model.DownloadResult, error) {
	dir := filepath.Join(s.root, string(sym))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "storage: list %s", dir)
	}

	type doc struct {
		path string
		mod  time.Time
	}
	var docs []doc
	prefix := string(sym) + "_"
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || isTemp(name) || !strings.HasPrefix(name, prefix) || strings.HasSuffix(name, MetadataSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, doc{filepath.Join(dir, name), info.ModTime()})
	}
	slices.SortFunc(docs, func(a, b doc) int { return b.mod.Compare(a.mod) })

	for _, d := range docs {
		meta, err := ReadMetadata(d.path + MetadataSuffix)
		if err != nil {
			continue
		}
		ok, err := Verify(d.path, meta)
		if err != nil || !ok {
			zap.L().Warn("stored document failed digest check",
				zap.String("symbol", string(sym)),
				zap.String("path", d.path),
				zap.Error(err),
			)
			continue
		}
		meta.LocalPath = d.path
		return meta.Result(d.path + MetadataSuffix), nil
	}
	return nil, nil
}

// Verify recomputes the SHA-256 of path and compares it with meta.
func Verify(path string, meta *Metadata) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return false, eris.Wrapf(err, "hash %s", path)
	}
	return n == meta.FileSize && hex.EncodeToString(h.Sum(nil)) == meta.SHA256, nil
}
