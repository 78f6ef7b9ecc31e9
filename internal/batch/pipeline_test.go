package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospectus-cli/internal/classify"
	"github.com/sells-group/prospectus-cli/internal/discovery"
	"github.com/sells-group/prospectus-cli/internal/edgar"
	"github.com/sells-group/prospectus-cli/internal/edgar/edgartest"
	"github.com/sells-group/prospectus-cli/internal/fetcher"
	"github.com/sells-group/prospectus-cli/internal/filing"
	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/report"
	"github.com/sells-group/prospectus-cli/internal/resilience"
	"github.com/sells-group/prospectus-cli/internal/storage"
)

const vusxxBody = "<html><body>Vanguard Treasury Money Market Fund summary prospectus</body></html>"

// newPipeline wires the real components against a fake EDGAR host.
func newPipeline(t *testing.T, srv *edgartest.Server) (*Runner, string) {
	t.Helper()
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    "test ops@example.com",
		Retry:        resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		HostLimiters: map[string]*fetcher.AdaptiveLimiter{},
	})
	client := edgar.NewClient(f, edgar.Options{DataURL: srv.URL, WWWURL: srv.URL})
	root := t.TempDir()

	return NewRunner(Deps{
		Resolver:    discovery.NewResolver(discovery.DefaultStrategies(client)...),
		Classifier:  classify.New(nil),
		Selector:    filing.NewSelector(client, 0),
		Persister:   storage.New(root, f, 0),
		DocumentURL: client.DocumentURL,
	}), root
}

func seedVanguard(srv *edgartest.Server) {
	srv.AddMutualFund(862084, "S000002147", "C000005896", "VUSXX")
	srv.AddRegistrant(862084, "VANGUARD ADMIRAL FUNDS",
		edgartest.Filing{
			Form:            "497K",
			Date:            "2024-03-01",
			Accession:       "0000932471-24-000101",
			PrimaryDocument: "vusxx497k.htm",
			Body:            []byte(vusxxBody),
			ContentType:     "text/html",
		},
		edgartest.Filing{
			Form:            "N-1A",
			Date:            "2023-12-20",
			Accession:       "0000932471-23-009876",
			PrimaryDocument: "n1a.htm",
			Body:            []byte("<html>registration</html>"),
			ContentType:     "text/html",
		},
	)
}

func TestPipeline_MutualFundDownloaded(t *testing.T) {
	srv := edgartest.New(t)
	seedVanguard(srv)
	runner, root := newPipeline(t, srv)

	opts := DefaultOptions()
	opts.OutputDir = root
	batch, err := runner.Run(context.Background(), []string{"vusxx"}, opts)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)

	r := batch.Results[0]
	require.True(t, r.Success, r.Message)
	assert.Equal(t, model.FundSymbol("VUSXX"), r.Symbol)
	assert.Equal(t, "0000862084", r.CIK.CIK)
	assert.Equal(t, model.DiscoveryMutualFundJSON, r.CIK.Method)
	assert.Equal(t, model.FundTypeMutualFund, r.Profile.Type)
	assert.Equal(t, "497K", r.Filing.Primary.Form)

	require.NotNil(t, r.Download)
	data, err := os.ReadFile(r.Download.Path)
	require.NoError(t, err)
	assert.Equal(t, vusxxBody, string(data))
	assert.Equal(t, filepath.Join(root, "VUSXX", "VUSXX_497K_20240301_000093247124000101.html"), r.Download.Path)

	assert.FileExists(t, filepath.Join(root, report.DownloadSummaryFile))
	assert.FileExists(t, filepath.Join(root, "custom_batch_results.json"))
	assert.Equal(t, 1, batch.Summary.FormTypes["497K"])
	assert.Equal(t, 1, batch.Summary.DiscoveryMethods[model.DiscoveryMutualFundJSON])
}

func TestPipeline_SecondRunSkipsWithoutNetwork(t *testing.T) {
	srv := edgartest.New(t)
	seedVanguard(srv)
	runner, _ := newPipeline(t, srv)

	_, err := runner.Run(context.Background(), []string{"VUSXX"}, DefaultOptions())
	require.NoError(t, err)
	docHits := srv.Hits(edgartest.DocumentPath(862084, "0000932471-24-000101", "vusxx497k.htm"))
	require.Equal(t, 1, docHits)

	batch, err := runner.Run(context.Background(), []string{"VUSXX"}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, batch.Results[0].Skipped)
	assert.Equal(t, docHits, srv.Hits(edgartest.DocumentPath(862084, "0000932471-24-000101", "vusxx497k.htm")))
}

func TestPipeline_InvescoOverridePrefers497(t *testing.T) {
	srv := edgartest.New(t)
	srv.AddRegistrant(1067839, "INVESCO QQQ TRUST, SERIES 1",
		edgartest.Filing{
			Form:            "497K",
			Date:            "2024-02-01",
			Accession:       "0001067839-24-000010",
			PrimaryDocument: "qqq497k.htm",
			Body:            []byte("<html>summary</html>"),
			ContentType:     "text/html",
		},
		edgartest.Filing{
			Form:            "497",
			Date:            "2024-01-15",
			Accession:       "0001067839-24-000002",
			PrimaryDocument: "qqq497.htm",
			Body:            []byte("<html>statutory</html>"),
			ContentType:     "text/html",
		},
	)
	runner, _ := newPipeline(t, srv)

	opts := DefaultOptions()
	opts.DryRun = true
	batch, err := runner.Run(context.Background(), []string{"QQQ"}, opts)
	require.NoError(t, err)

	r := batch.Results[0]
	require.True(t, r.Success, r.Message)
	assert.Equal(t, model.DiscoveryKnownETF, r.CIK.Method)
	assert.Equal(t, model.FundTypeETF, r.Profile.Type)
	assert.Equal(t, []string{"497", "497K", "N-1A"}, r.Profile.PreferredForms)
	assert.Equal(t, "497", r.Filing.Primary.Form)
	assert.Nil(t, r.Download)
	assert.Zero(t, srv.Hits(edgartest.DocumentPath(1067839, "0001067839-24-000002", "qqq497.htm")))
}

func TestPipeline_DocumentUnavailableIsNetworkFailure(t *testing.T) {
	srv := edgartest.New(t)
	seedVanguard(srv)
	srv.SetStatus(edgartest.DocumentPath(862084, "0000932471-24-000101", "vusxx497k.htm"), 404)
	runner, root := newPipeline(t, srv)

	batch, err := runner.Run(context.Background(), []string{"VUSXX", "AAPL"}, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, model.CategoryNetwork, batch.Results[0].ErrorCategory)
	assert.False(t, batch.Results[1].Success)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		sub, err := os.ReadDir(filepath.Join(root, e.Name()))
		if err == nil {
			assert.Empty(t, sub, "no partial files for %s", e.Name())
		}
	}
}

func TestPipeline_HardcodedFallbackWhenDatasetsUnavailable(t *testing.T) {
	srv := edgartest.New(t)
	seedVanguard(srv)
	srv.SetStatus("/files/company_tickers.json", 404)
	srv.SetStatus("/files/company_tickers_mf.json", 404)
	runner, root := newPipeline(t, srv)

	batch, err := runner.Run(context.Background(), []string{"VUSXX"}, DefaultOptions())
	require.NoError(t, err)

	r := batch.Results[0]
	require.True(t, r.Success, r.Message)
	assert.Equal(t, model.DiscoveryHardcodedFallback, r.CIK.Method)
	assert.Equal(t, "0000862084", r.CIK.CIK)
	assert.Equal(t, "497K", r.Profile.PreferredForms[0])
	assert.Equal(t, "497K", r.Filing.Primary.Form)
	assert.FileExists(t, filepath.Join(root, "VUSXX", "VUSXX_497K_20240301_000093247124000101.html"+storage.MetadataSuffix))
}
