package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospectus-cli/internal/config"
	"github.com/sells-group/prospectus-cli/internal/model"
)

func TestBatchInputs_MergesArgsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds.txt")
	require.NoError(t, os.WriteFile(path, []byte("VFIAX\nVUSXX\nQQQ\n"), 0o644))

	got, err := batchInputs([]string{"VUSXX", "VTSAX"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"VUSXX", "VTSAX", "VFIAX", "QQQ"}, got)
}

func TestBatchInputs_ArgsOnly(t *testing.T) {
	got, err := batchInputs([]string{"VUSXX", "VUSXX"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"VUSXX"}, got)
}

func TestBatchInputs_MissingFile(t *testing.T) {
	_, err := batchInputs(nil, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func newFlagCmd() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	addRunFlags(c)
	return c
}

func testConfig() *config.Config {
	return &config.Config{
		Edgar:   config.EdgarConfig{UserAgent: "ops ops@example.com", RequestDelay: 100 * time.Millisecond},
		Storage: config.StorageConfig{Root: "data/prospectuses"},
		Batch:   config.BatchConfig{Concurrency: 1, SkipExisting: true, Label: "custom"},
		DLQ:     config.DLQConfig{MaxRetries: 3},
	}
}

func TestApplyRunFlags_Defaults(t *testing.T) {
	c := testConfig()
	opts := applyRunFlags(newFlagCmd(), c)

	assert.False(t, opts.DryRun)
	assert.True(t, opts.SkipExisting)
	assert.Equal(t, 1, opts.Concurrency)
	assert.Equal(t, "custom", opts.Label)
	assert.Equal(t, "data/prospectuses", opts.OutputDir)
	assert.Equal(t, 3, opts.DLQMaxRetries)
	assert.Equal(t, 100*time.Millisecond, c.Edgar.RequestDelay)
}

func TestApplyRunFlags_Overrides(t *testing.T) {
	cmd := newFlagCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--dry-run", "--skip-existing=false", "--max-funds", "5", "--concurrency", "4",
		"--label", "vanguard", "--request-delay", "250ms", "--user-agent", "me me@example.org",
	}))

	c := testConfig()
	opts := applyRunFlags(cmd, c)

	assert.True(t, opts.DryRun)
	assert.False(t, opts.SkipExisting)
	assert.Equal(t, 5, opts.MaxFunds)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, "vanguard", opts.Label)
	assert.Equal(t, 250*time.Millisecond, c.Edgar.RequestDelay)
	assert.Equal(t, "me me@example.org", c.Edgar.UserAgent)
}

func TestApplyRunFlags_InvalidUserAgentFailsValidation(t *testing.T) {
	cmd := newFlagCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--user-agent", "no-contact"}))

	c := testConfig()
	c.Edgar.DataURL = "https://data.sec.gov"
	c.Edgar.WWWURL = "https://www.sec.gov"
	applyRunFlags(cmd, c)

	err := c.Validate(config.ModeFetch)
	require.Error(t, err)
	var fatal *model.FatalConfigurationError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "edgar.user_agent", fatal.Field)
}

func TestRunReport_RecomputesMissingSummary(t *testing.T) {
	start := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	run := &model.Run{ID: "r1", Label: "custom", Status: model.RunStatusInterrupted, CreatedAt: start, UpdatedAt: start.Add(time.Minute)}
	results := []model.FundResult{
		{Input: "VUSXX", Symbol: "VUSXX", Success: true},
		{Input: "AAPL", Symbol: "AAPL", ErrorCategory: model.CategoryDiscoveryFailed},
	}

	res := runReport(run, results)
	assert.Equal(t, "r1", res.RunID)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.Succeeded)
	assert.Equal(t, 1, res.Summary.Failed)

	stored := &model.BatchSummary{Total: 7}
	run.Summary = stored
	assert.Equal(t, 7, runReport(run, results).Summary.Total)
}
