package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/prospectus-cli/internal/model"
	"github.com/sells-group/prospectus-cli/internal/resilience"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Label:     "vanguard",
			Status:    model.RunStatusComplete,
			Summary:   &model.BatchSummary{Total: 12, Succeeded: 10, Failed: 2},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Label:     "custom",
			DryRun:    true,
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "LABEL")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "vanguard")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "custom (dry)")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "2m0s")
}

func TestRunsStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{ID: "1", Status: model.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(10 * time.Second),
			Summary: &model.BatchSummary{Total: 5, Succeeded: 4, Failed: 1}},
		{ID: "2", Status: model.RunStatusComplete, CreatedAt: now, UpdatedAt: now.Add(20 * time.Second),
			Summary: &model.BatchSummary{Total: 3, Succeeded: 3}},
		{ID: "3", Status: model.RunStatusInterrupted, CreatedAt: now, UpdatedAt: now.Add(5 * time.Second),
			Summary: &model.BatchSummary{Total: 2, Succeeded: 1, Failed: 1}},
		{ID: "4", Status: model.RunStatusFailed, CreatedAt: now, UpdatedAt: now},
		{ID: "5", Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Interrupted)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Other)
	assert.Equal(t, 10, s.Funds)
	assert.Equal(t, 8, s.Succeeded)
	assert.Equal(t, 2, s.FundsFailed)
	assert.InDelta(t, 15.0, s.AvgDurSecs, 0.01)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.Contains(t, buf.String(), "Total runs:")
	assert.Contains(t, buf.String(), "Avg duration:")
}

func TestRunsStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AvgDurSecs)

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	assert.NotContains(t, buf.String(), "Avg duration:")
}

func TestFormatQueue(t *testing.T) {
	next := time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	formatQueue(&buf, []resilience.DLQEntry{{
		Symbol:        "VFIAX",
		ErrorCategory: "NETWORK_ERROR",
		ErrorType:     "transient",
		RetryCount:    1,
		MaxRetries:    3,
		NextRetryAt:   next,
		Error:         "GET https://www.sec.gov/Archives/edgar/data/36405/000093247124000200/vfiax.htm: status 503",
	}})

	out := buf.String()
	assert.Contains(t, out, "VFIAX")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "2025-06-15 11:00")
	assert.Contains(t, out, "...")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
