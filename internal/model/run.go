package model

import "time"

// RunStatus represents the state of a batch run in the ledger.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// Run is one batch invocation recorded in the ledger.
type Run struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	Status    RunStatus     `json:"status"`
	DryRun    bool          `json:"dry_run"`
	Summary   *BatchSummary `json:"summary,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
