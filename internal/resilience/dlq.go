package resilience

import (
	"time"
)

// DLQEntry is a fund whose retrieval failed and may be retried by a later run.
type DLQEntry struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	RunID         string    `json:"run_id,omitempty"`
	Error         string    `json:"error"`
	ErrorType     string    `json:"error_type"` // "transient" or "permanent"
	ErrorCategory string    `json:"error_category"`
	RetryCount    int       `json:"retry_count"`
	MaxRetries    int       `json:"max_retries"`
	NextRetryAt   time.Time `json:"next_retry_at"`
	CreatedAt     time.Time `json:"created_at"`
	LastFailedAt  time.Time `json:"last_failed_at"`
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Due       bool   `json:"due,omitempty"`        // only entries whose NextRetryAt has passed
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ScheduleNext bumps the retry counter and pushes NextRetryAt out
// exponentially from now, starting at base.
func (e *DLQEntry) ScheduleNext(now time.Time, base time.Duration) {
	e.RetryCount++
	e.LastFailedAt = now
	delay := base
	for i := 1; i < e.RetryCount && delay < 24*time.Hour; i++ {
		delay *= 2
	}
	e.NextRetryAt = now.Add(delay)
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
