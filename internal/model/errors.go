package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/prospectus-cli/internal/resilience"
)

// Categorized is implemented by errors that map to an ErrorCategory.
type Categorized interface {
	Category() ErrorCategory
}

// InvalidSymbolError is returned when input cannot be normalized.
type InvalidSymbolError struct {
	Raw    string
	Reason string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("invalid fund symbol %q: %s", e.Raw, e.Reason)
}

func (e *InvalidSymbolError) Category() ErrorCategory { return CategoryInvalidSymbol }

// DiscoveryFailedError is returned when every resolver strategy missed.
type DiscoveryFailedError struct {
	Symbol   FundSymbol
	Reason   string
	Attempts []StrategyAttempt
}

func (e *DiscoveryFailedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("could not resolve CIK for %s: %s", e.Symbol, e.Reason)
	}
	tried := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		tried = append(tried, string(a.Method))
	}
	return fmt.Sprintf("could not resolve CIK for %s (tried %s)", e.Symbol, strings.Join(tried, ", "))
}

func (e *DiscoveryFailedError) Category() ErrorCategory { return CategoryDiscoveryFailed }

// NoProspectusError is returned when a registrant has no filing of a preferred form.
type NoProspectusError struct {
	Symbol     FundSymbol
	CIK        string
	Forms      []string
	Considered int
}

func (e *NoProspectusError) Error() string {
	return fmt.Sprintf("no prospectus for %s (CIK %s) among %d filings; wanted %s",
		e.Symbol, e.CIK, e.Considered, strings.Join(e.Forms, ", "))
}

func (e *NoProspectusError) Category() ErrorCategory { return CategoryNoProspectus }

// NetworkError is an upstream failure after retries were exhausted, or a
// non-retryable HTTP status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("GET %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Category() ErrorCategory { return CategoryNetwork }

// NotFound reports whether the upstream answered 404.
func (e *NetworkError) NotFound() bool { return e.StatusCode == 404 }

// IntegrityError is returned when a downloaded body fails validation or
// cannot be persisted safely. It is never retried.
type IntegrityError struct {
	URL      string
	Reason   string
	Expected int64
	Actual   int64
	Err      error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity check failed for %s: %s", e.URL, e.Reason)
	if e.Expected != 0 || e.Actual != 0 {
		msg += fmt.Sprintf(" (expected %d bytes, got %d)", e.Expected, e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func (e *IntegrityError) Category() ErrorCategory { return CategoryIntegrity }

// FatalConfigurationError aborts a run before any fund is processed.
type FatalConfigurationError struct {
	Field  string
	Reason string
}

func (e *FatalConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// CategorizeError maps an error chain to the category reported for a fund.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	if resilience.IsTransient(err) {
		return CategoryNetwork
	}
	return CategoryProcessing
}

// IsNotFound reports whether err carries an upstream 404.
func IsNotFound(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.NotFound()
}
