package models

import (
	"time"
)

// Listing is the normalized record extracted from one product page.
// It is constructed once per extraction call and not mutated afterwards.
type Listing struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Price       string            `json:"price,omitempty"`
	Images      []string          `json:"images"`
	Description string            `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at,omitempty"`
}

// FailureKind classifies why an extraction call failed as a whole.
// Field-level misses (price, images, attributes) are not failures.
type FailureKind string

const (
	FailureNotSupportedMarketplace FailureKind = "not_supported_marketplace"
	FailureAllRelaysExhausted      FailureKind = "all_relays_exhausted"
	FailureBlocked                 FailureKind = "blocked"
	FailureNoTitleFound            FailureKind = "no_title_found"
)

// ExtractionError carries the failure kind for callers that log or branch
// on it, plus the last underlying error for diagnostics.
type ExtractionError struct {
	Kind FailureKind
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError wraps err with a failure kind.
func NewExtractionError(kind FailureKind, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err}
}
