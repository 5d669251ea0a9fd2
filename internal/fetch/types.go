// Package fetch implements the bulk media fetcher: pagination against the
// search backend, bounded concurrent downloads, content dedup, sequential
// naming, and the per-keyword session state machine.
package fetch

import (
	"context"
	"time"
)

// Candidate is an unvalidated asset locator discovered from a search page.
type Candidate string

// AssetRecord is the durable record of one successfully fetched, named, and
// stored item. It is immutable once created.
type AssetRecord struct {
	Index       int    `json:"index"`
	Filename    string `json:"filename"`
	Fingerprint string `json:"fingerprint"`
	MediaType   string `json:"media_type"`
	SourceURL   string `json:"source_url"`
	Bytes       int64  `json:"bytes"`
}

// Reason tags the outcome of one candidate attempt.
type Reason string

// Per-item outcome reason codes.
const (
	ReasonOK               Reason = "ok"
	ReasonDuplicateURL     Reason = "skip-duplicate-url"
	ReasonInvalidContent   Reason = "skip-invalid-content"
	ReasonDuplicateContent Reason = "skip-duplicate-content"
	ReasonLimitReached     Reason = "skip-limit-reached"
	ReasonNameConflict     Reason = "skip-name-conflict"
	ReasonNetworkFailure   Reason = "fail-network"
	ReasonWriteFailure     Reason = "fail-write"
)

// Outcome is the structured result of one Fetch Worker run. Failures never
// escape the worker as errors; they are folded into the reason code so the
// session can aggregate them.
type Outcome struct {
	URL         string
	Reason      Reason
	Record      *AssetRecord
	DuplicateOf string
	Err         error
}

// Summary aggregates the outcomes of one keyword run.
type Summary struct {
	Keyword   string
	Requested int
	Succeeded int
	Attempted int
	Reasons   map[Reason]int
	Elapsed   time.Duration
}

// SearchClient issues one page request against the search backend and returns
// the candidate URLs extracted from the response.
type SearchClient interface {
	Search(ctx context.Context, query string, offset int) ([]Candidate, error)
}

// ByteFetcher retrieves the raw bytes of a single candidate URL.
type ByteFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Hasher computes content fingerprints for deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
