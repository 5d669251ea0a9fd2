package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/csk-sniffer/imagefetch/internal/metrics"
)

// fetchOne runs the full worker pipeline for one candidate URL and returns a
// structured Outcome. Failures never propagate as errors: a single
// unreachable or malformed URL is never fatal to the run.
func (s *Session) fetchOne(ctx context.Context, url string) Outcome {
	if s.ledger.Tried(url) {
		return Outcome{URL: url, Reason: ReasonDuplicateURL}
	}

	if err := s.gov.AcquireFetch(ctx); err != nil {
		return Outcome{URL: url, Reason: ReasonNetworkFailure, Err: err}
	}
	defer s.gov.ReleaseFetch()
	metrics.SetInFlight(s.gov.InFlight())

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return Outcome{URL: url, Reason: ReasonNetworkFailure, Err: err}
	}

	mediaType, ext, ok := DetectMedia(data)
	if !ok {
		return Outcome{URL: url, Reason: ReasonInvalidContent}
	}

	fingerprint, err := s.hasher.Hash(data)
	if err != nil {
		return Outcome{URL: url, Reason: ReasonInvalidContent, Err: err}
	}
	if existing, dup := s.ledger.Filename(fingerprint); dup {
		return Outcome{URL: url, Reason: ReasonDuplicateContent, DuplicateOf: existing}
	}

	return s.commit(ctx, url, data, fingerprint, mediaType, ext)
}

// commit assigns the next sequential name and writes the file. The whole
// commit runs as one critical section so sequential names stay unique and
// contiguous for any write-pool size; counters and ledger entries advance
// only after a fully successful write.
func (s *Session) commit(ctx context.Context, url string, data []byte, fingerprint, mediaType, ext string) Outcome {
	if err := s.gov.AcquireWrite(ctx); err != nil {
		return Outcome{URL: url, Reason: ReasonWriteFailure, Err: err}
	}
	defer s.gov.ReleaseWrite()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Limit > 0 && s.succeeded >= s.cfg.Limit {
		return Outcome{URL: url, Reason: ReasonLimitReached}
	}
	// Re-check under the lock: a racing worker may have committed identical
	// bytes between the early check and now.
	if existing, dup := s.ledger.Filename(fingerprint); dup {
		return Outcome{URL: url, Reason: ReasonDuplicateContent, DuplicateOf: existing}
	}

	filename := fmt.Sprintf("Image%d%s", s.nextIndex+1, ext)
	path := filepath.Join(s.cfg.OutputDir, filename)
	if existing, readErr := os.ReadFile(path); readErr == nil {
		existingFP, hashErr := s.hasher.Hash(existing)
		if hashErr == nil && existingFP == fingerprint {
			return Outcome{URL: url, Reason: ReasonDuplicateContent, DuplicateOf: filename}
		}
		// Different content already owns the name. Never overwrite.
		return Outcome{URL: url, Reason: ReasonNameConflict, DuplicateOf: filename}
	} else if !os.IsNotExist(readErr) {
		return Outcome{URL: url, Reason: ReasonNameConflict, DuplicateOf: filename, Err: readErr}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Outcome{URL: url, Reason: ReasonWriteFailure, Err: fmt.Errorf("write %s: %w", path, err)}
	}

	s.nextIndex++
	s.succeeded++
	s.ledger.MarkTried(url)
	s.ledger.Register(fingerprint, filename)

	record := &AssetRecord{
		Index:       s.nextIndex,
		Filename:    filename,
		Fingerprint: fingerprint,
		MediaType:   mediaType,
		SourceURL:   url,
		Bytes:       int64(len(data)),
	}
	return Outcome{URL: url, Reason: ReasonOK, Record: record}
}
