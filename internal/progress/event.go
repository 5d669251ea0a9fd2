// Package progress defines the per-item events emitted by fetch sessions and
// the recorders that consume them.
package progress

import (
	"time"

	"github.com/google/uuid"
)

// Event captures the outcome of one candidate attempt or keyword milestone.
type Event struct {
	// RunID identifies the keyword session that emitted the event.
	RunID uuid.UUID `json:"run_id"`
	// Keyword is the search term being processed.
	Keyword string `json:"keyword"`
	// URL is the candidate source URL, when the event concerns one item.
	URL string `json:"url,omitempty"`
	// Reason is the outcome reason code ("ok", "skip-duplicate-url", ...).
	Reason string `json:"reason"`
	// Filename is set for successful saves.
	Filename string `json:"filename,omitempty"`
	// DuplicateOf names the file a duplicate collided with.
	DuplicateOf string `json:"duplicate_of,omitempty"`
	// Bytes is the written size for successful saves.
	Bytes int64 `json:"bytes,omitempty"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
}

// Recorder consumes events. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(evt Event)
}

// Multi fans one event out to several recorders.
type Multi []Recorder

// Record forwards the event to every recorder.
func (m Multi) Record(evt Event) {
	for _, r := range m {
		if r != nil {
			r.Record(evt)
		}
	}
}
