// Package ledger implements the durable download history: the set of
// attempted source URLs and the fingerprint-to-filename map that make runs
// resumable and content-deduplicated.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned by a Store when no prior history exists.
var ErrNotFound = errors.New("no download history found")

// State is the serializable form of the ledger.
type State struct {
	TriedURLs []string          `json:"tried_urls"`
	Assets    map[string]string `json:"assets"`
}

// Store persists ledger state to stable storage.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Ledger is the in-memory download history. Mutations between checkpoints are
// not durable; Checkpoint flushes the full state through the Store.
type Ledger struct {
	mu     sync.RWMutex
	tried  map[string]struct{}
	assets map[string]string
	store  Store
	logger *zap.Logger
}

// New returns an empty Ledger backed by store.
func New(store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		tried:  make(map[string]struct{}),
		assets: make(map[string]string),
		store:  store,
		logger: logger,
	}
}

// Load replaces the in-memory state with the stored history. A missing
// history is not an error: the run starts fresh.
func (l *Ledger) Load(ctx context.Context) error {
	state, err := l.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.logger.Info("no previous download history found, starting fresh")
			return nil
		}
		return fmt.Errorf("load history: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tried = make(map[string]struct{}, len(state.TriedURLs))
	for _, u := range state.TriedURLs {
		l.tried[u] = struct{}{}
	}
	l.assets = make(map[string]string, len(state.Assets))
	for fp, name := range state.Assets {
		l.assets[fp] = name
	}
	l.logger.Info("loaded previous download history",
		zap.Int("tried_urls", len(l.tried)),
		zap.Int("assets", len(l.assets)),
	)
	return nil
}

// Tried reports whether the URL has already been attempted.
func (l *Ledger) Tried(url string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tried[url]
	return ok
}

// MarkTried adds the URL to the attempted set.
func (l *Ledger) MarkTried(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tried[url] = struct{}{}
}

// Filename returns the filename already stored for a fingerprint, if any.
func (l *Ledger) Filename(fingerprint string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	name, ok := l.assets[fingerprint]
	return name, ok
}

// Register records a fingerprint-to-filename mapping.
func (l *Ledger) Register(fingerprint, filename string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[fingerprint] = filename
}

// Snapshot copies the current state for persistence.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	state := State{
		TriedURLs: make([]string, 0, len(l.tried)),
		Assets:    make(map[string]string, len(l.assets)),
	}
	for u := range l.tried {
		state.TriedURLs = append(state.TriedURLs, u)
	}
	sort.Strings(state.TriedURLs)
	for fp, name := range l.assets {
		state.Assets[fp] = name
	}
	return state
}

// Checkpoint flushes the ledger to stable storage. Failure is reported but is
// expected to be treated as non-fatal by the caller.
func (l *Ledger) Checkpoint(ctx context.Context) error {
	if err := l.store.Save(ctx, l.Snapshot()); err != nil {
		return fmt.Errorf("checkpoint history: %w", err)
	}
	return nil
}

// Counts reports the attempted-URL and asset counts.
func (l *Ledger) Counts() (tried int, assets int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tried), len(l.assets)
}
