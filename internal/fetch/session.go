package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/csk-sniffer/imagefetch/internal/ledger"
	"github.com/csk-sniffer/imagefetch/internal/metrics"
	"github.com/csk-sniffer/imagefetch/internal/progress"
)

// SessionState is the lifecycle state of a keyword run.
type SessionState string

// Session lifecycle states.
const (
	StateIdle          SessionState = "idle"
	StatePaginating    SessionState = "paginating"
	StateDraining      SessionState = "draining"
	StateCheckpointing SessionState = "checkpointing"
	StateTerminated    SessionState = "terminated"
)

// highWaterPoll is how often the pagination loop re-checks the in-flight
// count while above the high-water mark.
const highWaterPoll = 10 * time.Millisecond

// SessionConfig holds the per-keyword settings of a fetch session.
type SessionConfig struct {
	Keyword      string
	OutputDir    string
	Limit        int
	PageSize     int
	HighWater    int
	PageInterval time.Duration
	DrainTimeout time.Duration
}

// Session drives one keyword run: it pulls candidates from the Pagination
// Driver, fans out Fetch Workers under the Governor, enforces the item limit,
// and checkpoints the ledger on completion or interruption. All shared
// counters are owned by the session and mutated only under its mutex.
type Session struct {
	cfg     SessionConfig
	runID   uuid.UUID
	search  SearchClient
	fetcher ByteFetcher
	hasher  Hasher
	clock   Clock
	ledger  *ledger.Ledger
	gov     *Governor
	rec     progress.Recorder
	logger  *zap.Logger

	mu        sync.Mutex
	state     SessionState
	nextIndex int
	succeeded int
	attempted int
	reasons   map[Reason]int
}

// NewSession constructs a Session. rec and logger may be nil.
func NewSession(
	cfg SessionConfig,
	search SearchClient,
	fetcher ByteFetcher,
	hasher Hasher,
	clock Clock,
	led *ledger.Ledger,
	gov *Governor,
	rec progress.Recorder,
	logger *zap.Logger,
) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 35
	}
	if cfg.HighWater <= 0 {
		cfg.HighWater = 10
	}
	if cfg.PageInterval <= 0 {
		cfg.PageInterval = 100 * time.Millisecond
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if rec == nil {
		rec = progress.Multi{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:     cfg,
		runID:   uuid.New(),
		search:  search,
		fetcher: fetcher,
		hasher:  hasher,
		clock:   clock,
		ledger:  led,
		gov:     gov,
		rec:     rec,
		logger:  logger.With(zap.String("keyword", cfg.Keyword)),
		state:   StateIdle,
		reasons: make(map[Reason]int),
	}
}

// RunID returns the unique identifier of this keyword run.
func (s *Session) RunID() uuid.UUID {
	return s.runID
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run executes the session to completion: pagination, drain, checkpoint. An
// interrupt via ctx forces a bounded drain followed by a checkpoint so no
// partial state is lost silently.
func (s *Session) Run(ctx context.Context) Summary {
	start := s.clock.Now()
	s.setState(StateIdle)
	s.resetCounters()

	var wg sync.WaitGroup
	s.setState(StatePaginating)
	s.paginate(ctx, &wg)

	s.setState(StateDraining)
	s.drain(ctx, &wg)

	s.setState(StateCheckpointing)
	// The checkpoint must happen even when ctx is already canceled.
	if err := s.ledger.Checkpoint(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("history checkpoint failed", zap.Error(err))
	}

	s.setState(StateTerminated)
	metrics.KeywordDone()

	summary := s.summary(start)
	s.logger.Info("keyword finished",
		zap.String("run_id", s.runID.String()),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("requested", summary.Requested),
		zap.Int("attempted", summary.Attempted),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary
}

func (s *Session) paginate(ctx context.Context, wg *sync.WaitGroup) {
	pager := NewPager(s.search, s.cfg.Keyword, s.cfg.PageSize)
	limiter := rate.NewLimiter(rate.Every(s.cfg.PageInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := s.waitBelowHighWater(ctx); err != nil {
			return
		}
		if s.limitReached() {
			return
		}

		candidates, err := pager.Next(ctx)
		if err != nil {
			metrics.PageRequest("error")
			s.logger.Warn("search backend unavailable, stopping pagination", zap.Error(err))
			return
		}
		if candidates == nil {
			metrics.PageRequest("end")
			s.logger.Info("pagination ended", zap.String("cause", "no new results"))
			return
		}
		metrics.PageRequest("ok")

		for _, c := range candidates {
			if s.limitReached() || ctx.Err() != nil {
				return
			}
			wg.Add(1)
			go func(url string) {
				defer wg.Done()
				s.process(ctx, url)
			}(string(c))
		}
	}
}

// process runs one worker and folds its outcome into the session counters.
func (s *Session) process(ctx context.Context, url string) {
	out := s.fetchOne(ctx, url)

	s.mu.Lock()
	s.attempted++
	s.reasons[out.Reason]++
	s.mu.Unlock()

	evt := progress.Event{
		RunID:   s.runID,
		Keyword: s.cfg.Keyword,
		URL:     url,
		Reason:  string(out.Reason),
		TS:      s.clock.Now(),
	}
	if out.Record != nil {
		evt.Filename = out.Record.Filename
		evt.Bytes = out.Record.Bytes
	}
	evt.DuplicateOf = out.DuplicateOf
	s.rec.Record(evt)

	if out.Err != nil {
		s.logger.Debug("worker discard",
			zap.String("url", url),
			zap.String("reason", string(out.Reason)),
			zap.Error(out.Err),
		)
	}
	metrics.SetInFlight(s.gov.InFlight())
}

// waitBelowHighWater pauses pagination while too many fetches are in flight.
func (s *Session) waitBelowHighWater(ctx context.Context) error {
	for s.gov.InFlight() > s.cfg.HighWater {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(highWaterPoll):
		}
	}
	return nil
}

// drain waits for outstanding workers. On interrupt the wait is bounded so
// in-flight writes can finish before the checkpoint.
func (s *Session) drain(ctx context.Context, wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	select {
	case <-done:
	case <-time.After(s.cfg.DrainTimeout):
		s.logger.Warn("drain timed out, checkpointing with workers outstanding")
	}
}

func (s *Session) limitReached() bool {
	if s.cfg.Limit <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded >= s.cfg.Limit
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Debug("session state", zap.String("state", string(state)))
}

func (s *Session) resetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIndex = 0
	s.succeeded = 0
	s.attempted = 0
	s.reasons = make(map[Reason]int)
}

func (s *Session) summary(start time.Time) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	reasons := make(map[Reason]int, len(s.reasons))
	for k, v := range s.reasons {
		reasons[k] = v
	}
	return Summary{
		Keyword:   s.cfg.Keyword,
		Requested: s.cfg.Limit,
		Succeeded: s.succeeded,
		Attempted: s.attempted,
		Reasons:   reasons,
		Elapsed:   s.clock.Now().Sub(start),
	}
}
