package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bkonkle/fleetdash/internal/metrics"
	"github.com/bkonkle/fleetdash/internal/schedule"
)

// Kind names a drill-down modal.
type Kind string

const (
	// KindLogs is the live log tail modal.
	KindLogs Kind = "logs"
	// KindStats is the detailed statistics modal.
	KindStats Kind = "stats"
)

// State is the lifecycle state of a modal session.
type State int

const (
	// StateClosed means no device is focused and no timer is live.
	StateClosed State = iota
	// StateOpening is held while the first fetch and the timer are being set up.
	StateOpening
	// StateOpen means a device is focused and its timer is live.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// FetchFunc loads the snapshot a session displays.
type FetchFunc[T any] func(ctx context.Context, index int) (T, error)

// RenderFunc applies a current snapshot. It is called with the session lock
// held and must not block.
type RenderFunc[T any] func(index int, epoch uint64, v T)

// Session owns the focused device and the repeating timer of one modal kind.
// At most one timer is live per session, and only responses for the current
// focus are rendered.
type Session[T any] struct {
	kind     Kind
	interval time.Duration
	sched    schedule.Scheduler
	fetch    FetchFunc[T]
	render   RenderFunc[T]
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	parent   context.Context

	mu      sync.Mutex
	state   State
	focused int
	epoch   uint64
	token   schedule.Token
	cancel  context.CancelFunc

	inflight sync.WaitGroup
}

// NewSession creates a closed session. Fetches run under contexts derived
// from parent.
func NewSession[T any](parent context.Context, kind Kind, interval time.Duration, sched schedule.Scheduler, fetch FetchFunc[T], render RenderFunc[T], logger zerolog.Logger, m *metrics.Metrics) *Session[T] {
	return &Session[T]{
		kind:     kind,
		interval: interval,
		sched:    sched,
		fetch:    fetch,
		render:   render,
		logger:   logger.With().Str("modal", string(kind)).Logger(),
		metrics:  m,
		parent:   parent,
	}
}

// Kind returns the modal kind.
func (s *Session[T]) Kind() Kind {
	return s.kind
}

// Open focuses the session on index. Any previous focus is closed first, so
// its timer is cancelled before the new one exists. One fetch runs
// immediately; the timer repeats it every interval.
func (s *Session[T]) Open(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		s.closeLocked()
	}

	s.state = StateOpening
	s.focused = index
	s.epoch++
	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	epoch := s.epoch

	s.fetchAndRender(ctx, index, epoch)
	s.token = s.sched.Schedule(s.interval, func() {
		s.fetchAndRender(ctx, index, epoch)
	})
	s.state = StateOpen

	s.logger.Debug().Int("index", index).Uint64("epoch", epoch).Msg("modal opened")
}

// Close cancels the timer and clears the focus. Closing a closed session is
// a no-op.
func (s *Session[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// CloseIf closes the session only if it is focused on index.
func (s *Session[T]) CloseIf(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed && s.focused == index {
		s.closeLocked()
	}
}

func (s *Session[T]) closeLocked() {
	if s.state == StateClosed {
		return
	}
	s.sched.Cancel(s.token)
	s.token = 0
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.logger.Debug().Int("index", s.focused).Msg("modal closed")
	s.state = StateClosed
	s.focused = 0
}

// State returns the lifecycle state.
func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Focused returns the focused index and whether the session is open.
func (s *Session[T]) Focused() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused, s.state == StateOpen
}

// IsCurrent reports whether a frame stamped with epoch still belongs to the
// open session. Surfaces that apply frames asynchronously check this at
// apply time.
func (s *Session[T]) IsCurrent(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateOpen && s.epoch == epoch
}

// Wait blocks until every fetch started so far has been rendered or dropped.
func (s *Session[T]) Wait() {
	s.inflight.Wait()
}

// fetchAndRender starts one fetch. The result is rendered only if the
// session is still open on the same focus when the response arrives.
func (s *Session[T]) fetchAndRender(ctx context.Context, index int, epoch uint64) {
	s.metrics.FetchStarted(string(s.kind))
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		v, err := s.fetch(ctx, index)

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state != StateOpen || s.focused != index || s.epoch != epoch {
			s.metrics.RenderDiscarded(string(s.kind))
			s.logger.Debug().Int("index", index).Uint64("epoch", epoch).Msg("dropped stale response")
			return
		}
		if err != nil {
			s.metrics.FetchFailed(string(s.kind))
			s.logger.Warn().Err(err).Int("index", index).Msg("refresh failed")
			return
		}
		s.render(index, epoch, v)
	}()
}
