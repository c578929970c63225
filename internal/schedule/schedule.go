// Package schedule provides the repeating-timer port used by the pollers.
//
// The engine only depends on the Scheduler interface: Schedule a task at an
// interval and Cancel it by token. TickerScheduler backs it with time.Ticker;
// Manual lets tests fire ticks by hand.
package schedule

import (
	"sync"
	"time"
)

// Token identifies one scheduled task. The zero Token is never issued.
type Token uint64

// Scheduler runs tasks repeatedly until cancelled.
type Scheduler interface {
	// Schedule runs task every interval until the returned token is cancelled.
	// The first run happens one interval from now.
	Schedule(interval time.Duration, task func()) Token

	// Cancel stops the task. Cancelling an unknown or already cancelled
	// token is a no-op.
	Cancel(token Token)
}

// TickerScheduler runs each scheduled task on its own goroutine driven by a
// time.Ticker.
type TickerScheduler struct {
	mu      sync.Mutex
	next    Token
	stops   map[Token]chan struct{}
	wg      sync.WaitGroup
	onCount func(active int)
}

// NewTickerScheduler creates an empty scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{
		stops: make(map[Token]chan struct{}),
	}
}

// OnActiveChange registers a callback invoked with the number of live
// schedules whenever it changes. Used to feed the active timers gauge.
func (s *TickerScheduler) OnActiveChange(fn func(active int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCount = fn
}

// Schedule implements Scheduler.
func (s *TickerScheduler) Schedule(interval time.Duration, task func()) Token {
	s.mu.Lock()
	s.next++
	token := s.next
	stop := make(chan struct{})
	s.stops[token] = stop
	s.notifyLocked()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// A cancel may race with a tick that was already delivered.
				select {
				case <-stop:
					return
				default:
				}
				task()
			}
		}
	}()

	return token
}

// Cancel implements Scheduler.
func (s *TickerScheduler) Cancel(token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop, ok := s.stops[token]
	if !ok {
		return
	}
	close(stop)
	delete(s.stops, token)
	s.notifyLocked()
}

// Active returns the number of live schedules.
func (s *TickerScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stops)
}

// Stop cancels every schedule and waits for their goroutines to exit.
// Tasks already running are allowed to finish.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	for token, stop := range s.stops {
		close(stop)
		delete(s.stops, token)
	}
	s.notifyLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *TickerScheduler) notifyLocked() {
	if s.onCount != nil {
		s.onCount(len(s.stops))
	}
}
