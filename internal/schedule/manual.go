package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler whose ticks are fired explicitly. It is meant for
// tests that need deterministic control over poller timing.
type Manual struct {
	mu    sync.Mutex
	next  Token
	tasks map[Token]manualTask
}

type manualTask struct {
	interval time.Duration
	task     func()
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{tasks: make(map[Token]manualTask)}
}

// Schedule implements Scheduler. Nothing runs until Fire or FireAll.
func (m *Manual) Schedule(interval time.Duration, task func()) Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.tasks[m.next] = manualTask{interval: interval, task: task}
	return m.next
}

// Cancel implements Scheduler.
func (m *Manual) Cancel(token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, token)
}

// Fire runs one tick of the task behind token and reports whether it was live.
func (m *Manual) Fire(token Token) bool {
	m.mu.Lock()
	t, ok := m.tasks[token]
	m.mu.Unlock()
	if !ok {
		return false
	}
	t.task()
	return true
}

// FireAll runs one tick of every live task in scheduling order.
func (m *Manual) FireAll() {
	for _, token := range m.Tokens() {
		m.Fire(token)
	}
}

// Tokens returns the live tokens in scheduling order.
func (m *Manual) Tokens() []Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := make([]Token, 0, len(m.tasks))
	for token := range m.tasks {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	return tokens
}

// Active returns the number of live tasks.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Interval returns the interval token was scheduled with, or 0 if it is not live.
func (m *Manual) Interval(token Token) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[token].interval
}
