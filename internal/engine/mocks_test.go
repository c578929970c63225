package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/journal"
	"github.com/bkonkle/fleetdash/internal/view"
)

var errBoom = errors.New("boom")

// recordingRenderer captures every frame it is handed.
type recordingRenderer struct {
	mu      sync.Mutex
	devices []view.DeviceList
	logs    []LogFrame
	stats   []StatsFrame
}

func (r *recordingRenderer) RenderDevices(l view.DeviceList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, l)
}

func (r *recordingRenderer) RenderLogs(f LogFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, f)
}

func (r *recordingRenderer) RenderStats(f StatsFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, f)
}

func (r *recordingRenderer) deviceFrames() []view.DeviceList {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]view.DeviceList(nil), r.devices...)
}

func (r *recordingRenderer) logFrames() []LogFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogFrame(nil), r.logs...)
}

func (r *recordingRenderer) statsFrames() []StatsFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StatsFrame(nil), r.stats...)
}

// gate is one blocked call waiting for a result.
type gate[T any] struct {
	index int
	reply chan gateResult[T]
}

type gateResult[T any] struct {
	v   T
	err error
}

// gated blocks every call until the test releases it.
type gated[T any] struct {
	mu      sync.Mutex
	pending []*gate[T]
	started chan *gate[T]
}

func newGated[T any]() *gated[T] {
	return &gated[T]{started: make(chan *gate[T], 64)}
}

func (g *gated[T]) call(ctx context.Context, index int) (T, error) {
	gt := &gate[T]{index: index, reply: make(chan gateResult[T], 1)}
	g.mu.Lock()
	g.pending = append(g.pending, gt)
	g.mu.Unlock()
	g.started <- gt

	select {
	case r := <-gt.reply:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// next waits for the next call to start.
func (g *gated[T]) next(t *testing.T) *gate[T] {
	t.Helper()
	select {
	case gt := <-g.started:
		return gt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a call")
		return nil
	}
}

func (g *gate[T]) release(v T, err error) {
	g.reply <- gateResult[T]{v: v, err: err}
}

// gatedLister adapts gated to DeviceLister.
type gatedLister struct {
	*gated[[]fleet.Device]
}

func (l gatedLister) ListDevices(ctx context.Context) ([]fleet.Device, error) {
	return l.call(ctx, 0)
}

// gatedModalAPI adapts gated to ModalAPI.
type gatedModalAPI struct {
	logs  *gated[*fleet.LogSnapshot]
	stats *gated[*fleet.DetailedStats]
}

func (a gatedModalAPI) FetchLogs(ctx context.Context, index int) (*fleet.LogSnapshot, error) {
	return a.logs.call(ctx, index)
}

func (a gatedModalAPI) FetchDetailedStats(ctx context.Context, index int) (*fleet.DetailedStats, error) {
	return a.stats.call(ctx, index)
}

// mockActions is a hand-written ActionAPI.
type mockActions struct {
	mu     sync.Mutex
	calls  []string
	result *fleet.ActionResult
	err    error
	added  []fleet.AddRequest
}

func (m *mockActions) record(call string) (*fleet.ActionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &fleet.ActionResult{Success: true}, nil
}

func (m *mockActions) StartDevice(ctx context.Context, index int) (*fleet.ActionResult, error) {
	return m.record("start")
}

func (m *mockActions) StopDevice(ctx context.Context, index int) (*fleet.ActionResult, error) {
	return m.record("stop")
}

func (m *mockActions) DeleteDevice(ctx context.Context, index int) (*fleet.ActionResult, error) {
	return m.record("delete")
}

func (m *mockActions) AddDevice(ctx context.Context, name, udid string) (*fleet.ActionResult, error) {
	m.mu.Lock()
	m.added = append(m.added, fleet.AddRequest{Name: name, UDID: udid})
	m.mu.Unlock()
	return m.record("add")
}

func (m *mockActions) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type staticConfirmer struct {
	answer   bool
	messages []string
}

func (c *staticConfirmer) Confirm(ctx context.Context, message string) bool {
	c.messages = append(c.messages, message)
	return c.answer
}

type countingRefresher struct {
	count int
}

func (r *countingRefresher) ForceRefresh() {
	r.count++
}

type recordingModals struct {
	closed []int
}

func (m *recordingModals) CloseIf(index int) {
	m.closed = append(m.closed, index)
}

type recordingNotifier struct {
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) {
	n.notices = append(n.notices, notice)
}

type memoryRecorder struct {
	entries []journal.Entry
	err     error
}

func (r *memoryRecorder) Record(ctx context.Context, e journal.Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}
