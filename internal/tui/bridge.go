package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bkonkle/fleetdash/internal/engine"
	"github.com/bkonkle/fleetdash/internal/view"
)

// devicesMsg carries a reconciled device list.
type devicesMsg struct {
	list view.DeviceList
}

// logFrameMsg carries a logs snapshot for the log modal.
type logFrameMsg struct {
	frame engine.LogFrame
}

// statsFrameMsg carries a reconciled stats snapshot for the stats modal.
type statsFrameMsg struct {
	frame engine.StatsFrame
}

// noticeMsg carries the outcome of an operator action.
type noticeMsg struct {
	notice engine.Notice
}

// Bridge turns engine output into tea messages. It implements
// engine.Renderer and engine.Notifier without ever blocking the caller:
// messages are queued in order and a single pump goroutine delivers them.
type Bridge struct {
	mu     sync.Mutex
	queue  []tea.Msg
	wake   chan struct{}
	closed bool
}

// NewBridge creates an idle bridge. Call Run to start delivery.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// RenderDevices implements engine.Renderer.
func (b *Bridge) RenderDevices(list view.DeviceList) {
	b.Post(devicesMsg{list: list})
}

// RenderLogs implements engine.Renderer.
func (b *Bridge) RenderLogs(frame engine.LogFrame) {
	b.Post(logFrameMsg{frame: frame})
}

// RenderStats implements engine.Renderer.
func (b *Bridge) RenderStats(frame engine.StatsFrame) {
	b.Post(statsFrameMsg{frame: frame})
}

// Notify implements engine.Notifier.
func (b *Bridge) Notify(n engine.Notice) {
	b.Post(noticeMsg{notice: n})
}

// Post queues msg for delivery. It never blocks.
func (b *Bridge) Post(msg tea.Msg) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Run delivers queued messages to send, in order, until ctx is done.
// send is usually (*tea.Program).Send.
func (b *Bridge) Run(ctx context.Context, send func(tea.Msg)) {
	defer func() {
		b.mu.Lock()
		b.closed = true
		b.queue = nil
		b.mu.Unlock()
	}()

	for {
		for {
			msg, ok := b.pop()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return
			}
			send(msg)
		}

		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
	}
}

// Pending returns the number of undelivered messages.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Bridge) pop() (tea.Msg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	msg := b.queue[0]
	b.queue[0] = nil
	b.queue = b.queue[1:]
	return msg, true
}
