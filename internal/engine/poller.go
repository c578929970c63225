package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/metrics"
	"github.com/bkonkle/fleetdash/internal/schedule"
	"github.com/bkonkle/fleetdash/internal/view"
)

const devicesPoller = "devices"

// ListPoller keeps the device list fresh. Every tick starts an independent
// fetch; fetches may overlap and the last one to complete wins.
type ListPoller struct {
	lister   DeviceLister
	sched    schedule.Scheduler
	interval time.Duration
	renderer Renderer
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	ctx       context.Context
	token     schedule.Token
	running   bool
	latest    []fleet.Device
	updatedAt time.Time

	inflight sync.WaitGroup
}

// NewListPoller creates a stopped poller.
func NewListPoller(lister DeviceLister, sched schedule.Scheduler, interval time.Duration, renderer Renderer, logger zerolog.Logger, m *metrics.Metrics) *ListPoller {
	return &ListPoller{
		lister:   lister,
		sched:    sched,
		interval: interval,
		renderer: renderer,
		logger:   logger.With().Str("poller", devicesPoller).Logger(),
		metrics:  m,
		ctx:      context.Background(),
	}
}

// Start fetches once immediately and then on every interval until Stop or
// until ctx is done. Starting a running poller is a no-op.
func (p *ListPoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.ctx = ctx
	p.running = true
	p.token = p.sched.Schedule(p.interval, p.fetch)
	p.mu.Unlock()

	p.logger.Debug().Dur("interval", p.interval).Msg("device poller started")
	p.fetch()
}

// Stop cancels the schedule. Fetches already in flight still complete and
// are applied.
func (p *ListPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.sched.Cancel(p.token)
	p.running = false
	p.logger.Debug().Msg("device poller stopped")
}

// ForceRefresh starts an out-of-band fetch without touching the schedule.
func (p *ListPoller) ForceRefresh() {
	p.logger.Debug().Msg("forced refresh")
	p.fetch()
}

// Latest returns the last applied snapshot and when it was applied.
func (p *ListPoller) Latest() ([]fleet.Device, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]fleet.Device, len(p.latest))
	copy(out, p.latest)
	return out, p.updatedAt
}

// Wait blocks until every fetch started so far has been applied or dropped.
func (p *ListPoller) Wait() {
	p.inflight.Wait()
}

func (p *ListPoller) fetch() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	p.metrics.FetchStarted(devicesPoller)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		devices, err := p.lister.ListDevices(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// The next tick is the retry; keep showing the last good list.
			p.metrics.FetchFailed(devicesPoller)
			p.logger.Warn().Err(err).Msg("failed to load devices")
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		p.latest = devices
		p.updatedAt = time.Now()
		p.renderer.RenderDevices(view.RenderDeviceList(devices))
	}()
}
