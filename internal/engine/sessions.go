package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/metrics"
	"github.com/bkonkle/fleetdash/internal/schedule"
	"github.com/bkonkle/fleetdash/internal/view"
)

// ModalAPI is what the drill-down sessions fetch from.
type ModalAPI interface {
	LogFetcher
	StatsFetcher
}

// Sessions holds one session per modal kind.
type Sessions struct {
	Logs  *Session[*fleet.LogSnapshot]
	Stats *Session[*fleet.DetailedStats]
}

// NewSessions wires the logs and stats sessions to api and renderer.
func NewSessions(ctx context.Context, api ModalAPI, sched schedule.Scheduler, intervals Intervals, renderer Renderer, logger zerolog.Logger, m *metrics.Metrics) *Sessions {
	logs := NewSession[*fleet.LogSnapshot](ctx, KindLogs, intervals.Logs, sched,
		api.FetchLogs,
		func(index int, epoch uint64, snap *fleet.LogSnapshot) {
			renderer.RenderLogs(LogFrame{Index: index, Epoch: epoch, Snapshot: *snap})
		},
		logger, m)

	stats := NewSession[*fleet.DetailedStats](ctx, KindStats, intervals.Stats, sched,
		api.FetchDetailedStats,
		func(index int, epoch uint64, s *fleet.DetailedStats) {
			renderer.RenderStats(StatsFrame{Index: index, Epoch: epoch, View: view.RenderStatsView(*s)})
		},
		logger, m)

	return &Sessions{Logs: logs, Stats: stats}
}

// CloseIf closes every session focused on index.
func (s *Sessions) CloseIf(index int) {
	s.Logs.CloseIf(index)
	s.Stats.CloseIf(index)
}

// CloseAll closes both sessions.
func (s *Sessions) CloseAll() {
	s.Logs.Close()
	s.Stats.Close()
}

// Wait blocks until both sessions have no fetch in flight.
func (s *Sessions) Wait() {
	s.Logs.Wait()
	s.Stats.Wait()
}
