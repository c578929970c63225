// Package engine is the client-side synchronization engine: the device list
// poller, the per-kind modal sessions and the action dispatcher.
//
// The engine talks to the outside world only through small ports: the
// fleet API interfaces below, schedule.Scheduler for timers, Renderer for
// output, Confirmer for operator confirmation and Notifier for notices.
package engine

import (
	"context"
	"time"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/view"
)

// DeviceLister fetches the device list snapshot.
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]fleet.Device, error)
}

// LogFetcher fetches a device's log tail.
type LogFetcher interface {
	FetchLogs(ctx context.Context, index int) (*fleet.LogSnapshot, error)
}

// StatsFetcher fetches a device's detailed counters.
type StatsFetcher interface {
	FetchDetailedStats(ctx context.Context, index int) (*fleet.DetailedStats, error)
}

// ActionAPI performs the mutating calls.
type ActionAPI interface {
	StartDevice(ctx context.Context, index int) (*fleet.ActionResult, error)
	StopDevice(ctx context.Context, index int) (*fleet.ActionResult, error)
	DeleteDevice(ctx context.Context, index int) (*fleet.ActionResult, error)
	AddDevice(ctx context.Context, name, udid string) (*fleet.ActionResult, error)
}

// API is everything the engine needs from the server. *fleet.Client
// implements it.
type API interface {
	DeviceLister
	LogFetcher
	StatsFetcher
	ActionAPI
}

// LogFrame is a log snapshot ready to be applied to the log surface. The
// surface computes the scroll outcome with view.RenderLogView because only it
// knows its current scroll position.
type LogFrame struct {
	Index    int
	Epoch    uint64
	Snapshot fleet.LogSnapshot
}

// StatsFrame is a reconciled stats snapshot.
type StatsFrame struct {
	Index int
	Epoch uint64
	View  view.StatsView
}

// Renderer is the output port. Implementations must not block: the engine
// calls them while holding its own locks.
type Renderer interface {
	RenderDevices(list view.DeviceList)
	RenderLogs(frame LogFrame)
	RenderStats(frame StatsFrame)
}

// Confirmer asks the operator to confirm a destructive action. It may block
// until the operator answers; a cancelled ctx counts as a refusal.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// Notifier surfaces one-shot notices to the operator.
type Notifier interface {
	Notify(n Notice)
}

// Refresher forces an out-of-band device list fetch.
type Refresher interface {
	ForceRefresh()
}

// ModalCloser closes any modal focused on a device.
type ModalCloser interface {
	CloseIf(index int)
}

// Intervals are the poll periods of the three pollers.
type Intervals struct {
	Devices time.Duration
	Logs    time.Duration
	Stats   time.Duration
}

// DefaultIntervals returns the reference periods.
func DefaultIntervals() Intervals {
	return Intervals{
		Devices: 3 * time.Second,
		Logs:    time.Second,
		Stats:   2 * time.Second,
	}
}
