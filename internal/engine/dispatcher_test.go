package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bkonkle/fleetdash/internal/fleet"
	"github.com/bkonkle/fleetdash/internal/journal"
	"github.com/bkonkle/fleetdash/internal/metrics"
)

type dispatcherFixture struct {
	api       *mockActions
	confirmer *staticConfirmer
	refresher *countingRefresher
	modals    *recordingModals
	notifier  *recordingNotifier
	recorder  *memoryRecorder
	dispatch  *Dispatcher
}

func newDispatcherFixture(confirm bool) *dispatcherFixture {
	f := &dispatcherFixture{
		api:       &mockActions{},
		confirmer: &staticConfirmer{answer: confirm},
		refresher: &countingRefresher{},
		modals:    &recordingModals{},
		notifier:  &recordingNotifier{},
		recorder:  &memoryRecorder{},
	}
	f.dispatch = NewDispatcher(f.api, f.confirmer, f.refresher,
		WithModals(f.modals),
		WithNotifier(f.notifier),
		WithRecorder(f.recorder),
		WithMetrics(metrics.New()),
	)
	return f
}

func TestDispatcher_StartRefreshesOnce(t *testing.T) {
	f := newDispatcherFixture(true)

	if err := f.dispatch.Start(context.Background(), 1); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if f.refresher.count != 1 {
		t.Errorf("ForceRefresh called %d times, want 1", f.refresher.count)
	}
	if len(f.confirmer.messages) != 0 {
		t.Error("start must not ask for confirmation")
	}
	if len(f.notifier.notices) != 1 || f.notifier.notices[0].Err != nil {
		t.Errorf("expected one success notice, got %+v", f.notifier.notices)
	}
}

func TestDispatcher_DeclinedStop(t *testing.T) {
	f := newDispatcherFixture(false)

	err := f.dispatch.Stop(context.Background(), 1)
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("Stop() error = %v, want ErrDeclined", err)
	}
	if f.api.callCount() != 0 {
		t.Error("declined stop must not reach the server")
	}
	if f.refresher.count != 0 {
		t.Error("declined stop must not refresh")
	}
	if got := f.confirmer.messages[0]; got != "Are you sure you want to stop this device?" {
		t.Errorf("confirm message = %q", got)
	}
	if len(f.recorder.entries) != 1 || f.recorder.entries[0].Outcome != OutcomeDeclined {
		t.Errorf("expected a declined journal entry, got %+v", f.recorder.entries)
	}
}

func TestDispatcher_ConfirmedActions(t *testing.T) {
	tests := []struct {
		name string
		run  func(d *Dispatcher) error
		call string
	}{
		{"stop", func(d *Dispatcher) error { return d.Stop(context.Background(), 2) }, "stop"},
		{"delete", func(d *Dispatcher) error { return d.Delete(context.Background(), 2, "Pixel") }, "delete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatcherFixture(true)

			if err := tt.run(f.dispatch); err != nil {
				t.Fatalf("error: %v", err)
			}
			if len(f.api.calls) != 1 || f.api.calls[0] != tt.call {
				t.Errorf("calls = %v, want [%s]", f.api.calls, tt.call)
			}
			if f.refresher.count != 1 {
				t.Errorf("ForceRefresh called %d times, want 1", f.refresher.count)
			}
		})
	}
}

func TestDispatcher_DeleteClosesModals(t *testing.T) {
	f := newDispatcherFixture(true)

	if err := f.dispatch.Delete(context.Background(), 4, "Pixel 7"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if len(f.modals.closed) != 1 || f.modals.closed[0] != 4 {
		t.Errorf("CloseIf calls = %v, want [4]", f.modals.closed)
	}
	want := "Are you sure you want to delete Pixel 7? This cannot be undone."
	if f.confirmer.messages[0] != want {
		t.Errorf("confirm message = %q, want %q", f.confirmer.messages[0], want)
	}
}

func TestDispatcher_DeleteFailureKeepsModals(t *testing.T) {
	f := newDispatcherFixture(true)
	f.api.result = &fleet.ActionResult{Success: false, Error: "Device not found"}

	err := f.dispatch.Delete(context.Background(), 4, "Pixel 7")

	var berr *BusinessError
	if !errors.As(err, &berr) {
		t.Fatalf("Delete() error = %v, want BusinessError", err)
	}
	if len(f.modals.closed) != 0 {
		t.Error("failed delete must not close modals")
	}
	if f.refresher.count != 0 {
		t.Error("failed delete must not refresh")
	}
}

func TestDispatcher_BusinessFailure(t *testing.T) {
	f := newDispatcherFixture(true)
	f.api.result = &fleet.ActionResult{Success: false, Error: "Appium failed to start"}

	err := f.dispatch.Start(context.Background(), 3)

	var berr *BusinessError
	if !errors.As(err, &berr) {
		t.Fatalf("Start() error = %v, want BusinessError", err)
	}
	if berr.Message != "Appium failed to start" || berr.Index != 3 {
		t.Errorf("unexpected error: %+v", berr)
	}
	if got := err.Error(); got != "start device 3: Appium failed to start" {
		t.Errorf("Error() = %q", got)
	}
	if f.refresher.count != 0 {
		t.Error("business failure must not refresh")
	}
	if n := f.notifier.notices[0]; n.Err == nil {
		t.Error("expected a failure notice")
	}
	if f.recorder.entries[0].Outcome != OutcomeRejected {
		t.Errorf("outcome = %q, want rejected", f.recorder.entries[0].Outcome)
	}
}

func TestDispatcher_TransportFailure(t *testing.T) {
	f := newDispatcherFixture(true)
	f.api.err = &fleet.TransportError{Endpoint: "POST /api/device/1/start", Err: errBoom}

	err := f.dispatch.Start(context.Background(), 1)
	if !fleet.IsTransportError(err) {
		t.Fatalf("Start() error = %v, want TransportError", err)
	}
	if f.refresher.count != 0 {
		t.Error("transport failure must not refresh")
	}
	if f.recorder.entries[0].Outcome != OutcomeFailed {
		t.Errorf("outcome = %q, want failed", f.recorder.entries[0].Outcome)
	}
}

func TestDispatcher_AddValidation(t *testing.T) {
	tests := []struct {
		name       string
		deviceName string
		udid       string
		wantFields []string
	}{
		{"empty name", "", "x", []string{"name"}},
		{"blank udid", "Pixel", "   ", []string{"udid"}},
		{"both empty", " ", "", []string{"name", "udid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatcherFixture(true)

			_, err := f.dispatch.Add(context.Background(), tt.deviceName, tt.udid)

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Add() error = %v, want ValidationErrors", err)
			}
			if len(verrs) != len(tt.wantFields) {
				t.Fatalf("got %d field errors, want %d", len(verrs), len(tt.wantFields))
			}
			for i, field := range tt.wantFields {
				if verrs[i].Field != field || verrs[i].Tag != "required" {
					t.Errorf("error %d = %+v, want required %s", i, verrs[i], field)
				}
			}
			if f.api.callCount() != 0 {
				t.Error("invalid add must not reach the server")
			}
			if f.refresher.count != 0 {
				t.Error("invalid add must not refresh")
			}
			if !strings.Contains(err.Error(), "is required") {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestDispatcher_AddTrimsAndReturnsDevice(t *testing.T) {
	f := newDispatcherFixture(true)
	f.api.result = &fleet.ActionResult{
		Success: true,
		Device:  &fleet.DeviceConfig{Name: "Pixel", UDID: "abc", AppiumPort: 4723},
	}

	dev, err := f.dispatch.Add(context.Background(), "  Pixel ", "\tabc\n")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	if len(f.api.added) != 1 || f.api.added[0] != (fleet.AddRequest{Name: "Pixel", UDID: "abc"}) {
		t.Errorf("sent %+v, want trimmed fields", f.api.added)
	}
	if dev == nil || dev.AppiumPort != 4723 {
		t.Errorf("returned device = %+v", dev)
	}
	if f.refresher.count != 1 {
		t.Errorf("ForceRefresh called %d times, want 1", f.refresher.count)
	}
	if e := f.recorder.entries[0]; e.Index != journal.NoIndex || e.Name != "Pixel" {
		t.Errorf("unexpected journal entry: %+v", e)
	}
}

func TestDispatcher_AddRejected(t *testing.T) {
	f := newDispatcherFixture(true)
	f.api.result = &fleet.ActionResult{Success: false, Error: "Device with this UDID already exists"}

	_, err := f.dispatch.Add(context.Background(), "Pixel", "abc")
	if got := err.Error(); got != "add device: Device with this UDID already exists" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDispatcher_JournalFailureIgnored(t *testing.T) {
	f := newDispatcherFixture(true)
	f.recorder.err = errBoom

	if err := f.dispatch.Start(context.Background(), 1); err != nil {
		t.Errorf("journal failure leaked into Start(): %v", err)
	}
}
