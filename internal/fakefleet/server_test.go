package fakefleet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bkonkle/fleetdash/internal/fleet"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestClient(t *testing.T, srv *Server) *fleet.Client {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return fleet.NewClient(ts.URL)
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC)
}

func TestServer_EmptyList(t *testing.T) {
	client := newTestClient(t, New())

	devices, err := client.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("expected no devices, got %d", len(devices))
	}
}

func TestServer_AddAssignsPorts(t *testing.T) {
	client := newTestClient(t, New())
	ctx := context.Background()

	first, err := client.AddDevice(ctx, "Pixel", "udid-1")
	if err != nil {
		t.Fatalf("AddDevice() error: %v", err)
	}
	second, err := client.AddDevice(ctx, "iPhone", "udid-2")
	if err != nil {
		t.Fatalf("AddDevice() error: %v", err)
	}

	want := []fleet.DeviceConfig{
		{Name: "Pixel", UDID: "udid-1", AppiumPort: 6001, WDALocalPort: 8100, SystemPort: 8200, MJPEGPort: 9100},
		{Name: "iPhone", UDID: "udid-2", AppiumPort: 6002, WDALocalPort: 8101, SystemPort: 8201, MJPEGPort: 9101},
	}
	for i, got := range []*fleet.ActionResult{first, second} {
		if !got.Success || got.Device == nil || *got.Device != want[i] {
			t.Errorf("add %d = %+v, want %+v", i, got.Device, want[i])
		}
	}

	devices, err := client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(devices) != 2 || devices[1].Index != 1 || devices[1].Status != fleet.StatusStopped {
		t.Errorf("unexpected devices: %+v", devices)
	}
	if devices[0].Stats == nil {
		t.Error("expected stats on every device")
	}
}

func TestServer_AddDuplicateUDID(t *testing.T) {
	srv := New()
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"})
	client := newTestClient(t, srv)

	result, err := client.AddDevice(context.Background(), "Other", "udid-1")
	if err != nil {
		t.Fatalf("AddDevice() error: %v", err)
	}
	if result.Success || result.Error == "" {
		t.Errorf("expected in-band failure, got %+v", result)
	}
}

func TestServer_StartStopLifecycle(t *testing.T) {
	srv := New(WithClock(fixedClock))
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"})
	client := newTestClient(t, srv)
	ctx := context.Background()

	if r, err := client.StartDevice(ctx, 0); err != nil || !r.Success {
		t.Fatalf("StartDevice() = %+v, %v", r, err)
	}

	steps := []fleet.Status{fleet.StatusStarting, fleet.StatusRunning}
	for _, want := range steps {
		devices, err := client.ListDevices(ctx)
		if err != nil {
			t.Fatalf("ListDevices() error: %v", err)
		}
		if devices[0].Status != want {
			t.Errorf("status = %s, want %s", devices[0].Status, want)
		}
	}

	if r, _ := client.StartDevice(ctx, 0); r.Success {
		t.Error("starting a running device should fail in-band")
	}

	if r, err := client.StopDevice(ctx, 0); err != nil || !r.Success {
		t.Fatalf("StopDevice() = %+v, %v", r, err)
	}

	snap, err := client.FetchLogs(ctx, 0)
	if err != nil {
		t.Fatalf("FetchLogs() error: %v", err)
	}
	if snap.Logs == nil || !strings.Contains(*snap.Logs, "[10:20:30] Starting Appium on port 6001") {
		t.Errorf("unexpected logs: %v", snap.Logs)
	}
}

func TestServer_LogsNullWhenEmpty(t *testing.T) {
	srv := New()
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"})
	client := newTestClient(t, srv)

	snap, err := client.FetchLogs(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchLogs() error: %v", err)
	}
	if snap.Logs != nil {
		t.Errorf("expected null logs, got %q", *snap.Logs)
	}
}

func TestServer_UnknownDevice(t *testing.T) {
	client := newTestClient(t, New())
	ctx := context.Background()

	_, err := client.DeleteDevice(ctx, 9)

	var terr *fleet.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("DeleteDevice() error = %v, want TransportError", err)
	}
	if terr.StatusCode != http.StatusNotFound || terr.ServerMessage != "Device not found" {
		t.Errorf("unexpected error: %+v", terr)
	}

	if _, err := client.FetchLogs(ctx, 9); !fleet.IsTransportError(err) {
		t.Errorf("FetchLogs() error = %v, want TransportError", err)
	}

	detailed, err := client.FetchDetailedStats(ctx, 9)
	if err != nil {
		t.Fatalf("FetchDetailedStats() error: %v", err)
	}
	if *detailed != (fleet.DetailedStats{}) {
		t.Errorf("expected zeros, got %+v", detailed)
	}
}

func TestServer_DeleteKeepsIndices(t *testing.T) {
	srv := New()
	client := newTestClient(t, srv)
	ctx := context.Background()

	for _, d := range []fleet.AddRequest{{Name: "A", UDID: "a"}, {Name: "B", UDID: "b"}} {
		if r, err := client.AddDevice(ctx, d.Name, d.UDID); err != nil || !r.Success {
			t.Fatalf("AddDevice(%s) = %+v, %v", d.Name, r, err)
		}
	}
	if r, err := client.DeleteDevice(ctx, 0); err != nil || !r.Success {
		t.Fatalf("DeleteDevice() = %+v, %v", r, err)
	}

	devices, err := client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "B" || devices[0].Index != 1 {
		t.Fatalf("expected B to keep index 1, got %+v", devices)
	}

	// The freed index stays gone and B is still addressed by its own index.
	if _, err := client.StartDevice(ctx, 0); !fleet.IsTransportError(err) {
		t.Errorf("expected 404 for deleted index 0, got %v", err)
	}
	if r, err := client.StartDevice(ctx, 1); err != nil || !r.Success {
		t.Errorf("StartDevice(1) = %+v, %v", r, err)
	}

	if r, err := client.AddDevice(ctx, "C", "c"); err != nil || !r.Success {
		t.Fatalf("AddDevice(C) = %+v, %v", r, err)
	}
	devices, err = client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if len(devices) != 2 || devices[1].Name != "C" || devices[1].Index != 2 {
		t.Errorf("expected C at new index 2, got %+v", devices)
	}
}

func TestServer_Stats(t *testing.T) {
	srv := New()
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"})
	client := newTestClient(t, srv)
	ctx := context.Background()

	bumps := []struct {
		statType string
		category string
	}{
		{"successful", "first_request"},
		{"successful", "first_request"},
		{"successful", "multiple_numbers"},
		{"confirm_human", "second_request"},
		{"failed", ""},
	}
	for _, b := range bumps {
		if err := srv.RecordStat(0, b.statType, b.category); err != nil {
			t.Fatalf("RecordStat(%s, %s) error: %v", b.statType, b.category, err)
		}
	}
	if err := srv.RecordStat(0, "bogus", ""); err == nil {
		t.Error("expected an error for an unknown stat type")
	}

	summary, err := client.FetchStats(ctx, 0)
	if err != nil {
		t.Fatalf("FetchStats() error: %v", err)
	}
	if *summary != (fleet.Stats{Successful: 3, ConfirmHuman: 1, Failed: 1}) {
		t.Errorf("summary = %+v", summary)
	}

	detailed, err := client.FetchDetailedStats(ctx, 0)
	if err != nil {
		t.Fatalf("FetchDetailedStats() error: %v", err)
	}
	want := fleet.DetailedStats{
		Successful:   fleet.Breakdown{FirstRequest: 2, MultipleNumbers: 1},
		ConfirmHuman: fleet.Breakdown{SecondRequest: 1},
	}
	if *detailed != want {
		t.Errorf("detailed = %+v, want %+v", detailed, want)
	}
}

func TestServer_StatsUpdateEndpoint(t *testing.T) {
	srv := New()
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		body string
		want int
	}{
		{`{"type":"successful","category":"second_request"}`, http.StatusOK},
		{`{"type":"nope"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+"/api/device/0/stats/update", "application/json", strings.NewReader(tt.body))
		if err != nil {
			t.Fatalf("POST error: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.body, resp.StatusCode, tt.want)
		}
	}
}

func TestServer_CleanupAndShutdown(t *testing.T) {
	srv := New()
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"})
	shutdown := make(chan struct{}, 1)
	srv.OnShutdown = func() { shutdown <- struct{}{} }
	client := newTestClient(t, srv)
	ctx := context.Background()

	if _, err := client.StartDevice(ctx, 0); err != nil {
		t.Fatalf("StartDevice() error: %v", err)
	}
	if r, err := client.CleanupLogs(ctx, 1); err != nil || !r.Success {
		t.Fatalf("CleanupLogs() = %+v, %v", r, err)
	}
	if r, err := client.Shutdown(ctx); err != nil || !r.Success {
		t.Fatalf("Shutdown() = %+v, %v", r, err)
	}

	select {
	case <-shutdown:
	case <-time.After(time.Second):
		t.Error("OnShutdown not called")
	}

	devices, err := client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	if devices[0].Status != fleet.StatusStopped {
		t.Errorf("status = %s, want stopped", devices[0].Status)
	}
}

func TestServer_Tick(t *testing.T) {
	srv := New(WithClock(fixedClock))
	srv.Seed(fleet.AddRequest{Name: "Pixel", UDID: "udid-1"}, fleet.AddRequest{Name: "iPhone", UDID: "udid-2"})
	client := newTestClient(t, srv)
	ctx := context.Background()

	if _, err := client.StartDevice(ctx, 0); err != nil {
		t.Fatalf("StartDevice() error: %v", err)
	}
	// The list call finishes booting.
	if _, err := client.ListDevices(ctx); err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}

	for i := 0; i < 5; i++ {
		srv.Tick()
	}

	devices, err := client.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error: %v", err)
	}
	want := fleet.Stats{Successful: 3, ConfirmHuman: 1, Failed: 1}
	if got := *devices[0].Stats; got != want {
		t.Errorf("running device stats = %+v, want %+v", got, want)
	}
	if got := *devices[1].Stats; got != (fleet.Stats{}) {
		t.Errorf("stopped device should not change, got %+v", got)
	}

	detailed, err := client.FetchDetailedStats(ctx, 0)
	if err != nil {
		t.Fatalf("FetchDetailedStats() error: %v", err)
	}
	if detailed.Successful.Total() != 3 {
		t.Errorf("expected 3 detailed successes, got %d", detailed.Successful.Total())
	}
}
