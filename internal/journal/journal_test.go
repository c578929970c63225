package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entries := []Entry{
		{At: base, Action: "start", Index: 1, Name: "D1", Outcome: "success"},
		{At: base.Add(time.Second), Action: "stop", Index: 1, Name: "D1", Outcome: "declined"},
		{At: base.Add(2 * time.Second), Action: "add", Index: NoIndex, Name: "D2", Outcome: "rejected", Detail: "UDID exists"},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Action != "add" || got[1].Action != "stop" {
		t.Errorf("expected newest first, got %s, %s", got[0].Action, got[1].Action)
	}
	if got[0].Index != NoIndex || got[0].Detail != "UDID exists" {
		t.Errorf("unexpected entry: %+v", got[0])
	}
	if !got[1].At.Equal(base.Add(time.Second)) {
		t.Errorf("At = %v, want %v", got[1].At, base.Add(time.Second))
	}
	if got[0].ID == 0 {
		t.Error("expected an assigned ID")
	}
}

func TestRecord_DefaultsTime(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	if err := store.Record(ctx, Entry{Action: "delete", Index: 3, Outcome: "success"}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].At.Before(before) {
		t.Errorf("At = %v, expected about now", got[0].At)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := store.Record(context.Background(), Entry{Action: "start", Outcome: "success"}); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer store.Close()

	got, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected entry to persist, got %d", len(got))
	}
}

func TestRecent_Empty(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}
