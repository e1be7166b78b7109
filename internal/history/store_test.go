package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/polyglot-bot/polyglot/internal/dispatch"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreObserveAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	events := []dispatch.Event{
		{RequestID: "a", Time: base, Duration: 2 * time.Second, ChannelID: "C1", Language: "jp", State: dispatch.StateDone, Delivery: dispatch.DeliveryThread, ThreadID: "T1", Outcome: "success", Chunks: 1, SourceLength: 5},
		{RequestID: "b", Time: base.Add(time.Minute), ChannelID: "C1", State: dispatch.StateErrorReported, Detail: "translation requested without a language"},
	}
	for _, ev := range events {
		if err := store.Observe(ctx, ev); err != nil {
			t.Fatalf("observe %s: %v", ev.RequestID, err)
		}
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RequestID != "b" || records[1].RequestID != "a" {
		t.Fatalf("expected newest first, got %s, %s", records[0].RequestID, records[1].RequestID)
	}
	first := records[1]
	if !first.Time.Equal(base) || first.Duration != 2*time.Second || first.Delivery != "thread" || first.ThreadID != "T1" || first.State != "done" {
		t.Fatalf("unexpected record: %+v", first)
	}
}

func TestStoreRejectsDuplicateRequest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ev := dispatch.Event{RequestID: "dup", Time: time.Now(), State: dispatch.StateDone}
	if err := store.Observe(ctx, ev); err != nil {
		t.Fatalf("first observe: %v", err)
	}
	if err := store.Observe(ctx, ev); err == nil {
		t.Fatal("expected error for duplicate request id")
	}
}

func TestStoreOutcomeCounts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	for i, state := range []dispatch.State{dispatch.StateDone, dispatch.StateDone, dispatch.StateErrorReported} {
		ev := dispatch.Event{RequestID: string(rune('a' + i)), Time: time.Now(), State: state}
		if err := store.Observe(ctx, ev); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}

	counts, err := store.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["done"] != 2 || counts["error_reported"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if _, err := store.Recent(context.Background(), 1); err == nil {
		t.Fatal("expected error for nil store")
	}
}
