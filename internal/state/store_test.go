package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/minutelake/ingest/internal/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func TestWatermarkRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if got, err := s.GetWatermark(ctx, "BTCUSDT"); err != nil || got != nil {
		t.Fatalf("expected no watermark yet, got %v err %v", got, err)
	}

	want := time.Date(2026, 1, 15, 10, 2, 0, 0, time.UTC)
	if err := s.UpsertWatermark(ctx, "BTCUSDT", want); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetWatermark(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPartitionUpsertAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := PartitionEntry{
		Symbol:      "BTCUSDT",
		Day:         "2026-01-15",
		Hour:        10,
		Path:        "/lake/.../hour=10/part.parquet",
		RowCount:    60,
		MinTS:       time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		MaxTS:       time.Date(2026, 1, 15, 10, 59, 0, 0, time.UTC),
		SchemaHash:  "abc",
		ContentHash: "def",
		Status:      schema.StatusCommitted,
		CommittedAt: time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC),
	}
	if err := s.UpsertPartition(ctx, base); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	later := base
	later.Hour = 11
	later.ContentHash = "ghi"
	if err := s.UpsertPartition(ctx, later); err != nil {
		t.Fatalf("upsert later: %v", err)
	}

	latest, err := s.LatestPartition(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Hour != 11 || latest.ContentHash != "ghi" {
		t.Fatalf("expected hour 11 with updated hash, got %+v", latest)
	}
}
