package writer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/minutelake/ingest/internal/schema"
	"github.com/minutelake/ingest/internal/state"
)

func fullHourFrame(t *testing.T, hourStart time.Time) *schema.Frame {
	t.Helper()
	rows := make([]schema.Row, 0, 60)
	for m := 0; m < 60; m++ {
		ts := hourStart.Add(time.Duration(m) * time.Minute)
		vals := map[string]any{}
		for _, c := range schema.HardRequiredColumnNames() {
			vals[c] = 1.0
		}
		rows = append(rows, schema.Row{Timestamp: ts, Values: vals})
	}
	return schema.NewFrame(rows)
}

func TestWriteHourPartitionCommitsLedgerEntry(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	store, err := state.Open(state.DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	hourStart := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	w := New(root, store)

	path, err := w.WriteHourPartition(context.Background(), "BTCUSDT", hourStart, fullHourFrame(t, hourStart))
	if err != nil {
		t.Fatalf("write hour partition: %v", err)
	}

	wantPath := filepath.Join(root, "futures", "um", "minute", "symbol=BTCUSDT", "year=2026", "month=01", "day=15", "hour=10", "part.parquet")
	if path != wantPath {
		t.Fatalf("got path %s, want %s", path, wantPath)
	}

	latest, err := store.LatestPartition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("latest partition: %v", err)
	}
	if latest == nil || latest.RowCount != 60 || latest.Status != schema.StatusCommitted {
		t.Fatalf("unexpected ledger entry: %+v", latest)
	}
}

func TestPartitionPathLayout(t *testing.T) {
	w := New("/lake", nil)
	got := w.PartitionPath("BTCUSDT", time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC))
	want := filepath.Join("/lake", "futures", "um", "minute", "symbol=BTCUSDT", "year=2026", "month=03", "day=04", "hour=05", "part.parquet")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
