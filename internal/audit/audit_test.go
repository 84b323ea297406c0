package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/minutelake/ingest/internal/schema"
	"github.com/minutelake/ingest/internal/state"
	"github.com/minutelake/ingest/internal/writer"
)

func TestAuditMissingFile(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(59 * time.Minute)
	result := AuditHourPartitionFile(filepath.Join(t.TempDir(), "absent.parquet"), start, end)
	if result.IsValid || result.Reason != "missing_file" {
		t.Fatalf("expected missing_file, got %+v", result)
	}
}

func TestAuditInvalidExpectedRange(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(-time.Minute)
	result := AuditHourPartitionFile("/nonexistent", start, end)
	if result.IsValid || result.Reason != "invalid_expected_range" {
		t.Fatalf("expected invalid_expected_range, got %+v", result)
	}
}

func writeFullHourPartition(t *testing.T, hourStart time.Time, skipMinute int) string {
	t.Helper()
	root := t.TempDir()
	store, err := state.Open(state.DefaultConfig(filepath.Join(t.TempDir(), "ledger.db")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	var rows []schema.Row
	for m := 0; m < 60; m++ {
		if m == skipMinute {
			continue
		}
		vals := map[string]any{}
		for _, c := range schema.HardRequiredColumnNames() {
			vals[c] = 1.0
		}
		rows = append(rows, schema.Row{Timestamp: hourStart.Add(time.Duration(m) * time.Minute), Values: vals})
	}

	w := writer.New(root, store)
	path, err := w.WriteHourPartition(context.Background(), "BTCUSDT", hourStart, schema.NewFrame(rows))
	if err != nil {
		t.Fatalf("write hour partition: %v", err)
	}
	return path
}

func TestAuditFullHourIsOK(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	path := writeFullHourPartition(t, start, -1)
	result := AuditHourPartitionFile(path, start, start.Add(59*time.Minute))
	if !result.IsValid || result.Reason != "ok" {
		t.Fatalf("expected ok, got %+v", result)
	}
}

func TestAuditGapProducesRowCountMismatch(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	path := writeFullHourPartition(t, start, 30)
	result := AuditHourPartitionFile(path, start, start.Add(59*time.Minute))
	if result.IsValid {
		t.Fatal("expected failure for partial hour")
	}
	if result.Reason[:len("row_count_mismatch")] != "row_count_mismatch" {
		t.Fatalf("expected row_count_mismatch prefix, got %s", result.Reason)
	}
}
