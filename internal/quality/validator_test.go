package quality

import (
	"testing"
	"time"

	"github.com/minutelake/ingest/internal/schema"
)

func fullRow(ts time.Time) schema.Row {
	vals := map[string]any{}
	for _, c := range schema.HardRequiredColumnNames() {
		vals[c] = 1.0
	}
	return schema.Row{Timestamp: ts, Values: vals}
}

func TestValidateMissingColumns(t *testing.T) {
	f := &schema.Frame{Columns: []string{"timestamp", "close"}, Rows: []schema.Row{
		{Timestamp: time.Unix(0, 0), Values: map[string]any{"close": 1.0}},
	}}
	_, err := New().Validate(f)
	if err == nil {
		t.Fatal("expected missing columns error")
	}
	dqe, ok := err.(*DataQualityError)
	if !ok {
		t.Fatalf("expected *DataQualityError, got %T", err)
	}
	if len(dqe.Message) < len("Missing canonical columns: ") || dqe.Message[:len("Missing canonical columns: ")] != "Missing canonical columns: " {
		t.Fatalf("unexpected message: %s", dqe.Message)
	}
}

func TestValidateDuplicateTimestamps(t *testing.T) {
	ts := time.Unix(0, 0)
	rows := []schema.Row{fullRow(ts), fullRow(ts)}
	f := schema.NewFrame(rows)
	_, err := New().Validate(f)
	if err == nil {
		t.Fatal("expected duplicate timestamp error")
	}
	if err.Error() != "Found 1 duplicated timestamp buckets" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestValidateHardRequiredNulls(t *testing.T) {
	ts := time.Unix(0, 0)
	row := fullRow(ts)
	delete(row.Values, "open")
	f := schema.NewFrame([]schema.Row{row})
	_, err := New().Validate(f)
	if err == nil {
		t.Fatal("expected hard required null error")
	}
	want := "HARD_REQUIRED null violations: open=1"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestValidatePasses(t *testing.T) {
	ts := time.Unix(0, 0)
	f := schema.NewFrame([]schema.Row{fullRow(ts)})
	result, err := New().Validate(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 1 {
		t.Fatalf("expected row count 1, got %d", result.RowCount)
	}
}
