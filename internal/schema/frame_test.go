package schema

import (
	"testing"
	"time"
)

func row(ts time.Time, close float64) Row {
	return Row{Timestamp: ts, Values: map[string]any{"close": close}}
}

func TestDedupeKeepLast(t *testing.T) {
	base := NewFrame([]Row{row(time.Unix(0, 0), 1.0)})
	incoming := NewFrame([]Row{row(time.Unix(0, 0), 2.0)})
	merged := DedupeKeepLast(base, incoming)
	if merged.Height() != 1 {
		t.Fatalf("expected 1 row, got %d", merged.Height())
	}
	if merged.Rows[0].Get("close") != 2.0 {
		t.Fatalf("expected keep-last value 2.0, got %v", merged.Rows[0].Get("close"))
	}
}

func TestReprojectDropsUnknownColumns(t *testing.T) {
	f := &Frame{Columns: []string{"close"}, Rows: []Row{{
		Timestamp: time.Unix(0, 0),
		Values:    map[string]any{"close": 1.0, "extra": "drop me"},
	}}}
	out := f.Reproject()
	if _, ok := out.Rows[0].Values["extra"]; ok {
		t.Fatal("expected extra column to be dropped")
	}
	if out.Rows[0].Get("close") != 1.0 {
		t.Fatal("expected close to survive reprojection")
	}
}
