package clock

import (
	"testing"
	"time"
)

func TestFloorToMinute(t *testing.T) {
	in := time.Date(2026, 1, 15, 10, 2, 37, 500, time.UTC)
	want := time.Date(2026, 1, 15, 10, 2, 0, 0, time.UTC)
	if got := FloorToMinute(in); !got.Equal(want) {
		t.Fatalf("FloorToMinute(%v) = %v, want %v", in, got, want)
	}
}

func TestIterHoursEmptyWhenEndBeforeStart(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	if got := IterHours(start, end); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestIterHoursInclusive(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	got := IterHours(start, end)
	if len(got) != 3 {
		t.Fatalf("expected 3 hours, got %d", len(got))
	}
	if !got[0].Equal(start) || !got[2].Equal(end) {
		t.Fatalf("unexpected bounds: %v", got)
	}
}

func TestDenseMinutesCount(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 15, 10, 59, 0, 0, time.UTC)
	got := DenseMinutes(start, end)
	if len(got) != 60 {
		t.Fatalf("expected 60 minutes, got %d", len(got))
	}
}
