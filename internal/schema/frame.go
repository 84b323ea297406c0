package schema

import (
	"sort"
	"time"
)

// Row is one canonical minute row. Timestamp carries the timestamp column;
// Values holds the other canonical columns by name, and a missing key is
// treated as null. Grounded on the teacher's
// Envelope pattern (internal/data/envelope.go) of carrying a typed
// Timestamp alongside a loosely-typed payload map, simplified to the flat
// row shape this domain's columnar frame needs.
type Row struct {
	Timestamp time.Time
	Values    map[string]any
}

// Get returns the value for a canonical column, or nil if absent/null.
func (r Row) Get(col string) any {
	if r.Values == nil {
		return nil
	}
	return r.Values[col]
}

// Frame is an ordered sequence of Rows plus the canonical column list they
// are (or will be, after Reproject) expressed over.
type Frame struct {
	Columns []string
	Rows    []Row
}

// NewFrame builds a Frame already projected onto the canonical column order.
func NewFrame(rows []Row) *Frame {
	return &Frame{Columns: ColumnNames(), Rows: rows}
}

// Height is the row count.
func (f *Frame) Height() int { return len(f.Rows) }

// Width is the column count.
func (f *Frame) Width() int { return len(f.Columns) }

// Reproject returns a copy of f with every row's Values narrowed/ordered to
// exactly f.Columns — mirroring original_source's
// `frame.select(canonical_column_names())` step in atomic.py.
func (f *Frame) Reproject() *Frame {
	out := make([]Row, len(f.Rows))
	for i, r := range f.Rows {
		vals := make(map[string]any, len(f.Columns))
		for _, c := range f.Columns {
			if v, ok := r.Values[c]; ok {
				vals[c] = v
			}
		}
		out[i] = Row{Timestamp: r.Timestamp, Values: vals}
	}
	return &Frame{Columns: f.Columns, Rows: out}
}

// SortByTimestamp sorts rows ascending by Timestamp, stable.
func (f *Frame) SortByTimestamp() {
	sort.SliceStable(f.Rows, func(i, j int) bool {
		return f.Rows[i].Timestamp.Before(f.Rows[j].Timestamp)
	})
}

// DedupeKeepLast concatenates f with other, sorts by timestamp, and keeps
// only the last occurrence of each duplicated timestamp — the merge rule
// from original_source/writer/atomic.py's `_merge_partition_frames`
// (concat, sort, `.unique(subset=["timestamp"], keep="last")`, sort again).
func DedupeKeepLast(base, incoming *Frame) *Frame {
	combined := append(append([]Row{}, base.Rows...), incoming.Rows...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Timestamp.Before(combined[j].Timestamp)
	})
	lastByTS := make(map[int64]int, len(combined))
	for i, r := range combined {
		lastByTS[r.Timestamp.UnixMilli()] = i
	}
	kept := make([]Row, 0, len(lastByTS))
	seen := make(map[int64]bool, len(lastByTS))
	for _, r := range combined {
		ts := r.Timestamp.UnixMilli()
		if seen[ts] {
			continue
		}
		seen[ts] = true
		kept = append(kept, combined[lastByTS[ts]])
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})
	cols := base.Columns
	if len(cols) == 0 {
		cols = ColumnNames()
	}
	return (&Frame{Columns: cols, Rows: kept}).Reproject()
}

// MinMaxTimestamp returns the min and max row timestamps. ok is false for
// an empty frame.
func (f *Frame) MinMaxTimestamp() (min, max time.Time, ok bool) {
	if len(f.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = f.Rows[0].Timestamp, f.Rows[0].Timestamp
	for _, r := range f.Rows[1:] {
		if r.Timestamp.Before(min) {
			min = r.Timestamp
		}
		if r.Timestamp.After(max) {
			max = r.Timestamp
		}
	}
	return min, max, true
}
