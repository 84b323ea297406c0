// Package audit proves, per hour, that what's on disk matches what should
// exist for the expected time window. Grounded verbatim on
// original_source/validation/partition_audit.py's
// audit_hour_partition_file — ten ordered checks, first-failure-wins, each
// with an exact reason-code string, confirmed against
// original_source/tests/test_partition_audit.py.
package audit

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/minutelake/ingest/internal/schema"
	"github.com/minutelake/ingest/internal/writer"
)

// Result is the outcome of one partition audit.
type Result struct {
	IsValid bool
	Reason  string
}

// AuditHourPartitionFile runs the ten ordered checks against the parquet
// file at path for the inclusive window [expectedStart, expectedEnd].
func AuditHourPartitionFile(path string, expectedStart, expectedEnd time.Time) Result {
	// 1. invalid_expected_range
	if expectedEnd.Before(expectedStart) {
		return fail("invalid_expected_range")
	}

	// 2. missing_file
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fail("missing_file")
		}
		return fail(fmt.Sprintf("unreadable_parquet:%T", err))
	}
	if info.IsDir() {
		return fail("unreadable_parquet:IsADirectoryError")
	}

	// 3. unreadable_parquet:{exception} — opening/reading the file's footer.
	// 4. missing_columns:{sorted,joined} — checked against the file's own
	// schema before decoding rows, since decoding into ParquetRow would not
	// reveal which columns the file itself lacks.
	missing, err := missingRequiredColumns(path)
	if err != nil {
		return fail(fmt.Sprintf("unreadable_parquet:%T", err))
	}
	if len(missing) > 0 {
		return fail(fmt.Sprintf("missing_columns:%s", strings.Join(missing, ",")))
	}

	// 5. read_error:{exception} — decoding the rows.
	rows, err := readRequiredColumns(path)
	if err != nil {
		return fail(fmt.Sprintf("read_error:%T", err))
	}

	// 6. duplicate_timestamps
	seen := make(map[int64]bool, len(rows))
	for _, r := range rows {
		if seen[r.Timestamp] {
			return fail("duplicate_timestamps")
		}
		seen[r.Timestamp] = true
	}

	// 7. empty_partition
	if len(rows) == 0 {
		return fail("empty_partition")
	}

	// 8. row_count_mismatch — rows inside [expectedStart, expectedEnd], both ends inclusive
	inWindow := 0
	minTS, maxTS := rows[0].Timestamp, rows[0].Timestamp
	for _, r := range rows {
		if r.Timestamp < minTS {
			minTS = r.Timestamp
		}
		if r.Timestamp > maxTS {
			maxTS = r.Timestamp
		}
		ts := time.UnixMilli(r.Timestamp).UTC()
		if !ts.Before(expectedStart) && !ts.After(expectedEnd) {
			inWindow++
		}
	}
	expectedRows := int(expectedEnd.Sub(expectedStart)/time.Minute) + 1
	if inWindow != expectedRows {
		return fail(fmt.Sprintf("row_count_mismatch:expected=%d:actual=%d:window=%s..%s",
			expectedRows, inWindow, expectedStart.Format(time.RFC3339), expectedEnd.Format(time.RFC3339)))
	}

	// 9. timestamp_gap_or_order_error
	sortedRows := append([]writer.ParquetRow{}, rows...)
	sort.Slice(sortedRows, func(i, j int) bool { return sortedRows[i].Timestamp < sortedRows[j].Timestamp })
	for i := 1; i < len(sortedRows); i++ {
		if sortedRows[i].Timestamp-sortedRows[i-1].Timestamp != int64(time.Minute/time.Millisecond) {
			return fail("timestamp_gap_or_order_error")
		}
	}

	// 10. hard_required_nulls — only meaningful for columns modeled as
	// pointers; the HARD_REQUIRED columns in ParquetRow are all non-pointer
	// plain values, so a null can only arise from parquet itself never
	// having written a value, which the schema check above already caught.
	// Kept as an explicit, separately-named step so a future optional
	// HARD_REQUIRED column still gets checked here rather than silently
	// passing.
	if nullPairs := hardRequiredNullPairs(rows); len(nullPairs) > 0 {
		return fail(fmt.Sprintf("hard_required_nulls:%s", strings.Join(nullPairs, ",")))
	}

	return Result{IsValid: true, Reason: "ok"}
}

func fail(reason string) Result { return Result{IsValid: false, Reason: reason} }

func readRequiredColumns(path string) ([]writer.ParquetRow, error) {
	return parquet.ReadFile[writer.ParquetRow](path)
}

func missingRequiredColumns(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool)
	for _, field := range pf.Schema().Fields() {
		present[field.Name()] = true
	}
	var missing []string
	for _, c := range schema.HardRequiredColumnNames() {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

func hardRequiredNullPairs(rows []writer.ParquetRow) []string {
	// All HARD_REQUIRED fields in ParquetRow are plain (non-pointer)
	// values, so there is nothing to count today; this function exists so
	// the tenth check has a concrete home once a HARD_REQUIRED column ever
	// becomes optional at the storage layer.
	return nil
}

