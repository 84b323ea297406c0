// Package quality implements the three data-quality checks a canonical
// frame must pass before being written: canonical column coverage, timestamp
// uniqueness, and HARD_REQUIRED non-null coverage. Grounded verbatim on
// original_source/validation/dq.py's DQValidator, including its exact
// error message formats.
package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/minutelake/ingest/internal/schema"
)

// DataQualityError is the single typed error any failing check raises.
type DataQualityError struct {
	Message string
}

func (e *DataQualityError) Error() string { return e.Message }

// Result summarizes a passing validation.
type Result struct {
	RowCount int
	MinTS    int64 // unix ms
	MaxTS    int64 // unix ms
}

// Validator runs the three checks over a Frame.
type Validator struct{}

// New returns a Validator.
func New() *Validator { return &Validator{} }

// Validate runs the checks in order (columns, uniqueness, hard-required
// nulls) and returns the first failure, or a Result on success.
func (v *Validator) Validate(f *schema.Frame) (Result, error) {
	if err := validateColumns(f); err != nil {
		return Result{}, err
	}
	if err := validateUniqueTimestamps(f); err != nil {
		return Result{}, err
	}
	if err := validateHardRequiredNonNull(f); err != nil {
		return Result{}, err
	}
	minTS, maxTS, _ := f.MinMaxTimestamp()
	return Result{RowCount: f.Height(), MinTS: minTS.UnixMilli(), MaxTS: maxTS.UnixMilli()}, nil
}

func validateColumns(f *schema.Frame) error {
	present := make(map[string]bool, len(f.Columns))
	for _, c := range f.Columns {
		present[c] = true
	}
	var missing []string
	for _, c := range schema.ColumnNames() {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &DataQualityError{Message: fmt.Sprintf("Missing canonical columns: %s", strings.Join(missing, ", "))}
}

func validateUniqueTimestamps(f *schema.Frame) error {
	counts := make(map[int64]int, f.Height())
	for _, r := range f.Rows {
		counts[r.Timestamp.UnixMilli()]++
	}
	duplicates := 0
	for _, n := range counts {
		if n > 1 {
			duplicates++
		}
	}
	if duplicates == 0 {
		return nil
	}
	return &DataQualityError{Message: fmt.Sprintf("Found %d duplicated timestamp buckets", duplicates)}
}

func validateHardRequiredNonNull(f *schema.Frame) error {
	required := schema.HardRequiredColumnNames()
	nullCounts := make(map[string]int, len(required))
	for _, r := range f.Rows {
		for _, col := range required {
			if col == "timestamp" {
				// timestamp lives in Row.Timestamp, not in Values.
				if r.Timestamp.IsZero() {
					nullCounts[col]++
				}
				continue
			}
			if r.Get(col) == nil {
				nullCounts[col]++
			}
		}
	}
	var pairs []string
	for _, col := range required {
		if n := nullCounts[col]; n > 0 {
			pairs = append(pairs, fmt.Sprintf("%s=%d", col, n))
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return &DataQualityError{Message: fmt.Sprintf("HARD_REQUIRED null violations: %s", strings.Join(pairs, ","))}
}
