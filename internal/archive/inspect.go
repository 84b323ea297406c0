package archive

import (
	"encoding/csv"
	"fmt"
)

// ListColumns opens zipPath, finds the first .csv entry, and returns its
// header row — grounded on
// original_source/sources/metrics_inspector.py's MetricsZipInspector.
// Unlike the decoders in decode.go, this reports an error if the first row
// doesn't look like a header, since its entire purpose is inspecting
// column names for an operator.
func ListColumns(zipPath string) ([]string, error) {
	zr, rc, err := openFirstCSVInZip(zipPath)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("no csv entry found in %s", zipPath)
	}
	defer zr.Close()
	defer rc.Close()

	cr := csv.NewReader(rc)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header from %s: %w", zipPath, err)
	}
	if !looksLikeHeader(header[0]) {
		return nil, fmt.Errorf("first row of %s is data, not a header", zipPath)
	}
	return header, nil
}
