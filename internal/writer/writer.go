// Package writer is the atomic partition writer: merge-on-exists,
// DQ-validate, stage-then-rename, hash, and ledger commit as one unit.
// Grounded on original_source/writer/atomic.py's AtomicParquetWriter for
// the algorithm, and on
// out/review/stage_20250906_135049/internal/atomicio/atomicio.go for the
// temp-then-rename Go idiom. Real Parquet output (zstd + column
// statistics) replaces the teacher's own CSV-pretending-to-be-Parquet
// bridge (internal/data/cold/parquet_store.go), per DESIGN.md.
package writer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/minutelake/ingest/internal/quality"
	"github.com/minutelake/ingest/internal/schema"
	"github.com/minutelake/ingest/internal/state"
)

// Writer owns the lake root directory and commits partitions through
// state.Store.
type Writer struct {
	rootDir   string
	store     *state.Store
	validator *quality.Validator
}

// New builds a Writer rooted at rootDir, committing through store.
func New(rootDir string, store *state.Store) *Writer {
	return &Writer{rootDir: rootDir, store: store, validator: quality.New()}
}

// PartitionPath computes the deterministic hive-style path for
// (symbol, hourStart), matching spec.md §3's layout exactly:
// <root>/futures/um/minute/symbol=<SYM>/year=YYYY/month=MM/day=DD/hour=HH/part.parquet
func (w *Writer) PartitionPath(symbol string, hourStart time.Time) string {
	h := hourStart.UTC()
	return filepath.Join(
		w.rootDir, "futures", "um", "minute",
		fmt.Sprintf("symbol=%s", symbol),
		fmt.Sprintf("year=%04d", h.Year()),
		fmt.Sprintf("month=%02d", h.Month()),
		fmt.Sprintf("day=%02d", h.Day()),
		fmt.Sprintf("hour=%02d", h.Hour()),
		"part.parquet",
	)
}

// WriteHourPartition writes (merging with any existing partition file) the
// canonical frame for one hour, validates it, commits it atomically, and
// upserts the ledger entry. Returns the final path on success.
func (w *Writer) WriteHourPartition(ctx context.Context, symbol string, hourStart time.Time, frame *schema.Frame) (string, error) {
	finalPath := w.PartitionPath(symbol, hourStart)

	merged := frame.Reproject()
	if existing, err := readExistingPartition(finalPath); err == nil && existing != nil {
		merged = schema.DedupeKeepLast(existing, merged)
	} else if err != nil {
		return "", fmt.Errorf("read existing partition %s: %w", finalPath, err)
	}

	if _, err := w.validator.Validate(merged); err != nil {
		return "", fmt.Errorf("write hour partition %s/%s: %w", symbol, hourStart.Format(time.RFC3339), err)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir partition dir: %w", err)
	}
	tmpDir := filepath.Join(w.rootDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir tmp dir: %w", err)
	}
	tmpPath := filepath.Join(tmpDir, uuid.NewString()+".parquet")

	if err := writeParquet(tmpPath, merged); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename %s -> %s: %w", tmpPath, finalPath, err)
	}

	contentHash, err := hashFile(finalPath)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", finalPath, err)
	}
	schemaHash := hashString(schema.SchemaHashInput())
	minTS, maxTS, _ := merged.MinMaxTimestamp()

	entry := state.PartitionEntry{
		Symbol:      symbol,
		Day:         hourStart.UTC().Format("2006-01-02"),
		Hour:        hourStart.UTC().Hour(),
		Path:        finalPath,
		RowCount:    merged.Height(),
		MinTS:       minTS,
		MaxTS:       maxTS,
		SchemaHash:  schemaHash,
		ContentHash: contentHash,
		Status:      schema.StatusCommitted,
		CommittedAt: time.Now().UTC(),
	}
	if err := w.store.UpsertPartition(ctx, entry); err != nil {
		return "", fmt.Errorf("upsert partition ledger: %w", err)
	}

	log.Info().Str("symbol", symbol).Str("path", finalPath).Int("rows", merged.Height()).Msg("partition committed")
	return finalPath, nil
}

func writeParquet(path string, f *schema.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	rows := make([]ParquetRow, len(f.Rows))
	for i, r := range f.Rows {
		rows[i] = fromRow(r)
	}

	pw := parquet.NewGenericWriter[ParquetRow](file, parquet.Compression(&zstd.Codec{}))
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}

func readExistingPartition(path string) (*schema.Frame, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := parquet.ReadFile[ParquetRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Row, len(rows))
	for i, r := range rows {
		out[i] = toRow(r)
	}
	return schema.NewFrame(out), nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// hashFile streams the file in 1 MiB chunks, matching original_source's
// `while chunk := handle.read(1024*1024)` loop exactly.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 1024*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
