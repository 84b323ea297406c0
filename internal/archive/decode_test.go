package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZipWithCSV(t *testing.T, name, csvContent string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(name + ".csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(csvContent)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeKlinesHeaderless(t *testing.T) {
	csvContent := "1705312800000,100,101,99,100.5,2,1705312859999,200000,20,1,100000,0\n"
	path := writeZipWithCSV(t, "klines", csvContent)
	rows, err := DecodeKlines(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Open != 100 || rows[0].TradeCount != 20 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestDecodeKlinesToleratesHeaderRow(t *testing.T) {
	csvContent := "open_time,open,high,low,close,volume,close_time,quote_volume,count,taker_buy_volume,taker_buy_quote_volume,ignore\n" +
		"1705312800000,100,101,99,100.5,2,1705312859999,200000,20,1,100000,0\n"
	path := writeZipWithCSV(t, "klines", csvContent)
	rows, err := DecodeKlines(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestDecodeKlinesRejectsNonMinuteAligned(t *testing.T) {
	csvContent := "1705312800500,100,101,99,100.5,2,1705312859999,200000,20,1,100000,0\n"
	path := writeZipWithCSV(t, "klines", csvContent)
	_, err := DecodeKlines(path)
	if err == nil {
		t.Fatal("expected error for non-minute-aligned open_time")
	}
	de, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.RowIndex != 0 || de.Stream != "klines" {
		t.Fatalf("unexpected decode error: %+v", de)
	}
}

func TestDecodeEmptyArchiveIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	rows, err := DecodeKlines(path)
	if err != nil {
		t.Fatalf("expected no error for empty archive, got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected zero rows, got %d", len(rows))
	}
}

func TestDecodeAggTrades(t *testing.T) {
	csvContent := "1,100.0,0.5,1,1,1705312830000,false\n"
	path := writeZipWithCSV(t, "aggTrades", csvContent)
	rows, err := DecodeAggTrades(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Quantity != 0.5 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
