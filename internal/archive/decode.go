// Package archive decodes the ZIP-CSV payloads Vision archival objects
// contain into typed row sets. Grounded on the teacher's
// internal/data/cold/csv.go: open file, csv.NewReader, read/detect header,
// map columns, loop rows with per-row tolerance. Binance's own daily
// archives ship headerless CSVs with a fixed column order, so this package
// detects the optional header rather than requiring it.
package archive

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// DecodeError names which stream and row failed to decode — used for the
// one case that is NOT tolerated: a non-minute-aligned open_time.
type DecodeError struct {
	Stream   string
	RowIndex int
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("archive: %s row %d: %s", e.Stream, e.RowIndex, e.Reason)
}

// KlineRow is one decoded klines/markPriceKlines/indexPriceKlines CSV row,
// positionally: open_time,open,high,low,close,volume,close_time,quote_volume,
// count,taker_buy_volume,taker_buy_quote_volume,ignore — Binance's standard
// 12-column kline schema.
type KlineRow struct {
	OpenTimeMS        int64
	Open, High, Low, Close float64
	Volume            float64
	QuoteVolume       float64
	TradeCount        int64
	TakerBuyVolume    float64
	TakerBuyQuoteVolume float64
}

// AggTradeRow is one decoded aggTrades CSV row: agg_trade_id,price,quantity,
// first_trade_id,last_trade_id,transact_time,is_buyer_maker.
type AggTradeRow struct {
	TransactTimeMS int64
	Price          float64
	Quantity       float64
}

// MetricsRow is one decoded metrics CSV row: create_time,symbol,
// sum_open_interest,sum_open_interest_value,...
type MetricsRow struct {
	CreateTimeMS    int64
	OpenInterest    float64
}

func openFirstCSVInZip(zipPath string) (*zip.ReadCloser, io.ReadCloser, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	for _, f := range zr.File {
		if len(f.Name) > 4 && f.Name[len(f.Name)-4:] == ".csv" {
			rc, err := f.Open()
			if err != nil {
				zr.Close()
				return nil, nil, fmt.Errorf("open csv entry %s: %w", f.Name, err)
			}
			return zr, rc, nil
		}
	}
	zr.Close()
	return nil, nil, nil // empty archive: caller treats as zero rows, not an error
}

// looksLikeHeader reports whether the first CSV record is a header row
// (its first cell fails to parse as an integer epoch-ms timestamp).
func looksLikeHeader(firstCell string) bool {
	_, err := strconv.ParseInt(firstCell, 10, 64)
	return err != nil
}

func readAllRecords(r io.Reader) ([][]string, bool, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate extra trailing columns
	records, err := cr.ReadAll()
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return records, false, nil
	}
	hasHeader := looksLikeHeader(records[0][0])
	if hasHeader {
		records = records[1:]
	}
	return records, hasHeader, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func requireMinuteAligned(stream string, rowIndex int, epochMS int64) error {
	if epochMS%int64(time.Minute/time.Millisecond) != 0 {
		return &DecodeError{Stream: stream, RowIndex: rowIndex, Reason: fmt.Sprintf("open_time %d is not minute-aligned", epochMS)}
	}
	return nil
}

// decodeKlineStream is shared by klines/markPriceKlines/indexPriceKlines —
// they share Binance's 12-column kline CSV schema.
func decodeKlineStream(zipPath, streamName string) ([]KlineRow, error) {
	zr, rc, err := openFirstCSVInZip(zipPath)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}
	defer zr.Close()
	defer rc.Close()

	records, _, err := readAllRecords(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: read csv: %w", streamName, err)
	}

	rows := make([]KlineRow, 0, len(records))
	for i, rec := range records {
		if len(rec) < 11 {
			continue // tolerate short/malformed rows rather than failing the whole archive
		}
		openTime := parseInt(rec[0])
		if err := requireMinuteAligned(streamName, i, openTime); err != nil {
			return nil, err
		}
		rows = append(rows, KlineRow{
			OpenTimeMS:          openTime,
			Open:                parseFloat(rec[1]),
			High:                parseFloat(rec[2]),
			Low:                 parseFloat(rec[3]),
			Close:               parseFloat(rec[4]),
			Volume:              parseFloat(rec[5]),
			QuoteVolume:         parseFloat(rec[7]),
			TradeCount:          parseInt(rec[8]),
			TakerBuyVolume:      parseFloat(rec[9]),
			TakerBuyQuoteVolume: parseFloat(rec[10]),
		})
	}
	return rows, nil
}

// DecodeKlines decodes a klines daily archive.
func DecodeKlines(zipPath string) ([]KlineRow, error) { return decodeKlineStream(zipPath, "klines") }

// DecodeMarkPriceKlines decodes a markPriceKlines daily archive.
func DecodeMarkPriceKlines(zipPath string) ([]KlineRow, error) {
	return decodeKlineStream(zipPath, "markPriceKlines")
}

// DecodeIndexPriceKlines decodes an indexPriceKlines daily archive.
func DecodeIndexPriceKlines(zipPath string) ([]KlineRow, error) {
	return decodeKlineStream(zipPath, "indexPriceKlines")
}

// DecodeAggTrades decodes an aggTrades daily archive.
func DecodeAggTrades(zipPath string) ([]AggTradeRow, error) {
	zr, rc, err := openFirstCSVInZip(zipPath)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}
	defer zr.Close()
	defer rc.Close()

	records, _, err := readAllRecords(rc)
	if err != nil {
		return nil, fmt.Errorf("aggTrades: read csv: %w", err)
	}
	rows := make([]AggTradeRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 6 {
			continue
		}
		rows = append(rows, AggTradeRow{
			Price:          parseFloat(rec[1]),
			Quantity:       parseFloat(rec[2]),
			TransactTimeMS: parseInt(rec[5]),
		})
	}
	return rows, nil
}

// DecodeMetrics decodes a metrics daily archive.
func DecodeMetrics(zipPath string) ([]MetricsRow, error) {
	zr, rc, err := openFirstCSVInZip(zipPath)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}
	defer zr.Close()
	defer rc.Close()

	records, _, err := readAllRecords(rc)
	if err != nil {
		return nil, fmt.Errorf("metrics: read csv: %w", err)
	}
	rows := make([]MetricsRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < 3 {
			continue
		}
		rows = append(rows, MetricsRow{
			CreateTimeMS: parseInt(rec[0]),
			OpenInterest: parseFloat(rec[2]),
		})
	}
	return rows, nil
}
