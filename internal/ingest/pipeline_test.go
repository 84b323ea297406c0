package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/minutelake/ingest/internal/config"
)

// klineTuple renders one row in Binance's tuple-shaped `/fapi/v1/klines`
// wire format: [openTime, open, high, low, close, volume, closeTime,
// quoteVolume, tradeCount, takerBuyVolume, takerBuyQuoteVolume, ignore].
func klineTuple(openTimeMS int64) string {
	return fmt.Sprintf(`[%d,"1.0","1.0","1.0","1.0","1.0",0,"2.0",10,"0.5","1.0","0"]`, openTimeMS)
}

// restFakeServer serves the three live REST endpoints fetchAndTransform
// calls for a HOT/WARM-fallback hour: klines (controlled by klineMinutesMS,
// simulating which minutes Binance has published so far), premiumIndex, and
// openInterest.
func restFakeServer(t *testing.T, klineMinutesMS []int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/klines":
			w.Header().Set("Content-Type", "application/json")
			body := "["
			for i, ms := range klineMinutesMS {
				if i > 0 {
					body += ","
				}
				body += klineTuple(ms)
			}
			body += "]"
			_, _ = w.Write([]byte(body))
		case "/fapi/v1/premiumIndex":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"markPrice":"100.0","indexPrice":"99.5","lastFundingRate":"0.0001","nextFundingTime":0,"predictedFundingRate":"0.0002","time":0}`))
		case "/fapi/v1/openInterest":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","openInterest":"1234.5","time":0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testSettings(t *testing.T, restBaseURL string) config.Settings {
	t.Helper()
	dir := t.TempDir()
	return config.Settings{
		Symbol:                   "BTCUSDT",
		RootDir:                  dir,
		StateDB:                  filepath.Join(dir, "ledger.db"),
		VisionBaseURL:            "http://127.0.0.1:1", // never dialed for a pure-HOT hour
		RESTBaseURL:              restBaseURL,
		SafetyLagMinutes:         1,
		BootstrapLookbackMinutes: 3,
		WarmDays:                 2,
		MaxFfillMinutes:          60,
		RESTRetries:              0,
		LogLevel:                 "console",
	}
}

func TestRunOnceCommitsHotHourTruncatingUnpublishedTrailingMinutes(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 5, 0, 0, time.UTC)
	// target = floor(now - 1m) = 10:04; windowStart = target - 3m = 10:01.
	// Same hour (10:00) on both ends, so exactly one HOT hour is processed,
	// covering minutes 10:02, 10:03, 10:04.
	target := now.Add(-time.Minute)
	windowMinute1 := target.Add(-2 * time.Minute).UnixMilli()
	windowMinute2 := target.Add(-1 * time.Minute).UnixMilli()
	// windowMinute3 (target itself) is deliberately NOT published yet.

	srv := restFakeServer(t, []int64{windowMinute1, windowMinute2})
	defer srv.Close()

	pipeline, err := New(testSettings(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	defer pipeline.Close()

	summary, err := pipeline.RunOnce(context.Background(), &now, nil)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(summary.Failures) != 0 {
		t.Fatalf("expected no failures, got %+v", summary.Failures)
	}
	if summary.PartitionsCommitted != 1 {
		t.Fatalf("expected 1 partition committed (HOT hour with latest REST klines), got %d", summary.PartitionsCommitted)
	}
	if summary.WatermarkAfter == nil {
		t.Fatalf("expected watermark to advance past the committed minutes")
	}
	if !summary.WatermarkAfter.Equal(target.Add(-time.Minute)) {
		t.Fatalf("expected watermark at the last published minute %s, got %s", target.Add(-time.Minute), summary.WatermarkAfter)
	}
}

func TestRunOnceRecordsFailureWhenKlinesFetchErrors(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 5, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pipeline, err := New(testSettings(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	defer pipeline.Close()

	summary, err := pipeline.RunOnce(context.Background(), &now, nil)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected exactly 1 recorded hour failure, got %+v", summary.Failures)
	}
	if summary.WatermarkAfter != nil {
		t.Fatalf("expected watermark to stay unset with nothing committed, got %v", summary.WatermarkAfter)
	}
	if summary.PartitionsCommitted != 0 {
		t.Fatalf("expected 0 partitions committed, got %d", summary.PartitionsCommitted)
	}
}

func TestRunOnceSkipsHourWithNoPublishedMinutesWithoutFailing(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 5, 0, 0, time.UTC)
	srv := restFakeServer(t, nil) // no klines published for this window at all
	defer srv.Close()

	pipeline, err := New(testSettings(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	defer pipeline.Close()

	summary, err := pipeline.RunOnce(context.Background(), &now, nil)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(summary.Failures) != 0 {
		t.Fatalf("expected no failures for a not-yet-published hour, got %+v", summary.Failures)
	}
	if summary.PartitionsCommitted != 0 {
		t.Fatalf("expected nothing committed, got %d", summary.PartitionsCommitted)
	}
	if summary.WatermarkAfter != nil {
		t.Fatalf("expected watermark to stay unset, got %v", summary.WatermarkAfter)
	}
}
