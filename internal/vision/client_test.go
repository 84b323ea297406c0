package vision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildDailyZipURLKlines(t *testing.T) {
	c := New(DefaultConfig("https://data.binance.vision"))
	got, err := c.BuildDailyZipURL(StreamKlines, "BTCUSDT", "2026-01-15", "1m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://data.binance.vision/data/futures/um/daily/klines/BTCUSDT/1m/BTCUSDT-1m-2026-01-15.zip"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestBuildDailyZipURLMetrics(t *testing.T) {
	c := New(DefaultConfig("https://data.binance.vision"))
	got, err := c.BuildDailyZipURL(StreamMetrics, "BTCUSDT", "2026-01-15", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://data.binance.vision/data/futures/um/daily/metrics/BTCUSDT/BTCUSDT-metrics-2026-01-15.zip"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestBuildDailyZipURLUnsupportedStream(t *testing.T) {
	c := New(DefaultConfig("https://data.binance.vision"))
	if _, err := c.BuildDailyZipURL(Stream("not-a-stream"), "BTCUSDT", "2026-01-15", ""); err == nil {
		t.Fatal("expected error for unsupported stream")
	}
}

func TestBuildDailyZipURLMissingInterval(t *testing.T) {
	c := New(DefaultConfig("https://data.binance.vision"))
	if _, err := c.BuildDailyZipURL(StreamKlines, "BTCUSDT", "2026-01-15", ""); err == nil {
		t.Fatal("expected error for missing interval on an interval stream")
	}
}

func TestExistsHeadOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL))
	ok, err := c.Exists(context.Background(), srv.URL+"/object.zip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected exists true")
	}
}

func TestExistsFallsBackToRangeGetOn403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Range") == "bytes=0-0" {
			w.WriteHeader(http.StatusPartialContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL))
	ok, err := c.Exists(context.Background(), srv.URL+"/object.zip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected exists true via range fallback")
	}
}

func TestDownloadZipAtomicRename(t *testing.T) {
	body := []byte("zip-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.zip")
	c := New(DefaultConfig(srv.URL))
	if err := c.DownloadZip(context.Background(), srv.URL+"/object.zip", dest); err != nil {
		t.Fatalf("download: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("got %q want %q", got, body)
	}
	entries, _ := os.ReadDir(filepath.Dir(dest))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("expected no leftover temp file, found %s", e.Name())
		}
	}
}
