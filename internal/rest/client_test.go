package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchPremiumIndexRetriesOn429ThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"markPrice":"100.0","indexPrice":"99.0","lastFundingRate":"0.0001","nextFundingTime":0,"predictedFundingRate":"0.0002","time":123}`))
	}))
	defer srv.Close()

	c := New(DefaultConfig(srv.URL))
	got, err := c.FetchPremiumIndex(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MarkPrice != 100.0 || got.IndexPrice != 99.0 || got.PredictedFundingRate != 0.0002 {
		t.Fatalf("unexpected normalized values: %+v", got)
	}
	if c.CallCount != 3 {
		t.Fatalf("expected 3 calls, got %d", c.CallCount)
	}
}

func TestFetchOpenInterestDoesNotRetryOn400(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1100,"msg":"bad symbol"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.Retries = 5
	c := New(cfg)
	_, err := c.FetchOpenInterest(context.Background(), "BTCUSDT")
	if err == nil {
		t.Fatal("expected error")
	}
	if c.CallCount != 1 {
		t.Fatalf("expected exactly 1 call (no retry on 400), got %d", c.CallCount)
	}
	var httpErr *HTTPError
	if !asHTTPError(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", httpErr.StatusCode)
	}
}

func asHTTPError(err error, target **HTTPError) bool {
	if e, ok := err.(*HTTPError); ok {
		*target = e
		return true
	}
	return false
}
