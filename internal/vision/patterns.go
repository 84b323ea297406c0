package vision

import "fmt"

// Stream names the Binance Vision archival family this client can resolve.
// The set is closed and immutable — spec.md §9 design note calls for the
// mapping to live as a fixed registry, not something pattern-matched or
// guessed from input.
type Stream string

const (
	StreamKlines             Stream = "klines"
	StreamAggTrades          Stream = "aggTrades"
	StreamBookTicker         Stream = "bookTicker"
	StreamBookDepth          Stream = "bookDepth"
	StreamMarkPriceKlines    Stream = "markPriceKlines"
	StreamIndexPriceKlines   Stream = "indexPriceKlines"
	StreamPremiumIndexKlines Stream = "premiumIndexKlines"
	StreamMetrics            Stream = "metrics"
	StreamTrades             Stream = "trades"
)

// pattern holds the folder/file template for one stream, with {symbol},
// {interval}, {date} placeholders — grounded exactly on
// original_source/sources/vision.py's `_STREAM_TO_PATTERN`.
type pattern struct {
	folder string
	file   string
}

var streamPatterns = map[Stream]pattern{
	StreamKlines:             {"data/futures/um/daily/klines/{symbol}/{interval}", "{symbol}-{interval}-{date}.zip"},
	StreamAggTrades:          {"data/futures/um/daily/aggTrades/{symbol}", "{symbol}-aggTrades-{date}.zip"},
	StreamBookTicker:         {"data/futures/um/daily/bookTicker/{symbol}", "{symbol}-bookTicker-{date}.zip"},
	StreamBookDepth:          {"data/futures/um/daily/bookDepth/{symbol}", "{symbol}-bookDepth-{date}.zip"},
	StreamMarkPriceKlines:    {"data/futures/um/daily/markPriceKlines/{symbol}/{interval}", "{symbol}-markPriceKlines-{interval}-{date}.zip"},
	StreamIndexPriceKlines:   {"data/futures/um/daily/indexPriceKlines/{symbol}/{interval}", "{symbol}-indexPriceKlines-{interval}-{date}.zip"},
	StreamPremiumIndexKlines: {"data/futures/um/daily/premiumIndexKlines/{symbol}/{interval}", "{symbol}-premiumIndexKlines-{interval}-{date}.zip"},
	StreamMetrics:            {"data/futures/um/daily/metrics/{symbol}", "{symbol}-metrics-{date}.zip"},
	StreamTrades:             {"data/futures/um/daily/trades/{symbol}", "{symbol}-trades-{date}.zip"},
}

// intervalStreams requires an interval (e.g. "1m") to resolve a path.
var intervalStreams = map[Stream]bool{
	StreamKlines:             true,
	StreamMarkPriceKlines:    true,
	StreamIndexPriceKlines:   true,
	StreamPremiumIndexKlines: true,
}

// RequiresInterval reports whether stream needs a non-empty interval to
// build a path.
func RequiresInterval(s Stream) bool { return intervalStreams[s] }

// ErrUnsupportedStream names the failure when Stream isn't in the closed
// registry above.
type ErrUnsupportedStream struct {
	Stream    Stream
	Supported []Stream
}

func (e ErrUnsupportedStream) Error() string {
	return fmt.Sprintf("unsupported vision stream %q (supported: %v)", e.Stream, e.Supported)
}

// ErrObjectNotFound names the failure when a probed archival object does
// not exist at the expected URL (Exists returned false), matching
// spec.md §7's archive-fetch error taxonomy entry.
type ErrObjectNotFound struct {
	URL string
}

func (e ErrObjectNotFound) Error() string {
	return fmt.Sprintf("vision: object not found at %s", e.URL)
}

func lookupPattern(s Stream) (pattern, error) {
	p, ok := streamPatterns[s]
	if !ok {
		supported := make([]Stream, 0, len(streamPatterns))
		for k := range streamPatterns {
			supported = append(supported, k)
		}
		return pattern{}, ErrUnsupportedStream{Stream: s, Supported: supported}
	}
	return p, nil
}
