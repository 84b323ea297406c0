// Package livefeed defines the optional live-collector contract for
// LIVE_ONLY canonical columns. Grounded on
// original_source/sources/websocket.py's LiveCollector protocol and
// LiveMinuteFeatures dataclass.
package livefeed

// MinuteFeatures is the live-only feature bundle for one minute. All fields
// besides TimestampMS are optional — nil means "no live collector had data
// for this minute", which the canonical frame permits for LIVE_ONLY columns.
type MinuteFeatures struct {
	TimestampMS          int64
	EventTimeMS          *int64
	ArrivalTimeMS        *int64
	LatencyEngineMS       *int64
	LatencyNetworkMS      *int64
	UpdateIDStart         *int64
	UpdateIDEnd           *int64
	PriceImpact100kBps    *float64
	PredictedFundingRate  *float64
	NextFundingTimeMS     *int64
}

// Collector is the interface the transform engine queries for LIVE_ONLY
// data. A nil Collector (or one returning nil, nil) means no live data is
// configured, matching original_source's default no-op implementation.
type Collector interface {
	SnapshotForMinute(minuteTimestampMS int64) (*MinuteFeatures, error)
}

// NoopCollector always returns (nil, nil), exactly mirroring
// original_source's base LiveCollector default method.
type NoopCollector struct{}

func (NoopCollector) SnapshotForMinute(int64) (*MinuteFeatures, error) { return nil, nil }
