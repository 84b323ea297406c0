// Package transform builds the canonical per-minute Frame by joining
// heterogeneous, independently-sampled sources onto a dense minute grid.
// There is no original_source/transform_engine.py (only its test survived
// distillation), so the join order and bounded-forward-fill mechanics here
// are designed directly from spec.md §4.6 and
// original_source/tests/test_transform_engine.py's fixture shapes, in the
// idiom of the teacher's columnar join code
// (internal/data/cold/parquet_store.go's envelope-to-row mapping).
package transform

import (
	"time"

	"github.com/minutelake/ingest/internal/archive"
	"github.com/minutelake/ingest/internal/livefeed"
	"github.com/minutelake/ingest/internal/schema"
)

// FundingRate is one funding-rate observation, keyed by the minute its
// fundingTime falls in.
type FundingRate struct {
	FundingTimeMS     int64
	LastFundingRate   float64
	NextFundingTimeMS int64
}

// PremiumIndexSnapshot optionally supplies premium-index/open-interest
// fields for a minute, sourced from the REST client rather than archives.
type PremiumIndexSnapshot struct {
	MinuteMS     int64
	MarkPrice    float64
	IndexPrice   float64
	OpenInterest *float64
}

// BuildInput bundles every source the engine joins.
type BuildInput struct {
	StartMinute, EndMinute int64 // inclusive, epoch ms, minute-aligned
	MaxFfillMinutes        int

	Klines           []archive.KlineRow
	MarkPriceKlines  []archive.KlineRow
	IndexPriceKlines []archive.KlineRow
	AggTrades        []archive.AggTradeRow
	FundingRates     []FundingRate
	PremiumIndex     []PremiumIndexSnapshot
	LiveCollector    livefeed.Collector
}

// Engine builds canonical frames with a configured forward-fill bound.
type Engine struct {
	MaxFfillMinutes int
}

// New builds an Engine. maxFfillMinutes <= 0 defaults to 60, matching
// spec.md §6's Configuration default.
func New(maxFfillMinutes int) *Engine {
	if maxFfillMinutes <= 0 {
		maxFfillMinutes = 60
	}
	return &Engine{MaxFfillMinutes: maxFfillMinutes}
}

// BuildCanonicalFrame joins in.Klines (the spine) with mark/index (bounded
// forward-fill), aggTrades (per-minute sum/count), funding (direct minute
// join), premium-index/open-interest (direct minute join), and an optional
// live collector, emitting one row per minute in [StartMinute, EndMinute] —
// except for a trailing run of minutes with no kline row yet, which is
// truncated from the output instead of emitted with missing OHLC.
func (e *Engine) BuildCanonicalFrame(in BuildInput) *schema.Frame {
	minutes := denseMinutesMS(in.StartMinute, in.EndMinute)

	klineByMinute := indexKlines(in.Klines)
	minutes = truncateTrailingMissingKlines(minutes, klineByMinute)

	markByMinute := indexKlines(in.MarkPriceKlines)
	indexByMinute := indexKlines(in.IndexPriceKlines)
	aggByMinute := indexAggTrades(in.AggTrades)
	fundingByMinute := indexFunding(in.FundingRates)
	premiumByMinute := indexPremium(in.PremiumIndex)

	ffillLimit := e.MaxFfillMinutes
	if ffillLimit <= 0 {
		ffillLimit = 60
	}

	var lastMark, lastIndex *archive.KlineRow
	var lastMarkAgeMinutes, lastIndexAgeMinutes int

	rows := make([]schema.Row, 0, len(minutes))
	for _, minute := range minutes {
		values := map[string]any{}

		if k, ok := klineByMinute[minute]; ok {
			values["open"] = k.Open
			values["high"] = k.High
			values["low"] = k.Low
			values["close"] = k.Close
			values["volume_btc"] = k.Volume
			values["volume_usdt"] = k.QuoteVolume
			values["trade_count"] = k.TradeCount
			values["taker_buy_vol_btc"] = k.TakerBuyVolume
			values["taker_buy_vol_usdt"] = k.TakerBuyQuoteVolume
			values["vwap_1m"] = vwap1m(k.QuoteVolume, k.Volume, k.Close)
		}

		if m, ok := markByMinute[minute]; ok {
			lastMark = &m
			lastMarkAgeMinutes = 0
		} else if lastMark != nil {
			lastMarkAgeMinutes++
		}
		if lastMark != nil && lastMarkAgeMinutes <= ffillLimit {
			values["mark_price_open"] = lastMark.Open
			values["mark_price_high"] = lastMark.High
			values["mark_price_low"] = lastMark.Low
			values["mark_price_close"] = lastMark.Close
		}

		if idx, ok := indexByMinute[minute]; ok {
			lastIndex = &idx
			lastIndexAgeMinutes = 0
		} else if lastIndex != nil {
			lastIndexAgeMinutes++
		}
		if lastIndex != nil && lastIndexAgeMinutes <= ffillLimit {
			values["index_price_open"] = lastIndex.Open
			values["index_price_high"] = lastIndex.High
			values["index_price_low"] = lastIndex.Low
			values["index_price_close"] = lastIndex.Close
		}

		if agg, ok := aggByMinute[minute]; ok {
			values["agg_trade_count"] = agg.count
			values["agg_trade_volume_btc"] = agg.volume
		}

		if fr, ok := fundingByMinute[minute]; ok {
			values["last_funding_rate"] = fr.LastFundingRate
			values["next_funding_time_ms"] = fr.NextFundingTimeMS
		}

		if pi, ok := premiumByMinute[minute]; ok {
			values["premium_index_mark_price"] = pi.MarkPrice
			values["premium_index_index_price"] = pi.IndexPrice
			if pi.OpenInterest != nil {
				values["open_interest"] = *pi.OpenInterest
			}
		}

		if in.LiveCollector != nil {
			if lf, err := in.LiveCollector.SnapshotForMinute(minute); err == nil && lf != nil {
				applyLiveFeatures(values, lf)
			}
		}

		rows = append(rows, schema.Row{Timestamp: epochMSToTime(minute), Values: values})
	}

	return schema.NewFrame(rows).Reproject()
}

// vwap1m implements spec.md §8 S8's formula:
// volume_usdt/volume_btc when volume_btc>0, else close.
func vwap1m(volumeUsdt, volumeBtc, close float64) float64 {
	if volumeBtc > 0 {
		return volumeUsdt / volumeBtc
	}
	return close
}

func applyLiveFeatures(values map[string]any, lf *livefeed.MinuteFeatures) {
	setIfNotNilInt(values, "event_time_ms", lf.EventTimeMS)
	setIfNotNilInt(values, "arrival_time_ms", lf.ArrivalTimeMS)
	setIfNotNilInt(values, "latency_engine_ms", lf.LatencyEngineMS)
	setIfNotNilInt(values, "latency_network_ms", lf.LatencyNetworkMS)
	setIfNotNilInt(values, "update_id_start", lf.UpdateIDStart)
	setIfNotNilInt(values, "update_id_end", lf.UpdateIDEnd)
	setIfNotNilFloat(values, "price_impact_100k_bps", lf.PriceImpact100kBps)
	setIfNotNilFloat(values, "predicted_funding_rate", lf.PredictedFundingRate)
	setIfNotNilInt(values, "live_next_funding_time_ms", lf.NextFundingTimeMS)
}

func setIfNotNilInt(values map[string]any, key string, v *int64) {
	if v != nil {
		values[key] = *v
	}
}

func setIfNotNilFloat(values map[string]any, key string, v *float64) {
	if v != nil {
		values[key] = *v
	}
}

// truncateTrailingMissingKlines drops the trailing run of minutes that have
// no kline row, per spec.md §4.5: for a still-forming hour, trailing missing
// minutes are truncated from the output rather than treated as a hard
// failure. A gap earlier in the grid is left in place, surfacing as a
// HARD_REQUIRED null violation, since only the *closing* edge of a partial
// hour is expected to be incomplete.
func truncateTrailingMissingKlines(minutes []int64, klineByMinute map[int64]archive.KlineRow) []int64 {
	cut := len(minutes)
	for cut > 0 {
		if _, ok := klineByMinute[minutes[cut-1]]; ok {
			break
		}
		cut--
	}
	return minutes[:cut]
}

func denseMinutesMS(startMS, endMS int64) []int64 {
	out := make([]int64, 0, (endMS-startMS)/60000+1)
	for m := startMS; m <= endMS; m += 60000 {
		out = append(out, m)
	}
	return out
}

func indexKlines(rows []archive.KlineRow) map[int64]archive.KlineRow {
	out := make(map[int64]archive.KlineRow, len(rows))
	for _, r := range rows {
		out[r.OpenTimeMS] = r
	}
	return out
}

type aggBucket struct {
	count  int64
	volume float64
}

func indexAggTrades(rows []archive.AggTradeRow) map[int64]aggBucket {
	out := make(map[int64]aggBucket)
	for _, r := range rows {
		minute := r.TransactTimeMS - r.TransactTimeMS%60000
		b := out[minute]
		b.count++
		b.volume += r.Quantity
		out[minute] = b
	}
	return out
}

func indexFunding(rows []FundingRate) map[int64]FundingRate {
	out := make(map[int64]FundingRate, len(rows))
	for _, r := range rows {
		minute := r.FundingTimeMS - r.FundingTimeMS%60000
		out[minute] = r
	}
	return out
}

func indexPremium(rows []PremiumIndexSnapshot) map[int64]PremiumIndexSnapshot {
	out := make(map[int64]PremiumIndexSnapshot, len(rows))
	for _, r := range rows {
		out[r.MinuteMS] = r
	}
	return out
}

func epochMSToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
