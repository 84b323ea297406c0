package writer

import (
	"time"

	"github.com/minutelake/ingest/internal/schema"
)

// ParquetRow is the concrete Go struct parquet-go serializes each canonical
// minute row as. Field order matches schema.Columns; HARD_REQUIRED columns
// are plain values (never optional in the Parquet schema), everything else
// is a pointer so a nil value becomes a Parquet NULL.
type ParquetRow struct {
	Timestamp int64 `parquet:"timestamp"`

	Open  float64 `parquet:"open"`
	High  float64 `parquet:"high"`
	Low   float64 `parquet:"low"`
	Close float64 `parquet:"close"`

	VolumeBtc  float64 `parquet:"volume_btc"`
	VolumeUsdt float64 `parquet:"volume_usdt"`
	TradeCount int64   `parquet:"trade_count"`

	TakerBuyVolBtc  *float64 `parquet:"taker_buy_vol_btc,optional"`
	TakerBuyVolUsdt *float64 `parquet:"taker_buy_vol_usdt,optional"`

	Vwap1m float64 `parquet:"vwap_1m"`

	MarkPriceOpen  float64 `parquet:"mark_price_open"`
	MarkPriceHigh  float64 `parquet:"mark_price_high"`
	MarkPriceLow   float64 `parquet:"mark_price_low"`
	MarkPriceClose float64 `parquet:"mark_price_close"`

	IndexPriceOpen  float64 `parquet:"index_price_open"`
	IndexPriceHigh  float64 `parquet:"index_price_high"`
	IndexPriceLow   float64 `parquet:"index_price_low"`
	IndexPriceClose float64 `parquet:"index_price_close"`

	AggTradeCount      *int64   `parquet:"agg_trade_count,optional"`
	AggTradeVolumeBtc  *float64 `parquet:"agg_trade_volume_btc,optional"`

	LastFundingRate   *float64 `parquet:"last_funding_rate,optional"`
	NextFundingTimeMS *int64   `parquet:"next_funding_time_ms,optional"`

	PremiumIndexMarkPrice  *float64 `parquet:"premium_index_mark_price,optional"`
	PremiumIndexIndexPrice *float64 `parquet:"premium_index_index_price,optional"`
	OpenInterest           *float64 `parquet:"open_interest,optional"`

	EventTimeMS        *int64   `parquet:"event_time_ms,optional"`
	ArrivalTimeMS      *int64   `parquet:"arrival_time_ms,optional"`
	LatencyEngineMS    *int64   `parquet:"latency_engine_ms,optional"`
	LatencyNetworkMS   *int64   `parquet:"latency_network_ms,optional"`
	UpdateIDStart      *int64   `parquet:"update_id_start,optional"`
	UpdateIDEnd        *int64   `parquet:"update_id_end,optional"`
	PriceImpact100kBps *float64 `parquet:"price_impact_100k_bps,optional"`
	PredictedFundingRate *float64 `parquet:"predicted_funding_rate,optional"`
	LiveNextFundingTimeMS *int64 `parquet:"live_next_funding_time_ms,optional"`
}

func floatPtr(v any) *float64 {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func intPtr(v any) *int64 {
	i, ok := asInt(v)
	if !ok {
		return nil
	}
	return &i
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func mustFloat(v any) float64 {
	f, _ := asFloat(v)
	return f
}

func mustInt(v any) int64 {
	i, _ := asInt(v)
	return i
}

// fromRow converts a canonical schema.Row into its Parquet representation.
func fromRow(r schema.Row) ParquetRow {
	return ParquetRow{
		Timestamp:              r.Timestamp.UnixMilli(),
		Open:                   mustFloat(r.Get("open")),
		High:                   mustFloat(r.Get("high")),
		Low:                    mustFloat(r.Get("low")),
		Close:                  mustFloat(r.Get("close")),
		VolumeBtc:              mustFloat(r.Get("volume_btc")),
		VolumeUsdt:             mustFloat(r.Get("volume_usdt")),
		TradeCount:             mustInt(r.Get("trade_count")),
		TakerBuyVolBtc:         floatPtr(r.Get("taker_buy_vol_btc")),
		TakerBuyVolUsdt:        floatPtr(r.Get("taker_buy_vol_usdt")),
		Vwap1m:                 mustFloat(r.Get("vwap_1m")),
		MarkPriceOpen:          mustFloat(r.Get("mark_price_open")),
		MarkPriceHigh:          mustFloat(r.Get("mark_price_high")),
		MarkPriceLow:           mustFloat(r.Get("mark_price_low")),
		MarkPriceClose:         mustFloat(r.Get("mark_price_close")),
		IndexPriceOpen:         mustFloat(r.Get("index_price_open")),
		IndexPriceHigh:         mustFloat(r.Get("index_price_high")),
		IndexPriceLow:          mustFloat(r.Get("index_price_low")),
		IndexPriceClose:        mustFloat(r.Get("index_price_close")),
		AggTradeCount:          intPtr(r.Get("agg_trade_count")),
		AggTradeVolumeBtc:      floatPtr(r.Get("agg_trade_volume_btc")),
		LastFundingRate:        floatPtr(r.Get("last_funding_rate")),
		NextFundingTimeMS:      intPtr(r.Get("next_funding_time_ms")),
		PremiumIndexMarkPrice:  floatPtr(r.Get("premium_index_mark_price")),
		PremiumIndexIndexPrice: floatPtr(r.Get("premium_index_index_price")),
		OpenInterest:           floatPtr(r.Get("open_interest")),
		EventTimeMS:            intPtr(r.Get("event_time_ms")),
		ArrivalTimeMS:          intPtr(r.Get("arrival_time_ms")),
		LatencyEngineMS:        intPtr(r.Get("latency_engine_ms")),
		LatencyNetworkMS:       intPtr(r.Get("latency_network_ms")),
		UpdateIDStart:          intPtr(r.Get("update_id_start")),
		UpdateIDEnd:            intPtr(r.Get("update_id_end")),
		PriceImpact100kBps:     floatPtr(r.Get("price_impact_100k_bps")),
		PredictedFundingRate:   floatPtr(r.Get("predicted_funding_rate")),
		LiveNextFundingTimeMS:  intPtr(r.Get("live_next_funding_time_ms")),
	}
}

// toRow converts a stored Parquet row back into a canonical schema.Row, used
// when merging new data onto an existing partition file.
func toRow(p ParquetRow) schema.Row {
	vals := map[string]any{
		"open": p.Open, "high": p.High, "low": p.Low, "close": p.Close,
		"volume_btc": p.VolumeBtc, "volume_usdt": p.VolumeUsdt, "trade_count": p.TradeCount,
		"vwap_1m": p.Vwap1m,
		"mark_price_open": p.MarkPriceOpen, "mark_price_high": p.MarkPriceHigh,
		"mark_price_low": p.MarkPriceLow, "mark_price_close": p.MarkPriceClose,
		"index_price_open": p.IndexPriceOpen, "index_price_high": p.IndexPriceHigh,
		"index_price_low": p.IndexPriceLow, "index_price_close": p.IndexPriceClose,
	}
	setFloatIfPresent(vals, "taker_buy_vol_btc", p.TakerBuyVolBtc)
	setFloatIfPresent(vals, "taker_buy_vol_usdt", p.TakerBuyVolUsdt)
	setIntIfPresent(vals, "agg_trade_count", p.AggTradeCount)
	setFloatIfPresent(vals, "agg_trade_volume_btc", p.AggTradeVolumeBtc)
	setFloatIfPresent(vals, "last_funding_rate", p.LastFundingRate)
	setIntIfPresent(vals, "next_funding_time_ms", p.NextFundingTimeMS)
	setFloatIfPresent(vals, "premium_index_mark_price", p.PremiumIndexMarkPrice)
	setFloatIfPresent(vals, "premium_index_index_price", p.PremiumIndexIndexPrice)
	setFloatIfPresent(vals, "open_interest", p.OpenInterest)
	setIntIfPresent(vals, "event_time_ms", p.EventTimeMS)
	setIntIfPresent(vals, "arrival_time_ms", p.ArrivalTimeMS)
	setIntIfPresent(vals, "latency_engine_ms", p.LatencyEngineMS)
	setIntIfPresent(vals, "latency_network_ms", p.LatencyNetworkMS)
	setIntIfPresent(vals, "update_id_start", p.UpdateIDStart)
	setIntIfPresent(vals, "update_id_end", p.UpdateIDEnd)
	setFloatIfPresent(vals, "price_impact_100k_bps", p.PriceImpact100kBps)
	setFloatIfPresent(vals, "predicted_funding_rate", p.PredictedFundingRate)
	setIntIfPresent(vals, "live_next_funding_time_ms", p.LiveNextFundingTimeMS)

	return schema.Row{Timestamp: time.UnixMilli(p.Timestamp).UTC(), Values: vals}
}

func setFloatIfPresent(m map[string]any, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

func setIntIfPresent(m map[string]any, key string, v *int64) {
	if v != nil {
		m[key] = *v
	}
}
