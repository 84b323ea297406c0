package rest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/minutelake/ingest/internal/archive"
)

// decimalString unmarshals Binance's string-encoded decimals ("100.0") into
// a float64, matching original_source/tests/test_rest_client.py's expectation
// that `mark_price == 100.0` as a float after normalization.
type decimalString float64

func (d *decimalString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*d = decimalString(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*d = decimalString(f)
	return nil
}

// premiumIndexWire is the raw Binance `/fapi/v1/premiumIndex` response shape.
type premiumIndexWire struct {
	Symbol                string        `json:"symbol"`
	MarkPrice             decimalString `json:"markPrice"`
	IndexPrice            decimalString `json:"indexPrice"`
	EstimatedSettlePrice  decimalString `json:"estimatedSettlePrice"`
	LastFundingRate       decimalString `json:"lastFundingRate"`
	NextFundingTime       int64         `json:"nextFundingTime"`
	InterestRate          decimalString `json:"interestRate"`
	PredictedFundingRate  decimalString `json:"predictedFundingRate"`
	Time                  int64         `json:"time"`
}

// PremiumIndex is the normalized (snake_case-equivalent) result, mirroring
// the dict keys asserted on in test_rest_client.py: mark_price, index_price,
// predicted_funding.
type PremiumIndex struct {
	Symbol                string
	MarkPrice             float64
	IndexPrice            float64
	LastFundingRate       float64
	NextFundingTimeMS     int64
	PredictedFundingRate  float64
	TimeMS                int64
}

func (w premiumIndexWire) normalize() PremiumIndex {
	return PremiumIndex{
		Symbol:               w.Symbol,
		MarkPrice:            float64(w.MarkPrice),
		IndexPrice:           float64(w.IndexPrice),
		LastFundingRate:      float64(w.LastFundingRate),
		NextFundingTimeMS:    w.NextFundingTime,
		PredictedFundingRate: float64(w.PredictedFundingRate),
		TimeMS:               w.Time,
	}
}

type openInterestWire struct {
	Symbol       string        `json:"symbol"`
	OpenInterest decimalString `json:"openInterest"`
	Time         int64         `json:"time"`
}

// OpenInterest is the normalized `/fapi/v1/openInterest` result.
type OpenInterest struct {
	Symbol       string
	OpenInterest float64
	TimeMS       int64
}

func (w openInterestWire) normalize() OpenInterest {
	return OpenInterest{Symbol: w.Symbol, OpenInterest: float64(w.OpenInterest), TimeMS: w.Time}
}

// klineWireRow decodes one row of `/fapi/v1/klines`, which Binance returns
// as a tuple-shaped JSON array rather than an object:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume,
//  tradeCount, takerBuyVolume, takerBuyQuoteVolume, ignore].
type klineWireRow archive.KlineRow

func (k *klineWireRow) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 9 {
		return fmt.Errorf("kline row: expected at least 9 fields, got %d", len(raw))
	}

	var openTimeMS, tradeCount int64
	var open, high, low, close, volume, quoteVolume, takerBuyVolume, takerBuyQuoteVolume decimalString
	if err := json.Unmarshal(raw[0], &openTimeMS); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &open); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[2], &high); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[3], &low); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[4], &close); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[5], &volume); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[7], &quoteVolume); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[8], &tradeCount); err != nil {
		return err
	}
	if len(raw) > 9 {
		if err := json.Unmarshal(raw[9], &takerBuyVolume); err != nil {
			return err
		}
	}
	if len(raw) > 10 {
		if err := json.Unmarshal(raw[10], &takerBuyQuoteVolume); err != nil {
			return err
		}
	}

	*k = klineWireRow(archive.KlineRow{
		OpenTimeMS:          openTimeMS,
		Open:                float64(open),
		High:                float64(high),
		Low:                 float64(low),
		Close:               float64(close),
		Volume:              float64(volume),
		QuoteVolume:         float64(quoteVolume),
		TradeCount:          tradeCount,
		TakerBuyVolume:      float64(takerBuyVolume),
		TakerBuyQuoteVolume: float64(takerBuyQuoteVolume),
	})
	return nil
}
