package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// BinanceWSCollector is a best-effort live collector backed by Binance's
// combined futures websocket streams (bookTicker + markPrice). Grounded on
// the teacher's venue-adapter pattern
// (src/infrastructure/datafacade/adapters/binance_adapter.go): dial once,
// run a read loop in a goroutine, keep an in-memory latest-snapshot map
// guarded by a mutex.
type BinanceWSCollector struct {
	mu       sync.RWMutex
	byMinute map[int64]*MinuteFeatures

	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// DialBinanceWS connects to the combined stream for symbol's bookTicker and
// markPrice channels.
func DialBinanceWS(ctx context.Context, baseWSURL, symbol string) (*BinanceWSCollector, error) {
	lower := toLower(symbol)
	url := fmt.Sprintf("%s/stream?streams=%s@bookTicker/%s@markPrice", baseWSURL, lower, lower)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial binance ws: %w", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := &BinanceWSCollector{
		byMinute: make(map[int64]*MinuteFeatures),
		conn:     conn,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.readLoop(runCtx)
	return c, nil
}

// Close stops the read loop and closes the socket.
func (c *BinanceWSCollector) Close() error {
	c.cancel()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *BinanceWSCollector) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		if ctx.Err() != nil {
			return
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("livefeed: websocket read error, stopping")
			return
		}
		c.handleMessage(msg)
	}
}

type wsEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type bookTickerPayload struct {
	UpdateID int64  `json:"u"`
	EventTimeMS int64 `json:"E"`
	BestBidQty string `json:"B"`
	BestAskQty string `json:"A"`
}

type markPricePayload struct {
	EventTimeMS           int64  `json:"E"`
	MarkPrice             string `json:"p"`
	EstimatedSettlePrice  string `json:"P"`
	FundingRate           string `json:"r"`
	NextFundingTimeMS     int64  `json:"T"`
}

func (c *BinanceWSCollector) handleMessage(raw []byte) {
	arrival := time.Now().UnixMilli()
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	minute := floorToMinuteMS(arrival)

	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.byMinute[minute]
	if f == nil {
		f = &MinuteFeatures{TimestampMS: minute}
		c.byMinute[minute] = f
	}
	a := arrival
	f.ArrivalTimeMS = &a

	switch {
	case hasSuffix(env.Stream, "@bookTicker"):
		var p bookTickerPayload
		if json.Unmarshal(env.Data, &p) == nil {
			e := p.EventTimeMS
			f.EventTimeMS = &e
			u1 := p.UpdateID
			f.UpdateIDStart = &u1
			f.UpdateIDEnd = &u1
			lat := arrival - p.EventTimeMS
			f.LatencyNetworkMS = &lat
		}
	case hasSuffix(env.Stream, "@markPrice"):
		var p markPricePayload
		if json.Unmarshal(env.Data, &p) == nil {
			e := p.EventTimeMS
			f.EventTimeMS = &e
			rate := parseDecimalOrZero(p.FundingRate)
			f.PredictedFundingRate = &rate
			nft := p.NextFundingTimeMS
			f.NextFundingTimeMS = &nft
			lat := arrival - p.EventTimeMS
			f.LatencyEngineMS = &lat
		}
	}

	c.evictOlderThan(minute - 24*60*60*1000)
}

// SnapshotForMinute satisfies Collector.
func (c *BinanceWSCollector) SnapshotForMinute(minuteTimestampMS int64) (*MinuteFeatures, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byMinute[minuteTimestampMS]
	if !ok {
		return nil, nil
	}
	copyF := *f
	return &copyF, nil
}

func (c *BinanceWSCollector) evictOlderThan(cutoffMS int64) {
	for k := range c.byMinute {
		if k < cutoffMS {
			delete(c.byMinute, k)
		}
	}
}

func floorToMinuteMS(ms int64) int64 { return ms - ms%60000 }

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func parseDecimalOrZero(s string) float64 {
	var f float64
	_, _ = fmt.Sscanf(s, "%g", &f)
	return f
}
