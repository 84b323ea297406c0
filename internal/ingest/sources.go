package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minutelake/ingest/internal/archive"
	"github.com/minutelake/ingest/internal/transform"
	"github.com/minutelake/ingest/internal/vision"
)

const dailyInterval = "1m"

// dayArchive bundles every stream decoded from one UTC day's Vision ZIPs.
type dayArchive struct {
	klines    []archive.KlineRow
	mark      []archive.KlineRow
	index     []archive.KlineRow
	aggTrades []archive.AggTradeRow
}

// dayArchiveFor downloads (or reuses an already-downloaded) day's klines,
// markPriceKlines, indexPriceKlines and aggTrades Vision archives, decodes
// them, and caches the result in-process for the remainder of the run.
func (p *Pipeline) dayArchiveFor(ctx context.Context, day string) (dayArchive, error) {
	if cached, ok := p.dayCache[day]; ok {
		return cached, nil
	}

	klines, err := p.fetchAndDecodeKlines(ctx, vision.StreamKlines, day)
	if err != nil {
		return dayArchive{}, fmt.Errorf("fetch klines %s: %w", day, err)
	}
	mark, err := p.fetchAndDecodeKlines(ctx, vision.StreamMarkPriceKlines, day)
	if err != nil {
		return dayArchive{}, fmt.Errorf("fetch markPriceKlines %s: %w", day, err)
	}
	index, err := p.fetchAndDecodeKlines(ctx, vision.StreamIndexPriceKlines, day)
	if err != nil {
		return dayArchive{}, fmt.Errorf("fetch indexPriceKlines %s: %w", day, err)
	}

	var agg []archive.AggTradeRow
	aggURL, err := p.vision.BuildDailyZipURL(vision.StreamAggTrades, p.symbol, day, "")
	if err == nil {
		if exists, err := p.vision.Exists(ctx, aggURL); err == nil && exists {
			aggPath := p.rawPath(vision.StreamAggTrades, day)
			if err := p.vision.DownloadZip(ctx, aggURL, aggPath); err == nil {
				agg, _ = archive.DecodeAggTrades(aggPath)
			}
		}
	}

	arch := dayArchive{klines: klines, mark: mark, index: index, aggTrades: agg}
	p.dayCache[day] = arch
	return arch, nil
}

func (p *Pipeline) fetchAndDecodeKlines(ctx context.Context, stream vision.Stream, day string) ([]archive.KlineRow, error) {
	url, err := p.vision.BuildDailyZipURL(stream, p.symbol, day, dailyInterval)
	if err != nil {
		return nil, err
	}
	exists, err := p.vision.Exists(ctx, url)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, vision.ErrObjectNotFound{URL: url}
	}
	path := p.rawPath(stream, day)
	if err := p.vision.DownloadZip(ctx, url, path); err != nil {
		return nil, err
	}
	switch stream {
	case vision.StreamMarkPriceKlines:
		return archive.DecodeMarkPriceKlines(path)
	case vision.StreamIndexPriceKlines:
		return archive.DecodeIndexPriceKlines(path)
	default:
		return archive.DecodeKlines(path)
	}
}

func (p *Pipeline) rawPath(stream vision.Stream, day string) string {
	return filepath.Join(p.rootDir, ".raw", p.symbol, day, string(stream)+".zip")
}

// visionDailyKlinesExist reports whether the day's klines ZIP is present,
// the WARM-band test for "fall back to REST" in spec.md §4.8.
func (p *Pipeline) visionDailyKlinesExist(ctx context.Context, day string) bool {
	url, err := p.vision.BuildDailyZipURL(vision.StreamKlines, p.symbol, day, dailyInterval)
	if err != nil {
		return false
	}
	exists, err := p.vision.Exists(ctx, url)
	return err == nil && exists
}

// restKlines fetches "the latest available klines" over REST for a band
// that has no Vision archive to read from (HOT, or WARM falling back
// because the day's ZIP isn't published yet), spec.md §4.8's HOT-band
// source. windowStart/windowEnd are minute-aligned and inclusive.
func (p *Pipeline) restKlines(ctx context.Context, windowStart, windowEnd time.Time) ([]archive.KlineRow, error) {
	limit := int(windowEnd.Sub(windowStart)/time.Minute) + 1
	klines, err := p.rest.FetchKlines(ctx, p.symbol, dailyInterval, windowStart.UnixMilli(), windowEnd.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	return klines, nil
}

// restSnapshot fetches the current premium-index and open-interest
// observation, which is all REST's live endpoints can ever supply: a single
// point-in-time value, not history. It is always attached to the window's
// last minute (windowEndMS).
func (p *Pipeline) restSnapshot(ctx context.Context, windowEndMS int64) ([]transform.PremiumIndexSnapshot, error) {
	pi, err := p.rest.FetchPremiumIndex(ctx, p.symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch premium index: %w", err)
	}
	oi, err := p.rest.FetchOpenInterest(ctx, p.symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch open interest: %w", err)
	}
	openInterest := oi.OpenInterest
	return []transform.PremiumIndexSnapshot{{
		MinuteMS:     windowEndMS,
		MarkPrice:    pi.MarkPrice,
		IndexPrice:   pi.IndexPrice,
		OpenInterest: &openInterest,
	}}, nil
}
