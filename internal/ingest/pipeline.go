// Package ingest is the band-aware orchestrator (C10): it picks a source
// per hour, enforces the watermark, batches minutes into hour partitions,
// and drives the incremental and consistency-backfill loops. Grounded on
// spec.md §4.8/§4.10 for the algorithm and on the teacher's
// internal/application orchestration style (short-lived per-operation
// dependencies, typed per-step failures accumulated rather than aborting a
// whole run) for the Go shape.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minutelake/ingest/internal/clock"
	"github.com/minutelake/ingest/internal/config"
	"github.com/minutelake/ingest/internal/livefeed"
	"github.com/minutelake/ingest/internal/obsmetrics"
	"github.com/minutelake/ingest/internal/quality"
	"github.com/minutelake/ingest/internal/rest"
	"github.com/minutelake/ingest/internal/schema"
	"github.com/minutelake/ingest/internal/state"
	"github.com/minutelake/ingest/internal/transform"
	"github.com/minutelake/ingest/internal/vision"
	"github.com/minutelake/ingest/internal/writer"
)

// HourFailure records why one hour in a run could not be committed, without
// aborting the rest of the run.
type HourFailure struct {
	Hour time.Time
	Err  error
}

// RunSummary reports the outcome of one RunOnce call.
type RunSummary struct {
	Symbol              string
	PartitionsCommitted int
	WatermarkBefore      *time.Time
	WatermarkAfter       *time.Time
	TargetHorizon        time.Time
	Failures             []HourFailure
}

// Pipeline wires every component behind the orchestrator entry points.
type Pipeline struct {
	symbol  string
	rootDir string

	store   *state.Store
	vision  *vision.Client
	rest    *rest.Client
	engine  *transform.Engine
	writer  *writer.Writer
	live    livefeed.Collector
	metrics *obsmetrics.Registry

	safetyLag         time.Duration
	bootstrapLookback time.Duration
	warmDays          int

	dayCache map[string]dayArchive
}

// New builds a Pipeline from Settings, opening and initializing the state
// store. Callers own the returned Pipeline and must call Close.
func New(settings config.Settings, metrics *obsmetrics.Registry) (*Pipeline, error) {
	store, err := state.Open(state.DefaultConfig(settings.StateDB))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	if err := store.Initialize(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize state store: %w", err)
	}

	p := &Pipeline{
		symbol:            settings.Symbol,
		rootDir:           settings.RootDir,
		store:             store,
		vision:            vision.New(vision.DefaultConfig(settings.VisionBaseURL)),
		rest:              rest.New(rest.Config{BaseURL: settings.RESTBaseURL, Retries: settings.RESTRetries, Timeout: 10 * time.Second}),
		engine:            transform.New(settings.MaxFfillMinutes),
		writer:            writer.New(settings.RootDir, store),
		live:              livefeed.NoopCollector{},
		metrics:           metrics,
		safetyLag:         time.Duration(settings.SafetyLagMinutes) * time.Minute,
		bootstrapLookback: time.Duration(settings.BootstrapLookbackMinutes) * time.Minute,
		warmDays:          settings.WarmDays,
		dayCache:          make(map[string]dayArchive),
	}
	return p, nil
}

// SetLiveCollector swaps the live-feed collector consulted for LIVE_ONLY
// columns of every hour processed, whatever its band. Passing nil restores
// the no-op collector.
func (p *Pipeline) SetLiveCollector(c livefeed.Collector) {
	if c == nil {
		c = livefeed.NoopCollector{}
	}
	p.live = c
}

// Close releases the state store connection.
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// RunOnce executes spec.md §4.8's run-once algorithm once: read the
// watermark, enumerate hours up to the target horizon, fetch/transform/write
// each, and advance the watermark to the most advanced committed partition.
func (p *Pipeline) RunOnce(ctx context.Context, now *time.Time, maxHours *int) (RunSummary, error) {
	n := time.Now().UTC()
	if now != nil {
		n = now.UTC()
	}
	target := clock.FloorToMinute(n.Add(-p.safetyLag))

	before, err := p.store.GetWatermark(ctx, p.symbol)
	if err != nil {
		return RunSummary{}, fmt.Errorf("read watermark: %w", err)
	}

	windowStart := target.Add(-p.bootstrapLookback)
	if before != nil {
		windowStart = *before
	}

	hours := clock.IterHours(windowStart, target)
	if maxHours != nil && len(hours) > *maxHours {
		hours = hours[:*maxHours]
	}

	summary := RunSummary{Symbol: p.symbol, WatermarkBefore: before, TargetHorizon: target}

	for _, hourStart := range hours {
		expectedStart := hourStart
		if windowStart.Add(time.Minute).After(expectedStart) {
			expectedStart = windowStart.Add(time.Minute)
		}
		expectedEnd := hourStart.Add(59 * time.Minute)
		if target.Before(expectedEnd) {
			expectedEnd = target
		}
		if expectedEnd.Before(expectedStart) {
			continue
		}

		band := selectBand(hourStart, target, p.warmDays)
		frame, err := p.fetchAndTransform(ctx, band, hourStart, expectedStart, expectedEnd)
		if err != nil {
			p.recordFailure(&summary, hourStart, err)
			continue
		}
		if frame.Height() == 0 {
			// No trailing-truncated rows survived for this still-forming
			// hour; nothing to commit yet, and it isn't a failure.
			continue
		}
		if _, err := p.writer.WriteHourPartition(ctx, p.symbol, hourStart, frame); err != nil {
			p.recordFailure(&summary, hourStart, err)
			continue
		}
		summary.PartitionsCommitted++
		if p.metrics != nil {
			p.metrics.PartitionsCommittedTotal.Inc()
		}
		log.Info().Str("symbol", p.symbol).Time("hour", hourStart).Str("band", string(band)).Msg("hour partition committed")
	}

	latest, err := p.store.LatestPartition(ctx, p.symbol)
	if err != nil {
		return summary, fmt.Errorf("read latest partition: %w", err)
	}
	if latest != nil && !latest.MaxTS.After(target) {
		if before == nil || latest.MaxTS.After(*before) {
			if err := p.store.UpsertWatermark(ctx, p.symbol, latest.MaxTS); err != nil {
				return summary, fmt.Errorf("advance watermark: %w", err)
			}
			w := latest.MaxTS
			summary.WatermarkAfter = &w
		} else {
			summary.WatermarkAfter = before
		}
	} else {
		summary.WatermarkAfter = before
	}

	if p.metrics != nil && summary.WatermarkAfter != nil {
		p.metrics.WatermarkLagSeconds.Set(target.Sub(*summary.WatermarkAfter).Seconds())
	}
	return summary, nil
}

func (p *Pipeline) recordFailure(summary *RunSummary, hourStart time.Time, err error) {
	summary.Failures = append(summary.Failures, HourFailure{Hour: hourStart, Err: err})
	if p.metrics != nil {
		p.metrics.HoursFailedTotal.Inc()
	}
	log.Warn().Str("symbol", p.symbol).Time("hour", hourStart).Err(err).Msg("hour failed, watermark will not advance past it")
}

// RunDaemon loops RunOnce on pollInterval until ctx is cancelled. Typed
// per-hour failures are already absorbed inside RunOnce; only a fatal error
// from RunOnce itself stops the daemon.
func (p *Pipeline) RunDaemon(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx, nil, nil); err != nil {
			return fmt.Errorf("run-daemon: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchAndTransform selects sources per band, decodes them, and joins them
// into a canonical Frame covering [windowStart, windowEnd].
func (p *Pipeline) fetchAndTransform(ctx context.Context, band Band, hourStart, windowStart, windowEnd time.Time) (*schema.Frame, error) {
	day := hourStart.UTC().Format("2006-01-02")

	in := transform.BuildInput{
		StartMinute:     clock.MinuteEpochMS(windowStart),
		EndMinute:       clock.MinuteEpochMS(windowEnd),
		MaxFfillMinutes: p.engine.MaxFfillMinutes,
		LiveCollector:   p.live,
	}

	useVision := band == BandCOLD || (band == BandWARM && p.visionDailyKlinesExist(ctx, day))

	if useVision {
		if p.metrics != nil {
			p.metrics.VisionRequestsTotal.Inc()
		}
		arch, err := p.dayArchiveFor(ctx, day)
		if err != nil {
			return nil, err
		}
		in.Klines = arch.klines
		in.MarkPriceKlines = arch.mark
		in.IndexPriceKlines = arch.index
		in.AggTrades = arch.aggTrades
	} else {
		// HOT, or WARM falling back because today's Vision dump isn't
		// published yet: spec.md §4.8's "REST live path combined with
		// latest available klines".
		klines, err := p.restKlines(ctx, windowStart, windowEnd)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RESTRequestsTotal.WithLabelValues("error").Inc()
			}
			return nil, err
		}
		if p.metrics != nil {
			p.metrics.RESTRequestsTotal.WithLabelValues("ok").Inc()
		}
		in.Klines = klines
	}

	if band == BandHOT || band == BandWARM {
		snapshots, err := p.restSnapshot(ctx, in.EndMinute)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RESTRequestsTotal.WithLabelValues("error").Inc()
			}
			if useVision {
				log.Warn().Err(err).Msg("rest snapshot unavailable, continuing with archive-only columns")
			} else {
				return nil, err
			}
		} else {
			in.PremiumIndex = snapshots
			if p.metrics != nil {
				p.metrics.RESTRequestsTotal.WithLabelValues("ok").Inc()
			}
		}
	}

	frame := p.engine.BuildCanonicalFrame(in)
	if frame.Height() == 0 {
		return frame, nil
	}
	if _, err := quality.New().Validate(frame); err != nil {
		return nil, err
	}
	return frame, nil
}
