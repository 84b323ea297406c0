package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minutelake/ingest/internal/audit"
	"github.com/minutelake/ingest/internal/clock"
)

// BackfillSummary reports the outcome of one RunConsistencyBackfill call.
type BackfillSummary struct {
	HoursScanned    int
	IssuesFound     int
	IssuesTargeted  int
	HoursRepaired   int
	HoursFailed     int
	IssuesRemaining int
}

// RunConsistencyBackfill audits every hour in [start, end], repairs up to
// maxMissingHours of the failing ones (chronologically), and reports what
// is left. Matches spec.md §4.10 verbatim.
func (p *Pipeline) RunConsistencyBackfill(ctx context.Context, start, end, nowForBand time.Time, sleep time.Duration, maxMissingHours *int) (BackfillSummary, error) {
	hours := clock.IterHours(start, end)
	summary := BackfillSummary{}

	type issue struct {
		hour          time.Time
		expectedStart time.Time
		expectedEnd   time.Time
	}
	var issues []issue

	for _, h := range hours {
		summary.HoursScanned++
		expectedStart := h
		if start.After(expectedStart) {
			expectedStart = start
		}
		expectedEnd := h.Add(59 * time.Minute)
		if end.Before(expectedEnd) {
			expectedEnd = end
		}
		if expectedEnd.Before(expectedStart) {
			continue
		}

		path := p.writer.PartitionPath(p.symbol, h)
		result := audit.AuditHourPartitionFile(path, expectedStart, expectedEnd)
		if !result.IsValid {
			summary.IssuesFound++
			issues = append(issues, issue{hour: h, expectedStart: expectedStart, expectedEnd: expectedEnd})
			log.Warn().Time("hour", h).Str("reason", result.Reason).Msg("partition audit failed")
		}
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].hour.Before(issues[j].hour) })

	targeted := issues
	if maxMissingHours != nil && len(targeted) > *maxMissingHours {
		targeted = targeted[:*maxMissingHours]
	}
	summary.IssuesTargeted = len(targeted)

	for i, is := range targeted {
		band := selectBand(is.hour, nowForBand, p.warmDays)
		frame, err := p.fetchAndTransform(ctx, band, is.hour, is.hour, is.hour.Add(59*time.Minute))
		if err != nil {
			summary.HoursFailed++
			log.Error().Time("hour", is.hour).Err(err).Msg("backfill repair failed")
			continue
		}
		if frame.Height() == 0 {
			summary.HoursFailed++
			log.Warn().Time("hour", is.hour).Msg("backfill repair produced no rows, leaving issue open")
			continue
		}
		if _, err := p.writer.WriteHourPartition(ctx, p.symbol, is.hour, frame); err != nil {
			summary.HoursFailed++
			log.Error().Time("hour", is.hour).Err(err).Msg("backfill repair write failed")
			continue
		}
		summary.HoursRepaired++
		if i < len(targeted)-1 && sleep > 0 {
			time.Sleep(sleep)
		}
	}

	summary.IssuesRemaining = summary.IssuesFound - summary.HoursRepaired
	if summary.IssuesRemaining < 0 {
		summary.IssuesRemaining = 0
	}
	return summary, nil
}

// BackfillFailureErrorIfUnbounded implements spec.md §4.10's exit rule: when
// maxMissingHours is unset and issues remain, the operation is a failure.
// cmd/minutelake uses this to decide the process exit code.
func BackfillFailureErrorIfUnbounded(summary BackfillSummary, maxMissingHours *int) error {
	if maxMissingHours == nil && summary.IssuesRemaining > 0 {
		return fmt.Errorf("consistency backfill left %d issues unresolved with no max-missing-hours bound", summary.IssuesRemaining)
	}
	return nil
}
