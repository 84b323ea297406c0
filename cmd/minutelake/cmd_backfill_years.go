package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minutelake/ingest/internal/clock"
	"github.com/minutelake/ingest/internal/ingest"
)

var (
	backfillYearsYears          int
	backfillYearsSleepSeconds   float64
	backfillYearsMaxMissingHrs  int
)

var backfillYearsCmd = &cobra.Command{
	Use:   "backfill-years",
	Short: "Audit and repair the trailing N years, a convenience over backfill-range",
	RunE:  runBackfillYears,
}

func init() {
	backfillYearsCmd.Flags().IntVar(&backfillYearsYears, "years", 5, "Number of trailing years to scan")
	backfillYearsCmd.Flags().Float64Var(&backfillYearsSleepSeconds, "sleep-seconds", 0, "Sleep between repaired hours, in seconds")
	backfillYearsCmd.Flags().IntVar(&backfillYearsMaxMissingHrs, "max-missing-hours", 0, "Optional cap on hours repaired in this invocation (0 = unbounded)")
	rootCmd.AddCommand(backfillYearsCmd)
}

func runBackfillYears(cmd *cobra.Command, args []string) error {
	settings := loadSettingsOrExit()

	now := time.Now().UTC()
	end := clock.FloorToMinute(now.Add(-time.Duration(settings.SafetyLagMinutes) * time.Minute))
	start := clock.FloorToMinute(end.Add(-time.Duration(backfillYearsYears) * 365 * 24 * time.Hour))

	var maxMissingHours *int
	if backfillYearsMaxMissingHrs > 0 {
		maxMissingHours = &backfillYearsMaxMissingHrs
	}

	pipeline, err := ingest.New(settings, nil)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer pipeline.Close()

	summary, err := pipeline.RunConsistencyBackfill(context.Background(), start, end, now,
		time.Duration(backfillYearsSleepSeconds*float64(time.Second)), maxMissingHours)
	if err != nil {
		return fmt.Errorf("backfill-years: %w", err)
	}

	printBackfillSummary(summary)
	return ingest.BackfillFailureErrorIfUnbounded(summary, maxMissingHours)
}
