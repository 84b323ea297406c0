package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/minutelake/ingest/internal/ingest"
	"github.com/minutelake/ingest/internal/livefeed"
	"github.com/minutelake/ingest/internal/obsmetrics"
)

var runDaemonPollSeconds int

var runDaemonCmd = &cobra.Command{
	Use:   "run-daemon",
	Short: "Loop run-once on a polling interval until interrupted",
	RunE:  runRunDaemon,
}

func init() {
	runDaemonCmd.Flags().IntVar(&runDaemonPollSeconds, "poll-seconds", 60, "Polling interval in seconds")
	rootCmd.AddCommand(runDaemonCmd)
}

func runRunDaemon(cmd *cobra.Command, args []string) error {
	settings := loadSettingsOrExit()

	var metrics *obsmetrics.Registry
	if settings.MetricsAddr != "" {
		metrics = obsmetrics.NewRegistry()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		server := &http.Server{Addr: settings.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer server.Close()
		log.Info().Str("addr", settings.MetricsAddr).Msg("metrics endpoint listening")
	}

	pipeline, err := ingest.New(settings, metrics)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer pipeline.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if settings.LiveWSBaseURL != "" {
		collector, err := livefeed.DialBinanceWS(ctx, settings.LiveWSBaseURL, settings.Symbol)
		if err != nil {
			log.Warn().Err(err).Msg("live websocket collector unavailable, continuing without it")
		} else {
			defer collector.Close()
			pipeline.SetLiveCollector(collector)
			log.Info().Str("url", settings.LiveWSBaseURL).Msg("live websocket collector attached")
		}
	}

	if err := pipeline.RunDaemon(ctx, time.Duration(runDaemonPollSeconds)*time.Second); err != nil && err != context.Canceled {
		return fmt.Errorf("run-daemon: %w", err)
	}
	return nil
}
