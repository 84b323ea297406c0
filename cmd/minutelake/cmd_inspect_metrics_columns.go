package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minutelake/ingest/internal/archive"
	"github.com/minutelake/ingest/internal/vision"
)

var (
	inspectMetricsColumnsTradeDate string
	inspectMetricsColumnsSymbol    string
)

var inspectMetricsColumnsCmd = &cobra.Command{
	Use:   "inspect-metrics-columns",
	Short: "Download one day's metrics archive and print its column header",
	RunE:  runInspectMetricsColumns,
}

func init() {
	inspectMetricsColumnsCmd.Flags().StringVar(&inspectMetricsColumnsTradeDate, "trade-date", "", "Date in YYYY-MM-DD format")
	inspectMetricsColumnsCmd.Flags().StringVar(&inspectMetricsColumnsSymbol, "symbol", "", "Symbol (defaults to the configured symbol)")
	_ = inspectMetricsColumnsCmd.MarkFlagRequired("trade-date")
	rootCmd.AddCommand(inspectMetricsColumnsCmd)
}

func runInspectMetricsColumns(cmd *cobra.Command, args []string) error {
	settings := loadSettingsOrExit()
	symbol := settings.Symbol
	if inspectMetricsColumnsSymbol != "" {
		symbol = inspectMetricsColumnsSymbol
	}
	symbol = strings.ToUpper(symbol)

	client := vision.New(vision.DefaultConfig(settings.VisionBaseURL))
	url, err := client.BuildDailyZipURL(vision.StreamMetrics, symbol, inspectMetricsColumnsTradeDate, "")
	if err != nil {
		return fmt.Errorf("build metrics url: %w", err)
	}
	destination := filepath.Join(settings.RootDir, ".cache", fmt.Sprintf("%s-metrics-%s.zip", symbol, inspectMetricsColumnsTradeDate))
	if err := client.DownloadZip(context.Background(), url, destination); err != nil {
		return fmt.Errorf("download metrics archive: %w", err)
	}

	columns, err := archive.ListColumns(destination)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}

	fmt.Printf("Metrics columns (%d):\n", len(columns))
	for _, c := range columns {
		fmt.Printf(" - %s\n", c)
	}
	return nil
}
