package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minutelake/ingest/internal/state"
)

var showWatermarkSymbol string

var showWatermarkCmd = &cobra.Command{
	Use:   "show-watermark",
	Short: "Print the stored watermark for a symbol",
	RunE:  runShowWatermark,
}

func init() {
	showWatermarkCmd.Flags().StringVar(&showWatermarkSymbol, "symbol", "", "Symbol to look up (defaults to the configured symbol)")
	rootCmd.AddCommand(showWatermarkCmd)
}

func runShowWatermark(cmd *cobra.Command, args []string) error {
	settings := loadSettingsOrExit()
	symbol := settings.Symbol
	if showWatermarkSymbol != "" {
		symbol = showWatermarkSymbol
	}
	symbol = strings.ToUpper(symbol)

	store, err := state.Open(state.DefaultConfig(settings.StateDB))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()
	if err := store.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initialize state store: %w", err)
	}

	watermark, err := store.GetWatermark(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("get watermark: %w", err)
	}
	if watermark == nil {
		fmt.Printf("No watermark found for %s\n", symbol)
		return nil
	}
	fmt.Printf("Watermark[%s] = %s\n", symbol, watermark.Format("2006-01-02T15:04:05Z07:00"))
	return nil
}
