package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minutelake/ingest/internal/state"
)

var initStateCmd = &cobra.Command{
	Use:   "init-state",
	Short: "Create the state ledger database and its tables",
	RunE:  runInitState,
}

func init() {
	rootCmd.AddCommand(initStateCmd)
}

func runInitState(cmd *cobra.Command, args []string) error {
	settings := loadSettingsOrExit()

	store, err := state.Open(state.DefaultConfig(settings.StateDB))
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	if err := store.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initialize state store: %w", err)
	}

	fmt.Printf("State initialized at %s\n", settings.StateDB)
	return nil
}
