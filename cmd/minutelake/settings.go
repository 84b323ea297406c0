package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/minutelake/ingest/internal/config"
)

// loadSettingsOrExit loads Settings from --config (or defaults plus
// environment overrides) and reconfigures the global logger to match
// log_level, matching the teacher's main.go's early logger setup.
func loadSettingsOrExit() config.Settings {
	settings, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load settings")
	}

	if settings.LogLevel == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return settings
}
