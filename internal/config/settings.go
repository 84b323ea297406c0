// Package config loads orchestrator settings from a YAML file with
// environment-variable overrides, grounded on
// internal/config/providers.go's LoadProvidersConfig/Validate pattern.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings covers every field spec.md §6 enumerates plus the ambient
// metrics/log-level additions from SPEC_FULL.md §6.
type Settings struct {
	Symbol                   string `yaml:"symbol"`
	RootDir                  string `yaml:"root_dir"`
	StateDB                  string `yaml:"state_db"`
	VisionBaseURL            string `yaml:"vision_base_url"`
	RESTBaseURL              string `yaml:"rest_base_url"`
	SafetyLagMinutes         int    `yaml:"safety_lag_minutes"`
	BootstrapLookbackMinutes int    `yaml:"bootstrap_lookback_minutes"`
	WarmDays                 int    `yaml:"warm_days"`
	MaxFfillMinutes          int    `yaml:"max_ffill_minutes"`
	RESTRetries              int    `yaml:"rest_retries"`
	LogLevel                 string `yaml:"log_level"`
	MetricsAddr              string `yaml:"metrics_addr"`
	LiveWSBaseURL            string `yaml:"live_ws_base_url"`
}

// Default returns the baseline settings named throughout spec.md §6, before
// any file load or environment override is applied.
func Default() Settings {
	return Settings{
		Symbol:                   "BTCUSDT",
		RootDir:                  "./lake",
		StateDB:                  "./minutelake.db",
		VisionBaseURL:            "https://data.binance.vision",
		RESTBaseURL:              "https://fapi.binance.com",
		SafetyLagMinutes:         2,
		BootstrapLookbackMinutes: 120,
		WarmDays:                 2,
		MaxFfillMinutes:          60,
		RESTRetries:              5,
		LogLevel:                 "console",
		MetricsAddr:              "",
		LiveWSBaseURL:            "",
	}
}

// Load reads settings from a YAML file (if path is non-empty) layered over
// Default(), then applies MINUTELAKE_<FIELD> environment overrides, then
// validates.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings file: %w", err)
		}
	}

	applyEnvOverrides(&s)

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("MINUTELAKE_SYMBOL"); v != "" {
		s.Symbol = v
	}
	if v := os.Getenv("MINUTELAKE_ROOT_DIR"); v != "" {
		s.RootDir = v
	}
	if v := os.Getenv("MINUTELAKE_STATE_DB"); v != "" {
		s.StateDB = v
	}
	if v := os.Getenv("MINUTELAKE_VISION_BASE_URL"); v != "" {
		s.VisionBaseURL = v
	}
	if v := os.Getenv("MINUTELAKE_REST_BASE_URL"); v != "" {
		s.RESTBaseURL = v
	}
	if v := os.Getenv("MINUTELAKE_SAFETY_LAG_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.SafetyLagMinutes = n
		}
	}
	if v := os.Getenv("MINUTELAKE_BOOTSTRAP_LOOKBACK_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.BootstrapLookbackMinutes = n
		}
	}
	if v := os.Getenv("MINUTELAKE_WARM_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.WarmDays = n
		}
	}
	if v := os.Getenv("MINUTELAKE_MAX_FFILL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxFfillMinutes = n
		}
	}
	if v := os.Getenv("MINUTELAKE_REST_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.RESTRetries = n
		}
	}
	if v := os.Getenv("MINUTELAKE_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("MINUTELAKE_METRICS_ADDR"); v != "" {
		s.MetricsAddr = v
	}
	if v := os.Getenv("MINUTELAKE_LIVE_WS_BASE_URL"); v != "" {
		s.LiveWSBaseURL = v
	}
}

// Validate ensures a Settings value is safe to build a Pipeline from.
func (s Settings) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if s.RootDir == "" {
		return fmt.Errorf("root_dir cannot be empty")
	}
	if s.StateDB == "" {
		return fmt.Errorf("state_db cannot be empty")
	}
	if s.VisionBaseURL == "" {
		return fmt.Errorf("vision_base_url cannot be empty")
	}
	if s.RESTBaseURL == "" {
		return fmt.Errorf("rest_base_url cannot be empty")
	}
	if s.SafetyLagMinutes < 0 {
		return fmt.Errorf("safety_lag_minutes cannot be negative, got %d", s.SafetyLagMinutes)
	}
	if s.BootstrapLookbackMinutes <= 0 {
		return fmt.Errorf("bootstrap_lookback_minutes must be positive, got %d", s.BootstrapLookbackMinutes)
	}
	if s.WarmDays <= 0 {
		return fmt.Errorf("warm_days must be positive, got %d", s.WarmDays)
	}
	if s.MaxFfillMinutes <= 0 {
		return fmt.Errorf("max_ffill_minutes must be positive, got %d", s.MaxFfillMinutes)
	}
	if s.RESTRetries < 0 {
		return fmt.Errorf("rest_retries cannot be negative, got %d", s.RESTRetries)
	}
	if s.LogLevel != "console" && s.LogLevel != "json" {
		return fmt.Errorf("log_level must be console or json, got %q", s.LogLevel)
	}
	return nil
}
