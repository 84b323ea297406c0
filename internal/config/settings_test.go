package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("symbol: ETHUSDT\nwarm_days: 3\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Symbol != "ETHUSDT" || s.WarmDays != 3 {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.RESTBaseURL != Default().RESTBaseURL {
		t.Fatalf("expected default rest_base_url to survive, got %s", s.RESTBaseURL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("symbol: ETHUSDT\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("MINUTELAKE_SYMBOL", "SOLUSDT")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Symbol != "SOLUSDT" {
		t.Fatalf("expected env override, got %s", s.Symbol)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	s := Default()
	s.LogLevel = "verbose"
	if err := s.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != Default() {
		t.Fatalf("expected defaults, got %+v", s)
	}
}
