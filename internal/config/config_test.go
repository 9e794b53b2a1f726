package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("statline-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Store.MaxOpenConns != 20 {
		t.Fatalf("Store.MaxOpenConns = %d", cfg.Store.MaxOpenConns)
	}
	if cfg.Registry.Dir != "dataset_registry" {
		t.Fatalf("Registry.Dir = %q", cfg.Registry.Dir)
	}
	if cfg.Query.DefaultLimit != 100 {
		t.Fatalf("Query.DefaultLimit = %d", cfg.Query.DefaultLimit)
	}
	if cfg.Query.MaxLimit != 500 {
		t.Fatalf("Query.MaxLimit = %d", cfg.Query.MaxLimit)
	}
	if cfg.Query.Timeout != 10*time.Second {
		t.Fatalf("Query.Timeout = %v", cfg.Query.Timeout)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"STATLINE_PROFILE": "prod"})
	cfg, err := Load("statline-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"STATLINE_HTTP_ADDR":           ":9090",
		"STATLINE_STORE_DSN":           "postgres://user:pw@db:5432/warehouse",
		"STATLINE_REGISTRY_DIR":        "/etc/statline/registry",
		"STATLINE_QUERY_DEFAULT_LIMIT": "50",
		"STATLINE_QUERY_MAX_LIMIT":     "200",
		"STATLINE_QUERY_TIMEOUT":       "3s",
		"STATLINE_LOG_LEVEL":           "warn",
		"STATLINE_LOG_JSON":            "false",
	})
	cfg, err := Load("statline-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Store.DSN != "postgres://user:pw@db:5432/warehouse" {
		t.Fatalf("Store.DSN = %q", cfg.Store.DSN)
	}
	if cfg.Registry.Dir != "/etc/statline/registry" {
		t.Fatalf("Registry.Dir = %q", cfg.Registry.Dir)
	}
	if cfg.Query.DefaultLimit != 50 || cfg.Query.MaxLimit != 200 {
		t.Fatalf("Query limits = %d/%d", cfg.Query.DefaultLimit, cfg.Query.MaxLimit)
	}
	if cfg.Query.Timeout != 3*time.Second {
		t.Fatalf("Query.Timeout = %v", cfg.Query.Timeout)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogJSON {
		t.Fatal("LogJSON should be false")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"invalid profile":      {"STATLINE_PROFILE": "staging"},
		"invalid timeout":      {"STATLINE_QUERY_TIMEOUT": "soon"},
		"invalid log level":    {"STATLINE_LOG_LEVEL": "verbose"},
		"invalid bool":         {"STATLINE_AUTH_REQUIRED": "yep"},
		"max below default":    {"STATLINE_QUERY_MAX_LIMIT": "10"},
		"non-positive default": {"STATLINE_QUERY_DEFAULT_LIMIT": "0", "STATLINE_QUERY_MAX_LIMIT": "0"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load("statline-api", mapLookup(values)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
