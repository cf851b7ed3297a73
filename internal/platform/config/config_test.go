package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{
		"SERVICE_NAME", "HTTP_PORT", "STORE_BACKEND", "POSTGRES_DSN", "DB_HOST", "RANGE_NAME",
		"SHEET_GID", "NOTIFY_CHANNEL", "LISTENER_POLL_INTERVAL", "LISTENER_DEBOUNCE",
		"LISTENER_RESUBSCRIBE_DELAY", "ENABLE_CHANGE_LISTENER", "ENABLE_SCHEMA_BOOTSTRAP",
	} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "leadsync" || cfg.HTTPPort != "8080" || cfg.StoreBackend != StoreBackendPostgres {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RangeName != "Sheet1!A1:F" || cfg.NotifyChannel != "leads_changed" {
		t.Fatalf("unexpected sheet/channel defaults: %+v", cfg)
	}
	if cfg.ListenerPollInterval != time.Second || cfg.ListenerDebounce != time.Second {
		t.Fatalf("expected one second poll and debounce, got %s/%s", cfg.ListenerPollInterval, cfg.ListenerDebounce)
	}
	if !cfg.EnableChangeListener || !cfg.EnableSchemaBootstrap {
		t.Fatalf("expected listener and schema bootstrap enabled by default")
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected empty dsn, got %q", cfg.PostgresDSN)
	}
}

func TestLoadAssemblesDSNFromParts(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "crm")
	t.Setenv("DB_USER", "sync")
	t.Setenv("DB_PASSWORD", "it's secret")
	t.Setenv("DB_SSLMODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := `host=db.internal port=5433 dbname=crm user=sync password='it\'s secret'`
	if cfg.PostgresDSN != want {
		t.Fatalf("expected %q, got %q", want, cfg.PostgresDSN)
	}
}

func TestLoadParsesListenerDurations(t *testing.T) {
	t.Setenv("LISTENER_POLL_INTERVAL", "250ms")
	t.Setenv("LISTENER_DEBOUNCE", "2")
	t.Setenv("LISTENER_RESUBSCRIBE_DELAY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenerPollInterval != 250*time.Millisecond || cfg.ListenerDebounce != 2*time.Second {
		t.Fatalf("unexpected durations: %s/%s", cfg.ListenerPollInterval, cfg.ListenerDebounce)
	}

	t.Setenv("LISTENER_POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid duration to fail")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown backend to fail")
	}
}
