package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	StoreBackend string
	PostgresDSN  string

	SpreadsheetID         string
	RangeName             string
	SheetGID              int64
	GoogleCredentialsFile string

	NotifyChannel            string
	ListenerPollInterval     time.Duration
	ListenerDebounce         time.Duration
	ListenerResubscribeDelay time.Duration
	ListenerTriggerURL       string

	EnableChangeListener  bool
	EnableSchemaBootstrap bool
}

// Load reads the process environment. A .env file in the working directory is
// applied first when present; variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "leadsync"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	if backend == "" {
		backend = StoreBackendPostgres
	}
	if backend != StoreBackendPostgres && backend != StoreBackendMemory {
		return Config{}, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, backend)
	}

	rangeName := strings.TrimSpace(os.Getenv("RANGE_NAME"))
	if rangeName == "" {
		rangeName = "Sheet1!A1:F"
	}

	channel := strings.TrimSpace(os.Getenv("NOTIFY_CHANNEL"))
	if channel == "" {
		channel = "leads_changed"
	}

	var gid int64
	if raw := strings.TrimSpace(os.Getenv("SHEET_GID")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("SHEET_GID: %w", err)
		}
		gid = parsed
	}

	poll, err := envDuration("LISTENER_POLL_INTERVAL", time.Second)
	if err != nil {
		return Config{}, err
	}
	debounce, err := envDuration("LISTENER_DEBOUNCE", poll)
	if err != nil {
		return Config{}, err
	}
	resubscribe, err := envDuration("LISTENER_RESUBSCRIBE_DELAY", time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		StoreBackend: backend,
		PostgresDSN:  postgresDSN(),

		SpreadsheetID:         strings.TrimSpace(os.Getenv("SPREADSHEET_ID")),
		RangeName:             rangeName,
		SheetGID:              gid,
		GoogleCredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE")),

		NotifyChannel:            channel,
		ListenerPollInterval:     poll,
		ListenerDebounce:         debounce,
		ListenerResubscribeDelay: resubscribe,
		ListenerTriggerURL:       strings.TrimSpace(os.Getenv("LISTENER_TRIGGER_URL")),

		EnableChangeListener:  envBool("ENABLE_CHANGE_LISTENER", true),
		EnableSchemaBootstrap: envBool("ENABLE_SCHEMA_BOOTSTRAP", true),
	}, nil
}

// postgresDSN prefers POSTGRES_DSN and otherwise assembles a key/value DSN
// from the DB_* variables.
func postgresDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN")); dsn != "" {
		return dsn
	}
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	if host == "" {
		return ""
	}
	parts := []string{"host=" + dsnValue(host)}
	for _, item := range []struct{ key, env string }{
		{"port", "DB_PORT"},
		{"dbname", "DB_NAME"},
		{"user", "DB_USER"},
		{"password", "DB_PASSWORD"},
		{"sslmode", "DB_SSLMODE"},
	} {
		if value := os.Getenv(item.env); value != "" {
			parts = append(parts, item.key+"="+dsnValue(value))
		}
	}
	return strings.Join(parts, " ")
}

func dsnValue(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

// envDuration accepts Go durations ("500ms", "2s") or plain seconds ("1").
func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return value, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
