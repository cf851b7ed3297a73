package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	httptransport "leadsync/contexts/sales-ops/lead-sync/transport/http"
)

const (
	defaultTriggerTimeout = 2 * time.Minute
	maxErrorBody          = 4 << 10
)

// Trigger starts a sync run by POSTing to a running API instance, the way the
// sheet's edit hook calls /sync_postgres.
type Trigger struct {
	URL    string
	Client *http.Client
	Logger *slog.Logger
}

func NewTrigger(url string, logger *slog.Logger) Trigger {
	return Trigger{
		URL:    strings.TrimSpace(url),
		Client: &http.Client{Timeout: defaultTriggerTimeout},
		Logger: logger,
	}
}

func (t Trigger) Trigger(ctx context.Context, event entities.ChangeEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, nil)
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if event.Channel != "" {
		req.Header.Set("X-Change-Channel", event.Channel)
	}

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTriggerTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", t.URL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure httptransport.ErrorResponse
		if json.Unmarshal(body, &failure) == nil && failure.Detail != "" {
			return fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, failure.Detail)
		}
		return fmt.Errorf("sync endpoint returned %d", resp.StatusCode)
	}

	var result httptransport.SyncResponse
	if err := json.Unmarshal(body, &result); err == nil {
		logger := t.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("remote sync completed",
			"event", "lead_trigger_remote_completed",
			"module", "sales-ops/lead-sync",
			"layer", "adapter",
			"url", t.URL,
			"message", result.Message,
			"run_id", result.RunID,
		)
	}
	return nil
}
