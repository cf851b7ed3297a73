package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/ports"
	"leadsync/internal/shared/events"

	"github.com/jackc/pgx/v5"
)

const unlistenTimeout = 2 * time.Second

// Notifier subscribes to a Postgres NOTIFY channel. Every subscription holds
// its own dedicated connection, separate from the gorm pool.
type Notifier struct {
	dsn     string
	channel string
	logger  *slog.Logger
}

func NewNotifier(dsn string, channel string, logger *slog.Logger) (*Notifier, error) {
	normalized, err := NormalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		dsn:     dsn,
		channel: normalized,
		logger:  logger,
	}, nil
}

func (n *Notifier) Channel() string {
	return n.channel
}

func (n *Notifier) Subscribe(ctx context.Context) (ports.Subscription, error) {
	conn, err := pgx.Connect(ctx, n.dsn)
	if err != nil {
		return nil, domainerrors.NewChannelError("connect", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{n.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, domainerrors.NewChannelError("listen", err)
	}
	n.logger.Info("listening for lead changes",
		"event", "lead_notifier_listening",
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"channel", n.channel,
	)
	return &notifierSubscription{
		conn:    conn,
		channel: n.channel,
		logger:  n.logger,
	}, nil
}

type notifierSubscription struct {
	conn    *pgx.Conn
	channel string
	logger  *slog.Logger
}

// Next waits for one notification. A ctx deadline leaves the connection
// usable and is reported as the ctx error; anything that closes the
// connection is a channel error.
func (s *notifierSubscription) Next(ctx context.Context) (entities.ChangeEvent, error) {
	notification, err := s.conn.WaitForNotification(ctx)
	if err != nil {
		if ctx.Err() != nil && !s.conn.IsClosed() {
			return entities.ChangeEvent{}, ctx.Err()
		}
		return entities.ChangeEvent{}, domainerrors.NewChannelError("wait", err)
	}

	event := entities.ChangeEvent{
		Channel:    notification.Channel,
		Payload:    notification.Payload,
		ReceivedAt: time.Now().UTC(),
	}
	envelope, decodeErr := events.Decode(notification.Payload)
	if decodeErr != nil {
		s.logger.Warn("change notification payload not understood",
			"event", "lead_notifier_payload_invalid",
			"module", "sales-ops/lead-sync",
			"layer", "adapter",
			"channel", notification.Channel,
			"error", decodeErr.Error(),
		)
		return event, nil
	}
	s.logger.Debug("change notification received",
		"event", "lead_notifier_received",
		"module", "sales-ops/lead-sync",
		"layer", "adapter",
		"channel", notification.Channel,
		"event_type", envelope.EventType,
		"entity_id", envelope.EntityID,
		"backend_pid", notification.PID,
	)
	return event, nil
}

func (s *notifierSubscription) Close(ctx context.Context) error {
	if s.conn.IsClosed() {
		return nil
	}
	unlistenCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlistenTimeout)
	defer cancel()
	_, unlistenErr := s.conn.Exec(unlistenCtx, "UNLISTEN "+pgx.Identifier{s.channel}.Sanitize())
	closeErr := s.conn.Close(unlistenCtx)
	return errors.Join(unlistenErr, closeErr)
}

var _ ports.ChangeSource = (*Notifier)(nil)
