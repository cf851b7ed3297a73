package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/ports"
)

const defaultBuffer = 128

// Bus is an in-process notification channel with the same delivery contract
// as Postgres LISTEN/NOTIFY: every subscriber of a channel gets each event
// published after it subscribed, and nothing is persisted.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscription]struct{}
	buffer      int
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string]map[*subscription]struct{}),
		buffer:      defaultBuffer,
		logger:      logger,
	}
}

// Publish fans payload out to the channel's subscribers without blocking.
// Subscribers whose buffer is full miss the event.
func (b *Bus) Publish(ctx context.Context, channel string, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := entities.ChangeEvent{
		Channel:    channel,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for sub := range b.subscribers[channel] {
		select {
		case sub.events <- event:
			delivered++
		default:
			b.logger.Warn("dropping notification for slow subscriber",
				"event", "bus_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"channel", channel,
			)
		}
	}
	b.logger.Debug("notification published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"channel", channel,
		"delivered", delivered,
	)
	return nil
}

// Disconnect closes every subscription on channel, as a dropped database
// connection would. Subscribers see ErrNotificationChannel from Next.
func (b *Bus) Disconnect(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers[channel] {
		close(sub.events)
	}
	delete(b.subscribers, channel)
}

// Source binds the bus to one channel as a ports.ChangeSource.
func (b *Bus) Source(channel string) ports.ChangeSource {
	return channelSource{bus: b, channel: channel}
}

func (b *Bus) subscribe(channel string) *subscription {
	sub := &subscription{
		bus:     b,
		channel: channel,
		events:  make(chan entities.ChangeEvent, b.buffer),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[*subscription]struct{})
	}
	b.subscribers[channel][sub] = struct{}{}
	return sub
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subscribers[sub.channel]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.events)
}

type channelSource struct {
	bus     *Bus
	channel string
}

func (s channelSource) Subscribe(ctx context.Context) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.bus.subscribe(s.channel), nil
}

type subscription struct {
	bus     *Bus
	channel string
	events  chan entities.ChangeEvent
}

func (s *subscription) Next(ctx context.Context) (entities.ChangeEvent, error) {
	select {
	case <-ctx.Done():
		return entities.ChangeEvent{}, ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			return entities.ChangeEvent{}, domainerrors.NewChannelError("receive",
				fmt.Errorf("channel %q disconnected", s.channel))
		}
		return event, nil
	}
}

func (s *subscription) Close(_ context.Context) error {
	s.bus.remove(s)
	return nil
}
