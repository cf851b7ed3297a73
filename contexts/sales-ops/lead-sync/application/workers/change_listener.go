package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	application "leadsync/contexts/sales-ops/lead-sync/application"
	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/ports"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

const (
	defaultPollInterval        = time.Second
	defaultResubscribeDelay    = time.Second
	defaultMaxResubscribeDelay = 30 * time.Second
)

// ChangeListener turns change notifications into reconciliation runs.
//
// Runs are strictly serialized: the trigger is invoked from the listen loop
// itself, and every event that arrives within DebounceWindow of the first one
// is folded into the same run. Events that arrive while a run is in flight
// wait in the subscription and start at most one follow-up run.
type ChangeListener struct {
	Source              ports.ChangeSource
	Trigger             ports.SyncTrigger
	PollInterval        time.Duration
	DebounceWindow      time.Duration
	ResubscribeDelay    time.Duration
	MaxResubscribeDelay time.Duration
	Clock               clock.Clock
	Logger              *slog.Logger

	mu        sync.Mutex
	state     entities.ListenerState
	runs      int
	failures  int
	coalesced int
}

// ListenerStats is a point-in-time copy of the listener counters.
type ListenerStats struct {
	State     entities.ListenerState
	Runs      int
	Failures  int
	Coalesced int
}

func (l *ChangeListener) State() entities.ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == "" {
		return entities.ListenerIdle
	}
	return l.state
}

func (l *ChangeListener) Stats() ListenerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.state
	if state == "" {
		state = entities.ListenerIdle
	}
	return ListenerStats{
		State:     state,
		Runs:      l.runs,
		Failures:  l.failures,
		Coalesced: l.coalesced,
	}
}

// Run listens until ctx is cancelled. A trigger already in progress when ctx
// is cancelled runs to completion before Run returns. Failed triggers and
// dropped subscriptions are logged and never end the loop.
func (l *ChangeListener) Run(ctx context.Context) error {
	logger := application.ResolveLogger(l.Logger)
	l.setState(entities.ListenerIdle)
	defer l.setState(entities.ListenerTerminated)

	sub, err := l.subscribe(ctx, logger)
	if err != nil {
		if ctx.Err() != nil {
			l.shutdown(logger)
			return nil
		}
		return err
	}
	defer func() {
		if sub != nil {
			_ = sub.Close(context.Background())
		}
	}()

	l.setState(entities.ListenerListening)
	logger.Info("change listener started",
		"event", "lead_listener_started",
		"module", "sales-ops/lead-sync",
		"layer", "worker",
		"poll_interval", l.pollInterval().String(),
		"debounce_window", l.debounceWindow().String(),
	)

	for {
		if ctx.Err() != nil {
			l.shutdown(logger)
			return nil
		}

		event, err := l.next(ctx, sub, l.pollInterval())
		switch {
		case err == nil:
			l.setState(entities.ListenerNotified)
			extra, channelErr := l.coalesce(ctx, sub)
			if ctx.Err() != nil {
				logger.Info("pending change dropped on shutdown",
					"event", "lead_listener_pending_dropped",
					"module", "sales-ops/lead-sync",
					"layer", "worker",
					"channel", event.Channel,
				)
				l.shutdown(logger)
				return nil
			}
			l.fire(ctx, logger, event, extra)
			if channelErr != nil {
				if sub, err = l.resubscribe(ctx, logger, sub, channelErr); err != nil {
					return l.exit(ctx, logger, err)
				}
			}
			l.setState(entities.ListenerListening)
		case isPollTimeout(ctx, err):
			continue
		case ctx.Err() != nil:
			l.shutdown(logger)
			return nil
		default:
			if sub, err = l.resubscribe(ctx, logger, sub, err); err != nil {
				return l.exit(ctx, logger, err)
			}
			l.setState(entities.ListenerListening)
		}
	}
}

// next waits up to timeout for one event.
func (l *ChangeListener) next(ctx context.Context, sub ports.Subscription, timeout time.Duration) (entities.ChangeEvent, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sub.Next(pollCtx)
}

// coalesce drains events that arrive within the debounce window and reports
// how many were folded into the pending run.
func (l *ChangeListener) coalesce(ctx context.Context, sub ports.Subscription) (int, error) {
	window := l.debounceWindow()
	if window <= 0 {
		return 0, nil
	}
	windowCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	count := 0
	for {
		_, err := sub.Next(windowCtx)
		if err == nil {
			count++
			continue
		}
		if isPollTimeout(ctx, err) || ctx.Err() != nil {
			return count, nil
		}
		return count, err
	}
}

func (l *ChangeListener) fire(ctx context.Context, logger *slog.Logger, event entities.ChangeEvent, coalesced int) {
	l.mu.Lock()
	l.state = entities.ListenerTriggering
	l.runs++
	l.coalesced += coalesced
	run := l.runs
	l.mu.Unlock()

	logger.Info("change received, triggering sync",
		"event", "lead_listener_triggering",
		"module", "sales-ops/lead-sync",
		"layer", "worker",
		"channel", event.Channel,
		"payload", event.Payload,
		"coalesced", coalesced,
		"run", run,
	)

	// The run is allowed to finish even if shutdown starts meanwhile.
	if err := l.Trigger.Trigger(context.WithoutCancel(ctx), event); err != nil {
		l.mu.Lock()
		l.failures++
		l.mu.Unlock()
		logger.Error("triggered sync failed",
			"event", "lead_listener_trigger_failed",
			"module", "sales-ops/lead-sync",
			"layer", "worker",
			"run", run,
			"error", err.Error(),
		)
		return
	}
	logger.Info("triggered sync completed",
		"event", "lead_listener_trigger_completed",
		"module", "sales-ops/lead-sync",
		"layer", "worker",
		"run", run,
	)
}

func (l *ChangeListener) resubscribe(
	ctx context.Context,
	logger *slog.Logger,
	current ports.Subscription,
	cause error,
) (ports.Subscription, error) {
	logger.Warn("change subscription dropped, resubscribing",
		"event", "lead_listener_subscription_dropped",
		"module", "sales-ops/lead-sync",
		"layer", "worker",
		"error", cause.Error(),
	)
	if current != nil {
		_ = current.Close(context.Background())
	}
	return l.subscribe(ctx, logger)
}

func (l *ChangeListener) subscribe(ctx context.Context, logger *slog.Logger) (ports.Subscription, error) {
	var sub ports.Subscription
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			opened, err := l.Source.Subscribe(ctx)
			if err != nil {
				return err
			}
			sub = opened
			return nil
		},
		IsFatalError: func(error) bool {
			return ctx.Err() != nil
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Warn("change subscription attempt failed",
				"event", "lead_listener_subscribe_failed",
				"module", "sales-ops/lead-sync",
				"layer", "worker",
				"attempt", attempt,
				"error", err.Error(),
			)
		},
		Attempts:    -1,
		Delay:       l.resubscribeDelay(),
		MaxDelay:    l.maxResubscribeDelay(),
		BackoffFunc: retry.DoubleDelay,
		Clock:       l.clock(),
		Stop:        ctx.Done(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domainerrors.NewChannelError("subscribe", retry.LastError(err))
	}
	return sub, nil
}

func (l *ChangeListener) exit(ctx context.Context, logger *slog.Logger, err error) error {
	if ctx.Err() != nil {
		l.shutdown(logger)
		return nil
	}
	logger.Error("change listener stopped",
		"event", "lead_listener_stopped",
		"module", "sales-ops/lead-sync",
		"layer", "worker",
		"error", err.Error(),
	)
	return errors.Join(domainerrors.ErrListenerStopped, err)
}

func (l *ChangeListener) shutdown(logger *slog.Logger) {
	l.setState(entities.ListenerShuttingDown)
	stats := l.Stats()
	logger.Info("change listener shutting down",
		"event", "lead_listener_shutdown",
		"module", "sales-ops/lead-sync",
		"layer", "worker",
		"runs", stats.Runs,
		"failures", stats.Failures,
		"coalesced", stats.Coalesced,
	)
}

func (l *ChangeListener) setState(state entities.ListenerState) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

func (l *ChangeListener) pollInterval() time.Duration {
	if l.PollInterval <= 0 {
		return defaultPollInterval
	}
	return l.PollInterval
}

func (l *ChangeListener) debounceWindow() time.Duration {
	if l.DebounceWindow < 0 {
		return 0
	}
	if l.DebounceWindow == 0 {
		return l.pollInterval()
	}
	return l.DebounceWindow
}

func (l *ChangeListener) resubscribeDelay() time.Duration {
	if l.ResubscribeDelay <= 0 {
		return defaultResubscribeDelay
	}
	return l.ResubscribeDelay
}

func (l *ChangeListener) maxResubscribeDelay() time.Duration {
	if l.MaxResubscribeDelay <= 0 {
		return defaultMaxResubscribeDelay
	}
	return l.MaxResubscribeDelay
}

func (l *ChangeListener) clock() clock.Clock {
	if l.Clock == nil {
		return clock.WallClock
	}
	return l.Clock
}

// isPollTimeout reports an expired poll or debounce deadline while the parent
// context is still live.
func isPollTimeout(ctx context.Context, err error) bool {
	return ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}
