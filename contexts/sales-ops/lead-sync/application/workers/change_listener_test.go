package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"leadsync/contexts/sales-ops/lead-sync/domain/entities"
	domainerrors "leadsync/contexts/sales-ops/lead-sync/domain/errors"
	"leadsync/contexts/sales-ops/lead-sync/ports"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu         sync.Mutex
	subs       []*fakeSubscription
	subscribed chan *fakeSubscription
}

func newFakeSource() *fakeSource {
	return &fakeSource{subscribed: make(chan *fakeSubscription, 8)}
}

func (s *fakeSource) Subscribe(_ context.Context) (ports.Subscription, error) {
	sub := &fakeSubscription{
		events:  make(chan entities.ChangeEvent, 16),
		dropped: make(chan struct{}),
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	s.subscribed <- sub
	return sub, nil
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type fakeSubscription struct {
	events   chan entities.ChangeEvent
	dropped  chan struct{}
	dropOnce sync.Once
	closed   atomic.Bool
}

func (s *fakeSubscription) Next(ctx context.Context) (entities.ChangeEvent, error) {
	select {
	case <-ctx.Done():
		return entities.ChangeEvent{}, ctx.Err()
	case <-s.dropped:
		return entities.ChangeEvent{}, domainerrors.NewChannelError("receive", errors.New("connection reset"))
	case event := <-s.events:
		return event, nil
	}
}

func (s *fakeSubscription) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSubscription) notify(payload string) {
	s.events <- entities.ChangeEvent{Channel: "leads_changed", Payload: payload}
}

func (s *fakeSubscription) drop() {
	s.dropOnce.Do(func() { close(s.dropped) })
}

// countingTrigger records runs and the highest number of concurrent runs.
type countingTrigger struct {
	runs     atomic.Int32
	active   atomic.Int32
	maxSeen  atomic.Int32
	block    chan struct{}
	started  chan struct{}
	failures map[int32]error
	ctxErr   atomic.Value
}

func (c *countingTrigger) Trigger(ctx context.Context, _ entities.ChangeEvent) error {
	run := c.runs.Add(1)
	active := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if active <= seen || c.maxSeen.CompareAndSwap(seen, active) {
			break
		}
	}
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.block != nil {
		<-c.block
	}
	if ctx.Err() != nil {
		c.ctxErr.Store(ctx.Err())
	}
	return c.failures[run]
}

func startListener(t *testing.T, listener *ChangeListener) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- listener.Run(ctx)
	}()
	return cancel, done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func stopListener(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listener returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("listener did not stop")
	}
}

func TestChangeListenerCoalescesBurstIntoOneRun(t *testing.T) {
	source := newFakeSource()
	trigger := &countingTrigger{}
	listener := &ChangeListener{
		Source:         source,
		Trigger:        trigger,
		PollInterval:   20 * time.Millisecond,
		DebounceWindow: 150 * time.Millisecond,
	}
	cancel, done := startListener(t, listener)
	sub := <-source.subscribed

	sub.notify("insert")
	sub.notify("update")

	waitFor(t, "first run", func() bool { return trigger.runs.Load() == 1 })
	time.Sleep(250 * time.Millisecond)
	if got := trigger.runs.Load(); got != 1 {
		t.Fatalf("expected exactly one run for a burst, got %d", got)
	}
	if stats := listener.Stats(); stats.Coalesced != 1 {
		t.Fatalf("expected one coalesced event, got %d", stats.Coalesced)
	}

	stopListener(t, cancel, done)
	if listener.State() != entities.ListenerTerminated {
		t.Fatalf("expected terminated state, got %s", listener.State())
	}
	if !sub.closed.Load() {
		t.Fatalf("expected subscription to be closed on shutdown")
	}
}

func TestChangeListenerSerializesRuns(t *testing.T) {
	source := newFakeSource()
	trigger := &countingTrigger{
		block:   make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	listener := &ChangeListener{
		Source:         source,
		Trigger:        trigger,
		PollInterval:   10 * time.Millisecond,
		DebounceWindow: 10 * time.Millisecond,
	}
	cancel, done := startListener(t, listener)
	sub := <-source.subscribed

	sub.notify("first")
	<-trigger.started
	if listener.State() != entities.ListenerTriggering {
		t.Fatalf("expected triggering state, got %s", listener.State())
	}

	// Arrive while the first run is still in flight.
	sub.notify("second")
	sub.notify("third")
	time.Sleep(50 * time.Millisecond)
	if got := trigger.runs.Load(); got != 1 {
		t.Fatalf("expected no overlapping run, got %d runs", got)
	}

	trigger.block <- struct{}{}
	<-trigger.started
	trigger.block <- struct{}{}

	waitFor(t, "listener back to listening", func() bool {
		return listener.State() == entities.ListenerListening
	})
	if got := trigger.runs.Load(); got != 2 {
		t.Fatalf("expected queued events to fold into one follow-up run, got %d runs", got)
	}
	if got := trigger.maxSeen.Load(); got != 1 {
		t.Fatalf("expected at most one concurrent run, saw %d", got)
	}
	stopListener(t, cancel, done)
}

func TestChangeListenerContinuesAfterTriggerFailure(t *testing.T) {
	source := newFakeSource()
	trigger := &countingTrigger{
		failures: map[int32]error{1: errors.New("sheet write failed")},
	}
	listener := &ChangeListener{
		Source:         source,
		Trigger:        trigger,
		PollInterval:   10 * time.Millisecond,
		DebounceWindow: 10 * time.Millisecond,
	}
	cancel, done := startListener(t, listener)
	sub := <-source.subscribed

	sub.notify("first")
	waitFor(t, "failed run", func() bool { return listener.Stats().Failures == 1 })

	sub.notify("second")
	waitFor(t, "second run", func() bool { return trigger.runs.Load() == 2 })

	stopListener(t, cancel, done)
	stats := listener.Stats()
	if stats.Runs != 2 || stats.Failures != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestChangeListenerResubscribesAfterChannelDrop(t *testing.T) {
	source := newFakeSource()
	trigger := &countingTrigger{}
	listener := &ChangeListener{
		Source:           source,
		Trigger:          trigger,
		PollInterval:     10 * time.Millisecond,
		DebounceWindow:   10 * time.Millisecond,
		ResubscribeDelay: 10 * time.Millisecond,
	}
	cancel, done := startListener(t, listener)
	first := <-source.subscribed

	first.drop()
	second := <-source.subscribed
	if !first.closed.Load() {
		t.Fatalf("expected dropped subscription to be closed")
	}

	second.notify("after reconnect")
	waitFor(t, "run after resubscribe", func() bool { return trigger.runs.Load() == 1 })
	if source.count() != 2 {
		t.Fatalf("expected two subscriptions, got %d", source.count())
	}
	stopListener(t, cancel, done)
}

func TestChangeListenerDrainsInFlightRunOnShutdown(t *testing.T) {
	source := newFakeSource()
	trigger := &countingTrigger{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	listener := &ChangeListener{
		Source:         source,
		Trigger:        trigger,
		PollInterval:   10 * time.Millisecond,
		DebounceWindow: 10 * time.Millisecond,
	}
	cancel, done := startListener(t, listener)
	sub := <-source.subscribed

	sub.notify("change")
	<-trigger.started
	cancel()

	select {
	case <-done:
		t.Fatalf("listener returned before the in-flight run finished")
	case <-time.After(50 * time.Millisecond):
	}

	trigger.block <- struct{}{}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listener returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("listener did not stop after the run finished")
	}
	if err := trigger.ctxErr.Load(); err != nil {
		t.Fatalf("in-flight run saw a cancelled context: %v", err)
	}
	if listener.State() != entities.ListenerTerminated {
		t.Fatalf("expected terminated state, got %s", listener.State())
	}
}
