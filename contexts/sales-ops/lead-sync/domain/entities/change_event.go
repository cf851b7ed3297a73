package entities

import "time"

// ChangeEvent signals that the relational store changed. The payload is
// informational only; any event triggers a full reconciliation.
type ChangeEvent struct {
	Channel    string
	Payload    string
	ReceivedAt time.Time
}

// ListenerState is the lifecycle state of the change listener.
type ListenerState string

const (
	ListenerIdle         ListenerState = "idle"
	ListenerListening    ListenerState = "listening"
	ListenerNotified     ListenerState = "notified"
	ListenerTriggering   ListenerState = "triggering"
	ListenerShuttingDown ListenerState = "shutting_down"
	ListenerTerminated   ListenerState = "terminated"
)
