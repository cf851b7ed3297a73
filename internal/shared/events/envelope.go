package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventLeadInserted = "lead.insert"
	EventLeadUpdated  = "lead.update"
	EventLeadDeleted  = "lead.delete"

	EntityLead = "lead"
)

// Envelope is the shape of every change notification emitted on the leads
// channel, by the database trigger and by the in-process bus alike.
type Envelope struct {
	EventID        string          `json:"event_id,omitempty"`
	EventType      string          `json:"event_type"`
	SourceService  string          `json:"source_service"`
	OccurredAtUTC  time.Time       `json:"occurred_at_utc"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	PayloadVersion int             `json:"payload_version"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// LeadChanged builds the envelope for one row-level mutation. op is the
// trigger operation name (INSERT, UPDATE or DELETE).
func LeadChanged(source string, op string, leadID int64, at time.Time) Envelope {
	op = strings.ToUpper(strings.TrimSpace(op))
	payload, _ := json.Marshal(map[string]string{"op": op})
	return Envelope{
		EventType:      leadEventType(op),
		SourceService:  source,
		OccurredAtUTC:  at.UTC(),
		EntityType:     EntityLead,
		EntityID:       strconv.FormatInt(leadID, 10),
		PayloadVersion: 1,
		Payload:        payload,
	}
}

func leadEventType(op string) string {
	switch op {
	case "INSERT":
		return EventLeadInserted
	case "UPDATE":
		return EventLeadUpdated
	case "DELETE":
		return EventLeadDeleted
	default:
		return "lead." + strings.ToLower(op)
	}
}

func (e Envelope) Encode() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a notification payload. An empty payload is valid and yields
// a zero envelope: the signal itself is what matters.
func Decode(payload string) (Envelope, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Envelope{}, nil
	}
	var envelope Envelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode change envelope: %w", err)
	}
	return envelope, nil
}
