package events

import (
	"testing"
	"time"
)

func TestLeadChangedRoundTripsThroughNotificationPayload(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	encoded, err := LeadChanged("memory", "UPDATE", 42, at).Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EventType != EventLeadUpdated {
		t.Fatalf("expected %s, got %s", EventLeadUpdated, decoded.EventType)
	}
	if decoded.EntityType != EntityLead || decoded.EntityID != "42" {
		t.Fatalf("unexpected entity: %s/%s", decoded.EntityType, decoded.EntityID)
	}
	if !decoded.OccurredAtUTC.Equal(at) {
		t.Fatalf("unexpected occurred_at: %s", decoded.OccurredAtUTC)
	}
	if string(decoded.Payload) != `{"op":"UPDATE"}` {
		t.Fatalf("unexpected payload: %s", decoded.Payload)
	}
}

func TestDecodeAcceptsEmptyPayload(t *testing.T) {
	envelope, err := Decode("  ")
	if err != nil {
		t.Fatalf("expected empty payload to be accepted, got %v", err)
	}
	if envelope.EventType != "" {
		t.Fatalf("expected zero envelope, got %+v", envelope)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("not json"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLeadChangedMapsTriggerOperations(t *testing.T) {
	cases := map[string]string{
		"INSERT":   EventLeadInserted,
		"update":   EventLeadUpdated,
		" DELETE ": EventLeadDeleted,
		"TRUNCATE": "lead.truncate",
	}
	for op, want := range cases {
		if got := LeadChanged("memory", op, 1, time.Now()).EventType; got != want {
			t.Fatalf("op %q: expected %s, got %s", op, want, got)
		}
	}
}
