package amqp

import "testing"

func TestChangeEventRoundTrip(t *testing.T) {
	event := NewChangeEvent(CollectionPlans, "plan-123", OpUpdated)

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ChangeEventFromJSON(body)
	if err != nil {
		t.Fatalf("ChangeEventFromJSON: %v", err)
	}
	if got.Collection != CollectionPlans || got.ID != "plan-123" || got.Op != OpUpdated {
		t.Errorf("round trip mangled event: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp should survive the round trip")
	}
}

func TestChangeEventFromJSONInvalid(t *testing.T) {
	if _, err := ChangeEventFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed body")
	}
}
