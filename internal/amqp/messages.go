package amqp

import (
	"encoding/json"
	"time"
)

// Collections a change event can refer to.
const (
	CollectionTransactions = "transactions"
	CollectionPlans        = "plans"
	CollectionCategories   = "categories"
)

// Operations carried by a change event.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// ChangeEvent is the lightweight message published after every mutation.
// It carries only the collection, record id and operation; consumers fetch
// whatever they need from the database, so a lost message costs freshness,
// never correctness.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeEvent(collection, id, op string) *ChangeEvent {
	return &ChangeEvent{
		Collection: collection,
		ID:         id,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
