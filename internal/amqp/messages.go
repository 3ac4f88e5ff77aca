package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"condofin/internal/core"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTransactionRecorded EventType = "transaction.recorded"
	EventTransactionDeleted  EventType = "transaction.deleted"
)

// LedgerEvent announces a change to one transaction. It carries identifiers
// only; consumers load the current state from the store.
type LedgerEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	CondominiumID int64     `json:"condominium_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent builds an event for tx. tx must have been persisted.
func NewLedgerEvent(typ EventType, tx core.FinancialTransaction) (*LedgerEvent, error) {
	if tx.ID == nil {
		return nil, fmt.Errorf("ledger event for unsaved transaction")
	}
	return &LedgerEvent{
		EventID:       uuid.NewString(),
		Type:          typ,
		TransactionID: *tx.ID,
		CondominiumID: tx.CondominiumID,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", msg.EventID, err)
	}
	switch msg.Type {
	case EventTransactionRecorded, EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.TransactionID <= 0 {
		return nil, fmt.Errorf("invalid transaction id %d", msg.TransactionID)
	}
	return &msg, nil
}
