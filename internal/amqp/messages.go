package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionRemoved EventKind = "transaction.removed"
	TransferCreated    EventKind = "transfer.created"
	TransferRemoved    EventKind = "transfer.removed"
	ReminderDue        EventKind = "reminder.due"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionRemoved, TransferCreated, TransferRemoved, ReminderDue:
		return true
	}
	return false
}

// LedgerEvent is a lightweight notification. It carries ids only; consumers
// read current state from the store, so redelivery and reordering are safe.
type LedgerEvent struct {
	Kind           EventKind `json:"kind"`
	TransactionIDs []string  `json:"transactionIds,omitempty"`
	TransferID     string    `json:"transferId,omitempty"`
	ReminderID     string    `json:"reminderId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind EventKind) *LedgerEvent {
	return &LedgerEvent{Kind: kind, Timestamp: time.Now()}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes a delivery body and rejects unknown kinds.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return &ev, nil
}
