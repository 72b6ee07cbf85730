package amqp

import (
	"encoding/json"
	"time"
)

// FundingEventMessage is the lightweight message published after a
// funding ledger row is written locally. It carries only the entry id;
// the worker fetches the full row from the database before mirroring it.
type FundingEventMessage struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewFundingEventMessage creates a funding event message for one ledger row.
func NewFundingEventMessage(entryID string) *FundingEventMessage {
	return &FundingEventMessage{
		EntryID:   entryID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *FundingEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FundingEventMessageFromJSON creates a message from JSON bytes.
func FundingEventMessageFromJSON(data []byte) (*FundingEventMessage, error) {
	var msg FundingEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
