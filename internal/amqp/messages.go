package amqp

import (
	"encoding/json"
	"time"

	"finance/internal/core"
)

// TransactionCreatedMessage announces a newly stored transaction. It carries
// only the ID and the affected month; consumers load the record from the store.
type TransactionCreatedMessage struct {
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionCreatedMessage builds the message for t.
func NewTransactionCreatedMessage(t core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:        t.ID,
		Year:      t.Date.Year,
		Month:     t.Date.Month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
