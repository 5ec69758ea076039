package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// TransactionCreatedMessage announces that a transaction was registered.
// It carries ids only: consumers load the transaction from storage.
type TransactionCreatedMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Version       uint64    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(userID, transactionID string, version uint64) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Version:       version,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *TransactionCreatedMessage) Validate() error {
	if m.UserID == "" {
		return errors.New("message has no user_id")
	}
	if m.TransactionID == "" {
		return errors.New("message has no transaction_id")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes and validates a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
