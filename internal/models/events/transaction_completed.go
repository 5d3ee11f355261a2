package events

import (
	"time"
)

// TopicTransactionCompleted is the default topic for TransactionCompleted events.
const TopicTransactionCompleted = "transaction_completed"

// TransactionCompleted is published once a fresh posting has committed.
type TransactionCompleted struct {
	TransactionID string    `json:"transaction_id"`
	Kind          string    `json:"kind"`
	FromAccount   string    `json:"from_account"`
	ToAccount     string    `json:"to_account"`
	AmountMinor   int64     `json:"amount_minor"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PartitionKey keeps every event of one transaction on the same partition.
func (e TransactionCompleted) PartitionKey() string {
	return e.TransactionID
}
