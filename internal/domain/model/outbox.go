package model

import "time"

// OutboxMessage is a pending event row written in the same transaction as
// the state change it announces; the relay publishes and marks it.
type OutboxMessage struct {
	ID         int64             `json:"id"`
	Topic      string            `json:"topic"`
	Key        string            `json:"key"`
	EventType  string            `json:"event_type"`
	Payload    []byte            `json:"payload"`
	Headers    map[string]string `json:"headers"`
	RetryCount int               `json:"retry_count"`
	CreatedAt  time.Time         `json:"created_at"`
}
