// Package queue defines message payloads exchanged over the message broker
// plus the publisher and background consumer for them.
package queue

// ReviewCreatedEvent is published when a first-time review lands.  It
// carries enough for downstream consumers to log or trigger notifications
// without querying the primary database.
type ReviewCreatedEvent struct {
	ReviewID  uint64 `json:"review_id"`
	UserID    uint64 `json:"user_id"`
	ProductID uint64 `json:"product_id"`
	Grade     uint8  `json:"grade"`
	CreatedAt string `json:"created_at"`
}
