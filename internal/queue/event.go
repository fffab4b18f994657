// Package queue defines message payloads exchanged over the message
// broker and the background consumer that fans them out.
package queue

// StatusQueueName is the durable queue carrying reservation lifecycle
// events from the API to the fan-out consumer.
const StatusQueueName = "reservation.status"

// ReservationStatusEvent is published after a status transition commits.
// It carries enough information for downstream consumers to notify the
// customer, the shop dashboard and the admin room without querying the
// primary database.
type ReservationStatusEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	ShopID        uint64 `json:"shop_id"`
	UserID        uint64 `json:"user_id"`
	MenuName      string `json:"menu_name"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	Reason        string `json:"reason,omitempty"`
	AmountPaid    int64  `json:"amount_paid"`
	PointsEarned  int64  `json:"points_earned,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
