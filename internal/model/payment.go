package model

import "time"

// Payment states as reported back by the gateway.
const (
	PaymentAuthorized = "authorized"
	PaymentCaptured   = "captured"
	PaymentRefunded   = "refunded"
	PaymentFailed     = "failed"
)

// Payment mirrors the `payments` table.  The gateway protocol itself is
// external; this row only records the outcome and the gateway reference
// needed for refunds.
//
// Fields:
//  ID            – primary key identifier.
//  Ref           – uuid reference shared with the gateway.
//  ReservationID – reservation the charge belongs to.
//  UserID        – paying customer.
//  Amount        – charged amount in the smallest currency unit.
//  Status        – one of the Payment* constants.
//  RefundReason  – reason supplied on refund (nullable).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Payment struct {
	ID            uint64    `db:"id" json:"id"`
	Ref           string    `db:"ref" json:"ref"`
	ReservationID uint64    `db:"reservation_id" json:"reservation_id"`
	UserID        uint64    `db:"user_id" json:"user_id"`
	Amount        int64     `db:"amount" json:"amount"`
	Status        string    `db:"status" json:"status"`
	RefundReason  *string   `db:"refund_reason" json:"refund_reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
