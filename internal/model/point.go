package model

import "time"

// PointTransaction is one entry in the loyalty ledger
// (`point_transactions` table).  Positive amounts are credits, negative
// amounts are spends.  At most one completion credit may exist per
// reservation; the table enforces that with a unique index.
type PointTransaction struct {
	ID            uint64    `db:"id" json:"id"`
	UserID        uint64    `db:"user_id" json:"user_id"`
	ReservationID *uint64   `db:"reservation_id" json:"reservation_id,omitempty"`
	Amount        int64     `db:"amount" json:"amount"`
	Kind          string    `db:"kind" json:"kind"` // earn | spend | adjust
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
