package model

import "time"

// Status is the lifecycle state of a reservation.  The value set is
// closed: anything outside these constants is rejected at the API
// boundary before a transition is even considered.
type Status string

const (
	StatusRequested       Status = "requested"
	StatusConfirmed       Status = "confirmed"
	StatusCompleted       Status = "completed"
	StatusCancelledByUser Status = "cancelled_by_user"
	StatusCancelledByShop Status = "cancelled_by_shop"
	StatusNoShow          Status = "no_show"
)

// transitions is the fixed adjacency table of allowed status changes.
// States absent from the map are terminal and accept no transition.
var transitions = map[Status][]Status{
	StatusRequested: {StatusConfirmed, StatusCancelledByShop},
	StatusConfirmed: {StatusCompleted, StatusCancelledByShop, StatusNoShow},
}

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s Status) bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCompleted,
		StatusCancelledByUser, StatusCancelledByShop, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether moving from the current status to the
// requested one is allowed by the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func IsTerminal(s Status) bool { return len(transitions[s]) == 0 }

// RequiresReason reports whether a transition into the given status must
// carry a free-text reason.  Shop-side cancellations always do, so the
// customer can be told why their booking was dropped.
func RequiresReason(to Status) bool { return to == StatusCancelledByShop }

// StampColumn returns the lifecycle timestamp column written when a
// reservation enters the given status, or "" when the status carries no
// dedicated timestamp.
func StampColumn(to Status) string {
	switch to {
	case StatusConfirmed:
		return "confirmed_at"
	case StatusCompleted:
		return "completed_at"
	case StatusCancelledByUser, StatusCancelledByShop, StatusNoShow:
		return "cancelled_at"
	}
	return ""
}

// Reservation mirrors the `reservations` table.  A reservation is always
// owned by one user and one shop; monetary amounts are stored in the
// smallest currency unit.
//
// Fields:
//  ID          – primary key identifier.
//  ShopID      – shop the booking was made at.
//  UserID      – customer who booked.
//  MenuName    – booked service (cut, color, nails, ...).
//  Status      – lifecycle state, see the Status constants.
//  AmountPaid  – total paid in the smallest currency unit.
//  PointsUsed  – loyalty points spent on this booking.
//  Reason      – cancellation reason (nullable).
//  StartsAt    – scheduled start of the appointment.
//  CreatedAt   – creation timestamp.
//  ConfirmedAt – when the shop confirmed (nullable).
//  CompletedAt – when the visit finished (nullable).
//  CancelledAt – when cancelled or marked no-show (nullable).
type Reservation struct {
	ID          uint64     `db:"id" json:"id"`
	ShopID      uint64     `db:"shop_id" json:"shop_id"`
	UserID      uint64     `db:"user_id" json:"user_id"`
	MenuName    string     `db:"menu_name" json:"menu_name"`
	Status      Status     `db:"status" json:"status"`
	AmountPaid  int64      `db:"amount_paid" json:"amount_paid"`
	PointsUsed  int64      `db:"points_used" json:"points_used"`
	Reason      *string    `db:"reason" json:"reason,omitempty"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}
