package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kirei-app/kirei-api/internal/model"
)

// ReservationRepo provides read and transition operations for
// reservations.  Creation happens in the booking flow, which is outside
// this service; everything here mutates or reads existing rows.
type ReservationRepo struct{ DB *sqlx.DB }

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationColumns = `id, shop_id, user_id, menu_name, status, amount_paid, points_used,
	reason, starts_at, created_at, confirmed_at, completed_at, cancelled_at`

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := r.DB.GetContext(ctx, &res,
		"SELECT "+reservationColumns+" FROM reservations WHERE id=$1", id)
	return res, err
}

// GetByIDForUser fetches a reservation scoped to its owning user.
// Reservations of other users surface as sql.ErrNoRows so the handler
// cannot leak their existence.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (model.Reservation, error) {
	var res model.Reservation
	err := r.DB.GetContext(ctx, &res,
		"SELECT "+reservationColumns+" FROM reservations WHERE id=$1 AND user_id=$2", id, userID)
	return res, err
}

// ListByUser returns a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	list := []model.Reservation{}
	err := r.DB.SelectContext(ctx, &list,
		"SELECT "+reservationColumns+" FROM reservations WHERE user_id=$1 ORDER BY created_at DESC",
		userID)
	return list, err
}

// ListByShop returns reservations for a shop with an optional status
// filter and limit/offset pagination, newest first.
func (r *ReservationRepo) ListByShop(ctx context.Context, shopID uint64, status model.Status, limit, offset int) ([]model.Reservation, error) {
	list := []model.Reservation{}
	if status != "" {
		err := r.DB.SelectContext(ctx, &list,
			"SELECT "+reservationColumns+` FROM reservations
			 WHERE shop_id=$1 AND status=$2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
			shopID, status, limit, offset)
		return list, err
	}
	err := r.DB.SelectContext(ctx, &list,
		"SELECT "+reservationColumns+` FROM reservations
		 WHERE shop_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		shopID, limit, offset)
	return list, err
}

// UpdateStatusCAS applies a status transition with a compare-and-swap on
// the current status: the UPDATE only matches when the row still holds
// the status the caller validated against.  The winning update stamps the
// lifecycle timestamp for the new status and stores the reason, if any.
//
// When the CAS misses, a follow-up read distinguishes a vanished row
// (sql.ErrNoRows) from a concurrent transition (ErrStaleStatus).
func (r *ReservationRepo) UpdateStatusCAS(ctx context.Context, id uint64, from, to model.Status, reason *string) (model.Reservation, error) {
	stamp := ""
	if col := model.StampColumn(to); col != "" {
		stamp = fmt.Sprintf(", %s=NOW()", col) // col comes from a fixed set, never user input
	}
	q := fmt.Sprintf(
		`UPDATE reservations SET status=$1, reason=COALESCE($2, reason)%s
		 WHERE id=$3 AND status=$4
		 RETURNING %s`, stamp, reservationColumns)
	var res model.Reservation
	err := r.DB.GetContext(ctx, &res, q, to, reason, id, from)
	if err == nil {
		return res, nil
	}
	if err != sql.ErrNoRows {
		return model.Reservation{}, err
	}
	// CAS missed: find out why.
	var current model.Status
	if err2 := r.DB.QueryRowContext(ctx,
		"SELECT status FROM reservations WHERE id=$1", id).Scan(&current); err2 != nil {
		return model.Reservation{}, err2 // sql.ErrNoRows -> reservation gone
	}
	return model.Reservation{}, ErrStaleStatus
}
