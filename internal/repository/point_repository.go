package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kirei-app/kirei-api/internal/model"
)

// PointRepo maintains the loyalty ledger and the denormalized balance on
// the user row.  Credits and the balance update share one transaction.
type PointRepo struct{ DB *sqlx.DB }

func NewPointRepo(db *sqlx.DB) *PointRepo { return &PointRepo{DB: db} }

// CreditForReservation awards points for a completed reservation.  The
// ledger has a unique index on (reservation_id, kind) for earn rows, so a
// second credit attempt for the same reservation inserts nothing and
// returns ErrConflict instead of double-counting.
func (r *PointRepo) CreditForReservation(ctx context.Context, userID, reservationID uint64, amount int64) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO point_transactions (user_id, reservation_id, amount, kind)
		 VALUES ($1,$2,$3,'earn')
		 ON CONFLICT (reservation_id, kind) DO NOTHING`,
		userID, reservationID, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET available_points = available_points + $1, updated_at=NOW() WHERE id=$2",
		amount, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// Balance returns the current point balance for a user.
func (r *PointRepo) Balance(ctx context.Context, userID uint64) (int64, error) {
	var balance int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT available_points FROM users WHERE id=$1", userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, err
	}
	return balance, err
}

// RecentLedger returns the newest ledger entries for a user.
func (r *PointRepo) RecentLedger(ctx context.Context, userID uint64, limit int) ([]model.PointTransaction, error) {
	ledger := []model.PointTransaction{}
	err := r.DB.SelectContext(ctx, &ledger,
		`SELECT id, user_id, reservation_id, amount, kind, created_at
		 FROM point_transactions WHERE user_id=$1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	return ledger, err
}
