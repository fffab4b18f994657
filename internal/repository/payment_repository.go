package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/kirei-app/kirei-api/internal/model"
)

// PaymentRepo records charge and refund outcomes reported by the
// payment gateway.
type PaymentRepo struct{ DB *sqlx.DB }

func NewPaymentRepo(db *sqlx.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

const paymentColumns = "id, ref, reservation_id, user_id, amount, status, refund_reason, created_at, updated_at"

// Create inserts a payment row and returns its ID.
func (r *PaymentRepo) Create(ctx context.Context, p model.Payment) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO payments (ref, reservation_id, user_id, amount, status)
		 VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		p.Ref, p.ReservationID, p.UserID, p.Amount, p.Status).Scan(&id)
	return id, err
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	var p model.Payment
	err := r.DB.GetContext(ctx, &p,
		"SELECT "+paymentColumns+" FROM payments WHERE id=$1", id)
	return p, err
}

// GetByIDForShop fetches a payment and verifies the caller owns the shop
// the underlying reservation belongs to.  Returns ErrForbidden on an
// ownership mismatch.
func (r *PaymentRepo) GetByIDForShop(ctx context.Context, id, ownerID uint64) (model.Payment, error) {
	var row struct {
		model.Payment
		ShopOwner uint64 `db:"shop_owner"`
	}
	err := r.DB.GetContext(ctx, &row,
		`SELECT p.id, p.ref, p.reservation_id, p.user_id, p.amount, p.status, p.refund_reason,
		        p.created_at, p.updated_at, s.owner_id AS shop_owner
		 FROM payments p
		 JOIN reservations r ON r.id = p.reservation_id
		 JOIN shops s ON s.id = r.shop_id
		 WHERE p.id=$1`, id)
	if err != nil {
		return model.Payment{}, err
	}
	if row.ShopOwner != ownerID {
		return model.Payment{}, ErrForbidden
	}
	return row.Payment, nil
}

// MarkRefunded flips a captured payment to refunded with a reason.  A
// payment that is not in the captured state yields ErrConflict.
func (r *PaymentRepo) MarkRefunded(ctx context.Context, id uint64, reason string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE payments SET status=$1, refund_reason=$2, updated_at=NOW()
		 WHERE id=$3 AND status=$4`,
		model.PaymentRefunded, reason, id, model.PaymentCaptured)
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
	return nil
}
