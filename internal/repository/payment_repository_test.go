package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirei-app/kirei-api/internal/model"
)

func TestGetByIDForShopRejectsForeignOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepo(db)

	now := time.Now()
	mock.ExpectQuery(`JOIN shops s ON`).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "ref", "reservation_id", "user_id", "amount", "status",
			"refund_reason", "created_at", "updated_at", "shop_owner",
		}).AddRow(5, "ref-1", 11, 9, 8000, model.PaymentCaptured, nil, now, now, 777))

	_, err := repo.GetByIDForShop(context.Background(), 5, 42)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMarkRefundedRequiresCapturedState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepo(db)

	mock.ExpectExec(`UPDATE payments SET status=`).
		WithArgs(model.PaymentRefunded, "duplicate charge", uint64(5), model.PaymentCaptured).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRefunded(context.Background(), 5, "duplicate charge")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMarkRefundedCapturedPayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepo(db)

	mock.ExpectExec(`UPDATE payments SET status=`).
		WithArgs(model.PaymentRefunded, "customer request", uint64(5), model.PaymentCaptured).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRefunded(context.Background(), 5, "customer request"))
}
