package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/repository"
	"github.com/kirei-app/kirei-api/internal/service"
)

// PaymentHandler drives charges and refunds through the external
// gateway and records the outcomes.
type PaymentHandler struct {
	Payments     *repository.PaymentRepo
	Reservations *repository.ReservationRepo
	Gateway      *service.PaymentGateway
	Log          *zap.SugaredLogger
}

func NewPaymentHandler(
	p *repository.PaymentRepo,
	r *repository.ReservationRepo,
	gw *service.PaymentGateway,
	log *zap.SugaredLogger,
) *PaymentHandler {
	return &PaymentHandler{Payments: p, Reservations: r, Gateway: gw, Log: log}
}

type chargeReq struct {
	ReservationID uint64 `json:"reservation_id"`
	Amount        int64  `json:"amount"`
}

// Charge captures a payment for one of the caller's reservations.  The
// gateway reference is generated here so a retry after a transport
// failure produces a fresh ref instead of a double capture.
func (h *PaymentHandler) Charge(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	var req chargeReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	if req.ReservationID == 0 {
		return fail(c, http.StatusBadRequest, "missing_fields", "reservation_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByIDForUser(ctx, req.ReservationID, actor.UserID)
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "not_found", "reservation not found")
	}
	if err != nil {
		h.Log.Errorw("load reservation failed", "reservation_id", req.ReservationID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load reservation failed")
	}

	amount := req.Amount
	if amount <= 0 {
		amount = res.AmountPaid
	}
	if amount <= 0 {
		return fail(c, http.StatusBadRequest, "invalid_amount", "charge amount must be positive")
	}

	ref := uuid.NewString()
	if err := h.Gateway.Charge(ctx, ref, amount); err != nil {
		if errors.Is(err, service.ErrDeclined) {
			return fail(c, http.StatusBadRequest, "payment_declined", "payment was declined")
		}
		h.Log.Errorw("gateway charge failed", "ref", ref, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "payment failed")
	}

	id, err := h.Payments.Create(ctx, model.Payment{
		Ref:           ref,
		ReservationID: res.ID,
		UserID:        actor.UserID,
		Amount:        amount,
		Status:        model.PaymentCaptured,
	})
	if err != nil {
		// Gateway already captured; the row insert must not fail silently.
		h.Log.Errorw("record payment failed", "ref", ref, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "record payment failed")
	}

	payment, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		h.Log.Errorw("load payment failed", "payment_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load payment failed")
	}
	return ok(c, http.StatusCreated, payment)
}

type refundReq struct {
	Reason string `json:"reason"`
}

// Refund reverses a captured payment.  Shop owners may refund payments
// on their own shops' reservations; admins may refund any.  A payment
// that is not captured yields a conflict.
func (h *PaymentHandler) Refund(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_id", "invalid payment id")
	}

	var req refundReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return fail(c, http.StatusBadRequest, "reason_required", "refund requires a reason")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var payment model.Payment
	if actor.Role == model.RoleAdmin {
		payment, err = h.Payments.GetByID(ctx, id)
	} else {
		payment, err = h.Payments.GetByIDForShop(ctx, id, actor.UserID)
	}
	switch {
	case err == sql.ErrNoRows:
		return fail(c, http.StatusNotFound, "not_found", "payment not found")
	case err == repository.ErrForbidden:
		return fail(c, http.StatusForbidden, "forbidden", "payment belongs to another shop")
	case err != nil:
		h.Log.Errorw("load payment failed", "payment_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load payment failed")
	}

	if payment.Status != model.PaymentCaptured {
		return fail(c, http.StatusConflict, "not_refundable", "payment is not in a refundable state")
	}

	if err := h.Gateway.Refund(ctx, payment.Ref, reason); err != nil {
		if errors.Is(err, service.ErrDeclined) {
			return fail(c, http.StatusBadRequest, "refund_declined", "refund was declined")
		}
		h.Log.Errorw("gateway refund failed", "ref", payment.Ref, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "refund failed")
	}

	if err := h.Payments.MarkRefunded(ctx, id, reason); err != nil {
		if err == repository.ErrConflict {
			return fail(c, http.StatusConflict, "not_refundable", "payment already refunded")
		}
		h.Log.Errorw("mark refunded failed", "payment_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "mark refunded failed")
	}

	payment, err = h.Payments.GetByID(ctx, id)
	if err != nil {
		h.Log.Errorw("load payment failed", "payment_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load payment failed")
	}
	return ok(c, http.StatusOK, payment)
}
