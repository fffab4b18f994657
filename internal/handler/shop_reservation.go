package handler

import (
	"context"
	"database/sql"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/config"
	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/queue"
	"github.com/kirei-app/kirei-api/internal/repository"
	"github.com/kirei-app/kirei-api/internal/service"
)

// ShopReservationHandler serves the shop-side reservation surface: the
// status transition endpoint and the shop-scoped listing.
type ShopReservationHandler struct {
	Cfg          config.Config
	Reservations *repository.ReservationRepo
	Shops        *repository.ShopRepo
	Points       *repository.PointRepo
	Cache        *service.ReservationCache
	Outbox       *service.Publisher
	Log          *zap.SugaredLogger
}

func NewShopReservationHandler(
	cfg config.Config,
	r *repository.ReservationRepo,
	s *repository.ShopRepo,
	p *repository.PointRepo,
	cache *service.ReservationCache,
	outbox *service.Publisher,
	log *zap.SugaredLogger,
) *ShopReservationHandler {
	return &ShopReservationHandler{
		Cfg: cfg, Reservations: r, Shops: s, Points: p,
		Cache: cache, Outbox: outbox, Log: log,
	}
}

type transitionReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// UpdateStatus gates and applies one status transition.
//
// Order of checks: input shape, resource existence, tenant authorization,
// transition table, then the compare-and-swap write.  Side effects
// (loyalty credit, cache invalidation, outbox event) run only after the
// primary write commits and never affect the response.
func (h *ShopReservationHandler) UpdateStatus(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_id", "invalid reservation id")
	}

	var req transitionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	next := model.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !model.ValidStatus(next) {
		return fail(c, http.StatusBadRequest, "invalid_status", "unknown status value")
	}
	reason := strings.TrimSpace(req.Reason)
	if model.RequiresReason(next) && reason == "" {
		return fail(c, http.StatusBadRequest, "reason_required", "cancellation by shop requires a reason")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "not_found", "reservation not found")
	}
	if err != nil {
		h.Log.Errorw("load reservation failed", "reservation_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load reservation failed")
	}

	if actor.Role != model.RoleAdmin {
		owns, err := h.Shops.IsOwner(ctx, res.ShopID, actor.UserID)
		if err != nil {
			h.Log.Errorw("ownership check failed", "shop_id", res.ShopID, "err", err)
			return fail(c, http.StatusInternalServerError, "internal", "ownership check failed")
		}
		if !owns {
			return fail(c, http.StatusForbidden, "forbidden", "reservation belongs to another shop")
		}
	}

	if !model.CanTransition(res.Status, next) {
		return failDetails(c, http.StatusConflict, "invalid_transition",
			"status transition not allowed",
			echo.Map{"from": res.Status, "to": next})
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	updated, err := h.Reservations.UpdateStatusCAS(ctx, id, res.Status, next, reasonPtr)
	switch {
	case err == repository.ErrStaleStatus:
		return fail(c, http.StatusConflict, "stale_status", "reservation was modified concurrently")
	case err == sql.ErrNoRows:
		return fail(c, http.StatusNotFound, "not_found", "reservation not found")
	case err != nil:
		h.Log.Errorw("status update failed", "reservation_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "status update failed")
	}

	points := h.applySideEffects(res, updated, reason)

	return ok(c, http.StatusOK, echo.Map{
		"reservation":    updated,
		"points_awarded": points,
	})
}

// applySideEffects runs the best-effort follow-ups to an accepted
// transition.  Failures are logged and swallowed; by the time we are
// here the primary write is already durable.
func (h *ShopReservationHandler) applySideEffects(before, after model.Reservation, reason string) int64 {
	// Detached from the request so a client disconnect does not cancel
	// side effects mid-flight.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var points int64
	if after.Status == model.StatusCompleted {
		points = int64(math.Floor(float64(after.AmountPaid) * h.Cfg.PointRate))
		if points > 0 {
			err := h.Points.CreditForReservation(ctx, after.UserID, after.ID, points)
			if err == repository.ErrConflict {
				h.Log.Debugw("points already credited", "reservation_id", after.ID)
			} else if err != nil {
				h.Log.Warnw("point credit failed", "reservation_id", after.ID, "err", err)
				points = 0
			}
		}
	}

	if err := h.Cache.InvalidateUser(ctx, after.UserID); err != nil {
		h.Log.Warnw("cache invalidation failed", "user_id", after.UserID, "err", err)
	}

	_ = h.Outbox.PublishStatusEvent(ctx, queue.ReservationStatusEvent{
		ReservationID: after.ID,
		ShopID:        after.ShopID,
		UserID:        after.UserID,
		MenuName:      after.MenuName,
		OldStatus:     string(before.Status),
		NewStatus:     string(after.Status),
		Reason:        reason,
		AmountPaid:    after.AmountPaid,
		PointsEarned:  points,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})

	return points
}

// ListByShop returns reservations for one shop with optional status
// filter and limit/offset pagination.
func (h *ShopReservationHandler) ListByShop(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	shopID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_id", "invalid shop id")
	}

	status := model.Status(strings.ToLower(c.QueryParam("status")))
	if status != "" && !model.ValidStatus(status) {
		return fail(c, http.StatusBadRequest, "invalid_status", "unknown status value")
	}
	limit, offset := pageParams(c, 20, 100)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if actor.Role != model.RoleAdmin {
		owns, err := h.Shops.IsOwner(ctx, shopID, actor.UserID)
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "not_found", "shop not found")
		}
		if err != nil {
			h.Log.Errorw("ownership check failed", "shop_id", shopID, "err", err)
			return fail(c, http.StatusInternalServerError, "internal", "ownership check failed")
		}
		if !owns {
			return fail(c, http.StatusForbidden, "forbidden", "shop belongs to another owner")
		}
	}

	list, err := h.Reservations.ListByShop(ctx, shopID, status, limit, offset)
	if err != nil {
		h.Log.Errorw("list shop reservations failed", "shop_id", shopID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "list reservations failed")
	}
	return ok(c, http.StatusOK, list)
}

// pageParams parses limit/offset with a default and a hard cap.
func pageParams(c echo.Context, def, max int) (limit, offset int) {
	limit = def
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > max {
		limit = max
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
