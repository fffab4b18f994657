package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/repository"
	"github.com/kirei-app/kirei-api/internal/service"
)

// ReservationHandler serves the customer-facing reservation reads.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Cache        *service.ReservationCache
	Log          *zap.SugaredLogger
}

func NewReservationHandler(r *repository.ReservationRepo, cache *service.ReservationCache, log *zap.SugaredLogger) *ReservationHandler {
	return &ReservationHandler{Reservations: r, Cache: cache, Log: log}
}

// List returns the caller's reservations, newest first.  The list is
// served from the per-user cache when present; transitions invalidate it.
func (h *ReservationHandler) List(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if cached, hit := h.Cache.GetUserList(ctx, actor.UserID); hit {
		c.Response().Header().Set("X-Cache", "HIT")
		return ok(c, http.StatusOK, cached)
	}

	list, err := h.Reservations.ListByUser(ctx, actor.UserID)
	if err != nil {
		h.Log.Errorw("list reservations failed", "user_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "list reservations failed")
	}
	h.Cache.SetUserList(ctx, actor.UserID, list)
	return ok(c, http.StatusOK, list)
}

// Get returns one reservation scoped to its owner.  Reservations of
// other users are indistinguishable from missing ones.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid_id", "invalid reservation id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByIDForUser(ctx, id, actor.UserID)
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "not_found", "reservation not found")
	}
	if err != nil {
		h.Log.Errorw("get reservation failed", "reservation_id", id, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "get reservation failed")
	}
	return ok(c, http.StatusOK, res)
}
