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
)

// PointHandler exposes the loyalty balance and ledger to customers.
type PointHandler struct {
	Points *repository.PointRepo
	Log    *zap.SugaredLogger
}

func NewPointHandler(p *repository.PointRepo, log *zap.SugaredLogger) *PointHandler {
	return &PointHandler{Points: p, Log: log}
}

// Balance returns the caller's point balance with the newest ledger
// entries.  ?limit= caps the ledger slice, default 10, max 50.
func (h *PointHandler) Balance(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	limit := 10
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 50 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	balance, err := h.Points.Balance(ctx, actor.UserID)
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "not_found", "user not found")
	}
	if err != nil {
		h.Log.Errorw("point balance failed", "user_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "balance lookup failed")
	}

	ledger, err := h.Points.RecentLedger(ctx, actor.UserID, limit)
	if err != nil {
		h.Log.Errorw("point ledger failed", "user_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "ledger lookup failed")
	}

	return ok(c, http.StatusOK, echo.Map{
		"available_points": balance,
		"ledger":           ledger,
	})
}
