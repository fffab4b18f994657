package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/realtime"
	"github.com/kirei-app/kirei-api/internal/repository"
)

// NotificationHandler lets callers push ad-hoc messages into realtime
// rooms and gives admins a window into the connection registry.
type NotificationHandler struct {
	Hub   *realtime.Hub
	Shops *repository.ShopRepo
	Log   *zap.SugaredLogger
}

func NewNotificationHandler(hub *realtime.Hub, shops *repository.ShopRepo, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{Hub: hub, Shops: shops, Log: log}
}

type sendReq struct {
	TargetType string `json:"target_type"` // user | shop | admin | broadcast
	TargetID   uint64 `json:"target_id"`
	Priority   string `json:"priority"`
	Message    string `json:"message"`
}

// Send publishes a message to one room.  Customers and shop owners may
// only target themselves (their own user room, or a shop room they own);
// the admin room and the broadcast target require the admin role.
// Delivery is best-effort: the response reports how many live
// connections received the event, and zero is a success.
func (h *NotificationHandler) Send(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	var req sendReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return fail(c, http.StatusBadRequest, "missing_fields", "message required")
	}

	room := ""
	kind := realtime.EventSystemMessage
	switch strings.ToLower(req.TargetType) {
	case "user":
		if req.TargetID == 0 {
			return fail(c, http.StatusBadRequest, "missing_fields", "target_id required")
		}
		if actor.Role != model.RoleAdmin && req.TargetID != actor.UserID {
			return fail(c, http.StatusForbidden, "forbidden", "cannot target another user")
		}
		room = realtime.UserRoom(req.TargetID)
	case "shop":
		if req.TargetID == 0 {
			return fail(c, http.StatusBadRequest, "missing_fields", "target_id required")
		}
		if actor.Role != model.RoleAdmin {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			owns, err := h.Shops.IsOwner(ctx, req.TargetID, actor.UserID)
			cancel()
			if err == sql.ErrNoRows {
				return fail(c, http.StatusNotFound, "not_found", "shop not found")
			}
			if err != nil {
				h.Log.Errorw("ownership check failed", "shop_id", req.TargetID, "err", err)
				return fail(c, http.StatusInternalServerError, "internal", "ownership check failed")
			}
			if !owns {
				return fail(c, http.StatusForbidden, "forbidden", "shop belongs to another owner")
			}
		}
		room = realtime.ShopRoom(req.TargetID)
	case "admin":
		if !middleware.HasCapability(actor.Role, middleware.CapAdminNotify) {
			return fail(c, http.StatusForbidden, "forbidden", "admin room requires the admin role")
		}
		room = realtime.AdminRoom
		kind = realtime.EventAdminNotification
	case "broadcast":
		if !middleware.HasCapability(actor.Role, middleware.CapAdminNotify) {
			return fail(c, http.StatusForbidden, "forbidden", "broadcast requires the admin role")
		}
		room = realtime.BroadcastRoom
	default:
		return fail(c, http.StatusBadRequest, "invalid_target", "target_type must be user, shop, admin or broadcast")
	}

	delivered := h.Hub.Publish(realtime.Event{
		ID:       uuid.NewString(),
		Type:     kind,
		Room:     room,
		Priority: strings.ToLower(req.Priority),
		Payload:  echo.Map{"message": req.Message, "from_user_id": actor.UserID},
		SentAt:   time.Now().UTC(),
	})

	return ok(c, http.StatusOK, echo.Map{
		"room":      room,
		"delivered": delivered,
	})
}

// Sweep drops stale connections immediately instead of waiting for the
// next scheduled pass, and returns registry counts.  Admin only.
func (h *NotificationHandler) Sweep(c echo.Context) error {
	swept := h.Hub.SweepStale()
	conns, rooms := h.Hub.Counts()
	return ok(c, http.StatusOK, echo.Map{
		"swept":       swept,
		"connections": conns,
		"rooms":       rooms,
	})
}
