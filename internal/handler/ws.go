package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/realtime"
	"github.com/kirei-app/kirei-api/internal/repository"
)

// WSHandler upgrades authenticated requests to websocket connections
// registered with the hub.
type WSHandler struct {
	Hub   *realtime.Hub
	Shops *repository.ShopRepo
	Log   *zap.SugaredLogger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, shops *repository.ShopRepo, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		Hub:   hub,
		Shops: shops,
		Log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth already gates this endpoint; cross-origin browser
			// clients are expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve authorizes room membership and then upgrades.  Authorization
// runs before the upgrade so a rejected client gets a proper HTTP error
// instead of an immediately-closed socket.  Every connection joins the
// caller's private user room; ?shop=<id> additionally joins a shop room
// when the caller owns it (admins join any); admins also join the
// admin room.
func (h *WSHandler) Serve(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "missing_token", "authentication required")
	}

	rooms := []string{realtime.UserRoom(actor.UserID)}

	if raw := c.QueryParam("shop"); raw != "" {
		shopID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || shopID == 0 {
			return fail(c, http.StatusBadRequest, "invalid_id", "invalid shop id")
		}
		if actor.Role != model.RoleAdmin {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			owns, err := h.Shops.IsOwner(ctx, shopID, actor.UserID)
			cancel()
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
		rooms = append(rooms, realtime.ShopRoom(shopID))
	}

	if actor.Role == model.RoleAdmin {
		rooms = append(rooms, realtime.AdminRoom)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		h.Log.Debugw("websocket upgrade failed", "user_id", actor.UserID, "err", err)
		return nil
	}

	conn := h.Hub.Register(ws, actor.UserID, rooms...)
	h.Log.Infow("realtime connected", "user_id", actor.UserID, "rooms", rooms)
	h.Hub.ServeConn(conn) // blocks until the client goes away
	h.Log.Debugw("realtime disconnected", "user_id", actor.UserID)
	return nil
}
