package router

import (
	"github.com/labstack/echo/v4"

	"github.com/kirei-app/kirei-api/internal/handler"
	"github.com/kirei-app/kirei-api/internal/middleware"
)

// APIHandlers bundles every handler mounted on the protected group.
type APIHandlers struct {
	Auth          *handler.AuthHandler
	Sessions      *handler.SessionHandler
	Reservations  *handler.ReservationHandler
	ShopResv      *handler.ShopReservationHandler
	Shops         *handler.ShopHandler
	Payments      *handler.PaymentHandler
	Points        *handler.PointHandler
	Notifications *handler.NotificationHandler
	WS            *handler.WSHandler
}

// RegisterAPI mounts the authenticated surface under /v1.  Every route
// declares the capability it needs; the grant table in the middleware
// package decides which roles pass.
func RegisterAPI(e *echo.Echo, h APIHandlers, jwtSecret string, extra ...echo.MiddlewareFunc) {
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	for _, mw := range extra {
		api.Use(mw)
	}

	api.GET("/me", h.Auth.Me)
	api.POST("/logout", h.Auth.Logout)

	// Shop management.  Browsing stays public; creation and edits need
	// the shop capability.
	api.POST("/shop/shops", h.Shops.Create,
		middleware.RequireCapability(middleware.CapManageShop))
	api.PUT("/shop/shops/:id", h.Shops.Update,
		middleware.RequireCapability(middleware.CapManageShop))

	// Customer-side reservations.
	api.GET("/reservations", h.Reservations.List,
		middleware.RequireCapability(middleware.CapViewOwnBookings))
	api.GET("/reservations/:id", h.Reservations.Get,
		middleware.RequireCapability(middleware.CapViewOwnBookings))

	// Shop-side reservations.
	api.PATCH("/shop/reservations/:id/status", h.ShopResv.UpdateStatus,
		middleware.RequireCapability(middleware.CapTransitionBooking))
	api.GET("/shop/shops/:id/reservations", h.ShopResv.ListByShop,
		middleware.RequireCapability(middleware.CapViewShopReservations))

	// Session lifecycle.
	api.GET("/sessions", h.Sessions.List,
		middleware.RequireCapability(middleware.CapManageSessions))
	api.DELETE("/sessions/:id", h.Sessions.RevokeOne,
		middleware.RequireCapability(middleware.CapManageSessions))
	api.POST("/sessions/revoke-others", h.Sessions.RevokeOthers,
		middleware.RequireCapability(middleware.CapManageSessions))
	api.GET("/sessions/insights", h.Sessions.Insights,
		middleware.RequireCapability(middleware.CapManageSessions))

	// Payments.
	api.POST("/payments/charge", h.Payments.Charge,
		middleware.RequireCapability(middleware.CapChargePayment))
	api.POST("/shop/payments/:id/refund", h.Payments.Refund,
		middleware.RequireCapability(middleware.CapRefundPayment))

	// Loyalty points.
	api.GET("/points", h.Points.Balance,
		middleware.RequireCapability(middleware.CapViewOwnBookings))

	// Realtime.
	api.GET("/ws", h.WS.Serve)
	api.POST("/notifications/send", h.Notifications.Send,
		middleware.RequireCapability(middleware.CapSendNotification))
	api.POST("/admin/realtime/sweep", h.Notifications.Sweep,
		middleware.RequireCapability(middleware.CapSweepConnections))
}
