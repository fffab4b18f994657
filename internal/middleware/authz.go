package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kirei-app/kirei-api/internal/model"
)

// Capability names an action a role may perform.  Routes declare the
// capability they need; the single table below decides which roles hold
// it.  This replaces scattering the same role checks across handlers.
type Capability string

const (
	CapViewOwnBookings      Capability = "bookings:view_own"
	CapManageShop           Capability = "shop:manage"
	CapTransitionBooking    Capability = "bookings:transition"
	CapChargePayment        Capability = "payments:charge"
	CapRefundPayment        Capability = "payments:refund"
	CapManageSessions       Capability = "sessions:manage"
	CapSendNotification     Capability = "notifications:send"
	CapAdminNotify          Capability = "notifications:admin"
	CapSweepConnections     Capability = "realtime:sweep"
	CapViewShopReservations Capability = "bookings:view_shop"
)

// capabilities is the role-by-capability grant table.
var capabilities = map[string]map[Capability]bool{
	model.RoleCustomer: {
		CapViewOwnBookings:  true,
		CapChargePayment:    true,
		CapManageSessions:   true,
		CapSendNotification: true,
	},
	model.RoleShop: {
		CapViewOwnBookings:      true,
		CapManageShop:           true,
		CapTransitionBooking:    true,
		CapRefundPayment:        true,
		CapManageSessions:       true,
		CapSendNotification:     true,
		CapViewShopReservations: true,
	},
	model.RoleAdmin: {
		CapViewOwnBookings:      true,
		CapManageShop:           true,
		CapTransitionBooking:    true,
		CapRefundPayment:        true,
		CapManageSessions:       true,
		CapSendNotification:     true,
		CapAdminNotify:          true,
		CapSweepConnections:     true,
		CapViewShopReservations: true,
	},
}

// HasCapability reports whether a role holds a capability.  Unknown
// roles hold nothing.
func HasCapability(role string, cap Capability) bool {
	return capabilities[role][cap]
}

// RequireCapability returns a middleware that aborts with 403 unless the
// authenticated Actor's role holds the given capability.  It assumes
// JWTAuth ran earlier in the chain.
func RequireCapability(cap Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errEnvelope("missing_token", "authentication required"))
			}
			if !HasCapability(actor.Role, cap) {
				return c.JSON(http.StatusForbidden, errEnvelope("forbidden", "insufficient role"))
			}
			return next(c)
		}
	}
}
