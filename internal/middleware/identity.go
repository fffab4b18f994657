package middleware

// identity.go defines the typed authorization context shared by the
// middleware chain and the handlers.  JWTAuth builds an Actor once per
// request; everything downstream reads it instead of re-parsing claims.

import (
	"github.com/labstack/echo/v4"
)

// actorKey is the context key the Actor is stored under.
const actorKey = "actor"

// Actor is the authenticated principal of a request.
type Actor struct {
	UserID    uint64
	Role      string
	SessionID string
}

// ActorFrom returns the Actor stored by JWTAuth.  The second return is
// false on unauthenticated routes.
func ActorFrom(c echo.Context) (Actor, bool) {
	a, ok := c.Get(actorKey).(Actor)
	return a, ok
}

// setActor stores the Actor; split out for tests.
func setActor(c echo.Context, a Actor) { c.Set(actorKey, a) }
