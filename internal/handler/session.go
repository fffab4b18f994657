package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/repository"
)

// SessionHandler exposes session enumeration, revocation and the
// advisory anomaly signal.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Log      *zap.SugaredLogger
}

func NewSessionHandler(s *repository.SessionRepo, log *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{Sessions: s, Log: log}
}

type sessionView struct {
	ID         string    `json:"id"`
	Device     string    `json:"device,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Current    bool      `json:"current"`
}

// List enumerates the caller's active sessions, flagging the current
// one.  A caller that knows its session id from elsewhere may pass it as
// ?current=<id> instead of relying on the token claim.
func (h *SessionHandler) List(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	currentID := c.QueryParam("current")
	if currentID == "" {
		currentID = actor.SessionID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.ListActive(ctx, actor.UserID)
	if err != nil {
		h.Log.Errorw("list sessions failed", "user_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "list sessions failed")
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:         s.ID,
			Device:     s.Device,
			IPAddress:  s.IPAddress,
			IssuedAt:   s.IssuedAt,
			ExpiresAt:  s.ExpiresAt,
			LastUsedAt: s.LastUsedAt,
			Current:    s.ID == currentID,
		})
	}
	return ok(c, http.StatusOK, echo.Map{
		"sessions":     views,
		"max_sessions": model.MaxActiveSessions, // advertised cap, display only
	})
}

// RevokeOne revokes a single session by id.  Revoking a missing or
// already-revoked session reports not-found; the operation is idempotent
// and never escalates to a server error.
func (h *SessionHandler) RevokeOne(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	sessionID := c.Param("id")
	if sessionID == "" {
		return fail(c, http.StatusBadRequest, "missing_fields", "session id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Sessions.Revoke(ctx, sessionID, actor.UserID, "revoked_by_user")
	if err == sql.ErrNoRows {
		return fail(c, http.StatusNotFound, "session_not_found", "session not found or already revoked")
	}
	if err != nil {
		h.Log.Errorw("revoke session failed", "session_id", sessionID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "revoke failed")
	}
	return c.NoContent(http.StatusNoContent)
}

type revokeOthersReq struct {
	ExcludeSessionID string `json:"exclude_session_id"`
}

// RevokeOthers revokes every session of the caller except the excluded
// one (defaulting to the caller's current session) and reports counts.
func (h *SessionHandler) RevokeOthers(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	var req revokeOthersReq
	_ = c.Bind(&req)
	keep := req.ExcludeSessionID
	if keep == "" {
		keep = actor.SessionID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	revoked, err := h.Sessions.RevokeOthers(ctx, actor.UserID, keep, "revoked_by_user")
	if err != nil {
		h.Log.Errorw("revoke others failed", "user_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "revoke failed")
	}
	return ok(c, http.StatusOK, echo.Map{
		"revoked": revoked,
		"failed":  0,
		"kept":    keep,
	})
}

// Insights returns the advisory session anomaly signal.  It flags
// excessive session count, high device diversity and multiple
// simultaneous locations, and grades a qualitative risk score.  Nothing
// here enforces anything.
func (h *SessionHandler) Insights(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ins, err := h.Sessions.Insights(ctx, actor.UserID)
	if err != nil {
		h.Log.Errorw("session insights failed", "user_id", actor.UserID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "insights failed")
	}

	excessive := ins.ActiveSessions > model.MaxActiveSessions
	diverse := ins.DistinctDevices >= 4
	multiLoc := ins.DistinctIPs >= 3

	score := 0
	for _, flag := range []bool{excessive, diverse, multiLoc} {
		if flag {
			score++
		}
	}
	risk := "low"
	switch score {
	case 1:
		risk = "elevated"
	case 2, 3:
		risk = "high"
	}

	return ok(c, http.StatusOK, echo.Map{
		"active_sessions":         ins.ActiveSessions,
		"distinct_devices":        ins.DistinctDevices,
		"distinct_ips":            ins.DistinctIPs,
		"excessive_session_count": excessive,
		"high_device_diversity":   diverse,
		"multiple_locations":      multiLoc,
		"risk":                    risk,
	})
}
