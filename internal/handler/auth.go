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

	"github.com/kirei-app/kirei-api/internal/config"
	"github.com/kirei-app/kirei-api/internal/middleware"
	"github.com/kirei-app/kirei-api/internal/model"
	"github.com/kirei-app/kirei-api/internal/repository"
	"github.com/kirei-app/kirei-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Sessions *repository.SessionRepo
	Log      *zap.SugaredLogger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, s *repository.SessionRepo, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // CUSTOMER | SHOP
	Device   string `json:"device"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Device   string `json:"device"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User      userPart  `json:"user"`
	SessionID string    `json:"session_id"`
	Access    tokenPart `json:"access"`
	Refresh   tokenPart `json:"refresh"`
}

// issueSession creates a session row plus an access/refresh pair for it.
func (h *AuthHandler) issueSession(ctx context.Context, u model.User, device, ip string) (authResp, error) {
	now := time.Now().UTC()
	sess := model.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Device:    strings.TrimSpace(device),
		IPAddress: ip,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Duration(h.Cfg.SessionTTLDays) * 24 * time.Hour),
	}
	if err := h.Sessions.Create(ctx, sess); err != nil {
		return authResp{}, err
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, sess.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Sessions.StoreRefresh(ctx, sess.ID, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:      userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		SessionID: sess.ID,
		Access:    tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh:   tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a user and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "missing_fields", "email/password required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleShop {
		role = model.RoleCustomer // admin accounts are provisioned out of band
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return fail(c, http.StatusConflict, "email_exists", "email already exists")
		}
		h.Log.Errorw("create user failed", "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "create user failed")
	}

	resp, err := h.issueSession(ctx, model.User{ID: uid, Email: req.Email, Role: role}, req.Device, c.RealIP())
	if err != nil {
		h.Log.Errorw("issue session failed", "user_id", uid, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "issue tokens failed")
	}
	return ok(c, http.StatusCreated, resp)
}

// Login verifies credentials and opens a new session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid_body", "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "missing_fields", "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		}
		h.Log.Errorw("login query failed", "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "query failed")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	}

	resp, err := h.issueSession(ctx, u, req.Device, c.RealIP())
	if err != nil {
		h.Log.Errorw("issue session failed", "user_id", u.ID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "issue tokens failed")
	}
	return ok(c, http.StatusOK, resp)
}

// Refresh exchanges a live refresh token for a new access/refresh pair,
// rotating the old token.  Expired and unknown tokens get distinct
// reason codes so the client knows whether to re-login immediately.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "missing_fields", "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, sessionID, err := h.Sessions.ValidateRefresh(ctx, hash)
	switch {
	case err == repository.ErrTokenExpired:
		return fail(c, http.StatusUnauthorized, "token_expired", "refresh token expired")
	case err == sql.ErrNoRows:
		return fail(c, http.StatusUnauthorized, "token_invalid", "unknown or revoked refresh token")
	case err != nil:
		h.Log.Errorw("validate refresh failed", "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "refresh failed")
	}
	_ = h.Sessions.RevokeRefreshByHash(ctx, hash)
	_ = h.Sessions.TouchLastUsed(ctx, sessionID)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		h.Log.Errorw("load user failed", "user_id", userID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "load user failed")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Role, sessionID, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "internal", "issue access failed")
	}
	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "internal", "issue refresh failed")
	}
	if err := h.Sessions.StoreRefresh(ctx, sessionID, userID, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
		return fail(c, http.StatusInternalServerError, "internal", "save refresh failed")
	}

	return ok(c, http.StatusOK, authResp{
		User:      userPart{ID: userID, Email: u.Email, Role: u.Role},
		SessionID: sessionID,
		Access:    tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh:   tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// Logout revokes the caller's current session.  When the body carries a
// refresh_token, the session owning that token is revoked instead, which
// lets a client kill a specific device's session.
func (h *AuthHandler) Logout(c echo.Context) error {
	actor, hasActor := middleware.ActorFrom(c)

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessionID := ""
	userID := uint64(0)
	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		uid, sid, err := h.Sessions.ValidateRefresh(ctx, hash)
		if err != nil {
			return fail(c, http.StatusUnauthorized, "token_invalid", "invalid refresh token")
		}
		sessionID, userID = sid, uid
		if hasActor && userID != actor.UserID {
			return fail(c, http.StatusForbidden, "forbidden", "token belongs to another user")
		}
	} else if hasActor {
		sessionID, userID = actor.SessionID, actor.UserID
	} else {
		return fail(c, http.StatusBadRequest, "missing_fields", "provide a bearer token or refresh_token")
	}

	if err := h.Sessions.Revoke(ctx, sessionID, userID, "logout"); err != nil && err != sql.ErrNoRows {
		h.Log.Errorw("logout failed", "session_id", sessionID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me is a simple protected endpoint returning the caller's identity.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, _ := middleware.ActorFrom(c)
	return ok(c, http.StatusOK, echo.Map{
		"user_id":    actor.UserID,
		"role":       actor.Role,
		"session_id": actor.SessionID,
	})
}
