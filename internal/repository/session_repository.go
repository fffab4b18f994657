package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kirei-app/kirei-api/internal/model"
)

// SessionRepo manages login sessions and the refresh tokens bound to
// them.  Revoking a session implicitly invalidates its token chain: the
// refresh validation query joins the session row and rejects tokens whose
// session has been revoked.
type SessionRepo struct{ DB *sqlx.DB }

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.  The caller supplies the uuid so it can
// be embedded in the access token before the insert round-trips.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, device, ip_address, issued_at, expires_at, last_used_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$5)`,
		s.ID, s.UserID, s.Device, s.IPAddress, s.IssuedAt, s.ExpiresAt)
	return err
}

// ListActive returns all non-revoked, non-expired sessions for a user,
// newest first.
func (r *SessionRepo) ListActive(ctx context.Context, userID uint64) ([]model.Session, error) {
	sessions := []model.Session{}
	err := r.DB.SelectContext(ctx, &sessions,
		`SELECT id, user_id, device, ip_address, issued_at, expires_at, last_used_at, revoked_at, revoke_reason
		 FROM sessions
		 WHERE user_id=$1 AND revoked_at IS NULL AND expires_at > NOW()
		 ORDER BY issued_at DESC`,
		userID)
	return sessions, err
}

// Revoke marks one session revoked.  It is scoped to the owning user so
// a caller can never revoke someone else's session.  When the session is
// missing or already revoked, sql.ErrNoRows is returned; revocation is
// idempotent from the caller's point of view.
func (r *SessionRepo) Revoke(ctx context.Context, sessionID string, userID uint64, reason string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET revoked_at=NOW(), revoke_reason=$1
		 WHERE id=$2 AND user_id=$3 AND revoked_at IS NULL`,
		reason, sessionID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RevokeOthers revokes every active session of the user except the one
// identified by keepID and returns how many were revoked.
func (r *SessionRepo) RevokeOthers(ctx context.Context, userID uint64, keepID, reason string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET revoked_at=NOW(), revoke_reason=$1
		 WHERE user_id=$2 AND id <> $3 AND revoked_at IS NULL`,
		reason, userID, keepID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchLastUsed bumps the activity timestamp of a session.
func (r *SessionRepo) TouchLastUsed(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET last_used_at=NOW() WHERE id=$1", sessionID)
	return err
}

// SessionInsights aggregates advisory signals over a user's active
// sessions.  It is informational only; nothing here locks an account.
type SessionInsights struct {
	ActiveSessions  int `db:"active_sessions"`
	DistinctDevices int `db:"distinct_devices"`
	DistinctIPs     int `db:"distinct_ips"`
}

// Insights computes the session anomaly counters for a user.
func (r *SessionRepo) Insights(ctx context.Context, userID uint64) (SessionInsights, error) {
	var ins SessionInsights
	err := r.DB.GetContext(ctx, &ins,
		`SELECT COUNT(*) AS active_sessions,
		        COUNT(DISTINCT device) AS distinct_devices,
		        COUNT(DISTINCT ip_address) AS distinct_ips
		 FROM sessions
		 WHERE user_id=$1 AND revoked_at IS NULL AND expires_at > NOW()`,
		userID)
	return ins, err
}

// StoreRefresh inserts a refresh token hash bound to a session.
func (r *SessionRepo) StoreRefresh(ctx context.Context, sessionID string, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (session_id, user_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)",
		sessionID, userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the owning user and session for a live token
// hash.  Unknown or revoked tokens (or tokens of revoked sessions) yield
// sql.ErrNoRows; an expired but otherwise valid token yields
// ErrTokenExpired so the handler can report a distinct reason code.
func (r *SessionRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, string, error) {
	var row struct {
		UserID     uint64       `db:"user_id"`
		SessionID  string       `db:"session_id"`
		ExpiresAt  time.Time    `db:"expires_at"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
		SessRevoke sql.NullTime `db:"sess_revoked_at"`
	}
	err := r.DB.GetContext(ctx, &row,
		`SELECT t.user_id, t.session_id, t.expires_at, t.revoked_at, s.revoked_at AS sess_revoked_at
		 FROM refresh_tokens t
		 JOIN sessions s ON s.id = t.session_id
		 WHERE t.token_hash=$1`,
		tokenHash)
	if err != nil {
		return 0, "", err
	}
	if row.RevokedAt.Valid || row.SessRevoke.Valid {
		return 0, "", sql.ErrNoRows
	}
	if time.Now().UTC().After(row.ExpiresAt) {
		return 0, "", ErrTokenExpired
	}
	return row.UserID, row.SessionID, nil
}

// RevokeRefreshByHash marks a single refresh token revoked.
func (r *SessionRepo) RevokeRefreshByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=$1 AND revoked_at IS NULL",
		tokenHash)
	return err
}
