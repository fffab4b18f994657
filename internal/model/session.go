package model

import "time"

// MaxActiveSessions is the advertised cap on concurrent sessions per
// user.  It is returned to clients for display; eviction beyond the cap
// is left to the upstream identity policy.
const MaxActiveSessions = 5

// Session models a row in the `sessions` table.  One session exists per
// login on a device; refresh tokens are bound to a session so revoking
// the session kills the token chain with it.
//
// Fields:
//  ID         – uuid primary key, also embedded in access tokens as `sid`.
//  UserID     – owner of the session.
//  Device     – client-supplied device fingerprint (may be empty).
//  IPAddress  – remote address at login, kept for anomaly logging only.
//  IssuedAt   – when the session was created.
//  ExpiresAt  – hard expiry of the session.
//  LastUsedAt – bumped on every token refresh.
//  RevokedAt  – when the session was revoked (null while active).
//  RevokeReason – why it was revoked (logout, revoked_by_user, ...).
type Session struct {
	ID           string     `db:"id"`
	UserID       uint64     `db:"user_id"`
	Device       string     `db:"device"`
	IPAddress    string     `db:"ip_address"`
	IssuedAt     time.Time  `db:"issued_at"`
	ExpiresAt    time.Time  `db:"expires_at"`
	LastUsedAt   time.Time  `db:"last_used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	RevokeReason *string    `db:"revoke_reason"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     `db:"id"`
	SessionID string     `db:"session_id"`
	UserID    uint64     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}
