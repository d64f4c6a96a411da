package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session stores a hashed refresh token tied to a user. Tokens are never
// stored in cleartext; TokenHash is a hex sha256 digest.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// SessionsRepo persists refresh sessions.
type SessionsRepo struct {
	DB DB
}

// Create records a fresh session.
func (r SessionsRepo) Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (Session, error) {
	const q = `
INSERT INTO sessions (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, token_hash, expires_at, revoked_at, created_at`
	var s Session
	err := r.DB.QueryRow(ctx, q, userID, tokenHash, expiresAt).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// GetActiveByTokenHash returns the session matching the hash if it has not
// been revoked or expired.
func (r SessionsRepo) GetActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (Session, error) {
	const q = `
SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
FROM sessions
WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2`
	var s Session
	err := r.DB.QueryRow(ctx, q, tokenHash, now).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt)
	if err != nil {
		return Session{}, mapRowError(err)
	}
	return s, nil
}

// Revoke marks a single session revoked. Revoking an already revoked or
// missing session is not an error.
func (r SessionsRepo) Revoke(ctx context.Context, id uuid.UUID, now time.Time) error {
	const q = `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	_, err := r.DB.Exec(ctx, q, id, now)
	return err
}

// RevokeAllForUser invalidates every active session of a user.
func (r SessionsRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	const q = `UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.DB.Exec(ctx, q, userID, now)
	return err
}

// DeleteExpired prunes sessions past their expiry. Intended for the
// background worker.
func (r SessionsRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM sessions WHERE expires_at <= $1`
	tag, err := r.DB.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
