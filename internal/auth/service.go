package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/repo"
)

const issuer = "backend-pos"

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrSessionInvalid covers missing, expired or revoked refresh sessions.
	ErrSessionInvalid = errors.New("auth: session invalid")
	// ErrEmailTaken is returned when registering a duplicate email.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// UsersQuerier is the account storage the service depends on.
type UsersQuerier interface {
	Create(ctx context.Context, email, name, passwordHash string) (repo.User, error)
	GetByEmail(ctx context.Context, email string) (repo.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (repo.User, error)
}

// SessionsQuerier is the refresh-session storage the service depends on.
type SessionsQuerier interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (repo.Session, error)
	GetActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (repo.Session, error)
	Revoke(ctx context.Context, id uuid.UUID, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) error
}

// Service implements register, login, refresh rotation and logout.
type Service struct {
	Users    UsersQuerier
	Sessions SessionsQuerier

	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Now func() time.Time
}

// TokenPair is what a successful login or refresh yields.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register creates an account and opens a first session.
func (s Service) Register(ctx context.Context, email, name, password string) (repo.User, TokenPair, error) {
	if s.Users == nil || s.Sessions == nil {
		return repo.User{}, TokenPair{}, errors.New("auth: service not configured")
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return repo.User{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.Users.Create(ctx, email, strings.TrimSpace(name), hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return repo.User{}, TokenPair{}, ErrEmailTaken
		}
		return repo.User{}, TokenPair{}, err
	}
	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return repo.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Login verifies the password and opens a new session.
func (s Service) Login(ctx context.Context, email, password string) (repo.User, TokenPair, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return repo.User{}, TokenPair{}, err
	}
	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		return repo.User{}, TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return repo.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return repo.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh session: the presented token is revoked and a
// fresh pair issued. A reused or expired token fails with ErrSessionInvalid.
func (s Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	now := s.now()
	session, err := s.Sessions.GetActiveByTokenHash(ctx, hashToken(refreshToken), now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return TokenPair{}, ErrSessionInvalid
		}
		return TokenPair{}, err
	}
	if err := s.Sessions.Revoke(ctx, session.ID, now); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, session.UserID)
}

// Logout revokes the session matching the presented refresh token. A token
// that no longer matches an active session is already logged out.
func (s Service) Logout(ctx context.Context, refreshToken string) error {
	now := s.now()
	session, err := s.Sessions.GetActiveByTokenHash(ctx, hashToken(refreshToken), now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.Sessions.Revoke(ctx, session.ID, now)
}

// CurrentUser restores the account for an authenticated user id.
func (s Service) CurrentUser(ctx context.Context, userID uuid.UUID) (repo.User, error) {
	return s.Users.GetByID(ctx, userID)
}

func (s Service) issuePair(ctx context.Context, userID uuid.UUID) (TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.AccessTTL)
	access, err := s.signAccessToken(userID, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	refreshExp := now.Add(s.RefreshTTL)
	if _, err := s.Sessions.Create(ctx, userID, hashToken(refresh), refreshExp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s Service) signAccessToken(userID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
	token, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(userID.String()).
		IssuedAt(issuedAt).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// ParseAccessToken validates the signature, issuer and expiry, and returns
// the subject user id.
func ParseAccessToken(raw string, secret []byte, now time.Time) (uuid.UUID, error) {
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, secret),
		jwt.WithIssuer(issuer),
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithValidate(true),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	userID, err := uuid.Parse(token.Subject())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrSessionInvalid)
	}
	return userID, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
