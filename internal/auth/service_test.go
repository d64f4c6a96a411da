package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/repo"
)

type memUsers struct {
	users []repo.User
}

func (m *memUsers) Create(_ context.Context, email, name, hash string) (repo.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return repo.User{}, repo.ErrDuplicate
		}
	}
	u := repo.User{ID: uuid.New(), Email: email, Name: name, PasswordHash: hash}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (repo.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repo.User{}, repo.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (repo.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repo.User{}, repo.ErrNotFound
}

type memSessions struct {
	sessions []repo.Session
}

func (m *memSessions) Create(_ context.Context, userID uuid.UUID, hash string, expiresAt time.Time) (repo.Session, error) {
	s := repo.Session{ID: uuid.New(), UserID: userID, TokenHash: hash, ExpiresAt: expiresAt}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *memSessions) GetActiveByTokenHash(_ context.Context, hash string, now time.Time) (repo.Session, error) {
	for _, s := range m.sessions {
		if s.TokenHash == hash && s.RevokedAt == nil && s.ExpiresAt.After(now) {
			return s, nil
		}
	}
	return repo.Session{}, repo.ErrNotFound
}

func (m *memSessions) Revoke(_ context.Context, id uuid.UUID, now time.Time) error {
	for i := range m.sessions {
		if m.sessions[i].ID == id && m.sessions[i].RevokedAt == nil {
			t := now
			m.sessions[i].RevokedAt = &t
		}
	}
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID, now time.Time) error {
	for i := range m.sessions {
		if m.sessions[i].UserID == userID && m.sessions[i].RevokedAt == nil {
			t := now
			m.sessions[i].RevokedAt = &t
		}
	}
	return nil
}

func newTestService(now time.Time) (Service, *memUsers, *memSessions) {
	users := &memUsers{}
	sessions := &memSessions{}
	svc := Service{
		Users:      users,
		Sessions:   sessions,
		Secret:     []byte("test-secret-key"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        func() time.Time { return now },
	}
	return svc, users, sessions
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "owner@store.test", "Owner", "supersecret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := ParseAccessToken(pair.AccessToken, svc.Secret, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if got != user.ID {
		t.Fatalf("token subject = %s, want %s", got, user.ID)
	}

	if _, _, err := svc.Login(ctx, "owner@store.test", "supersecret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Login(ctx, "owner@store.test", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("login with wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@store.test", "supersecret1"); err != ErrInvalidCredentials {
		t.Fatalf("login with unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAccessTokenExpiryRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)

	_, pair, err := svc.Register(context.Background(), "owner@store.test", "Owner", "supersecret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ParseAccessToken(pair.AccessToken, svc.Secret, now.Add(16*time.Minute)); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if _, err := ParseAccessToken(pair.AccessToken, []byte("other-secret"), now); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "owner@store.test", "Owner", "supersecret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh must issue a new token")
	}
	// The old token is revoked by rotation.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != ErrSessionInvalid {
		t.Fatalf("reusing rotated token: err = %v, want ErrSessionInvalid", err)
	}
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("refresh with current token: %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _, _ := newTestService(now)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "owner@store.test", "Owner", "supersecret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != ErrSessionInvalid {
		t.Fatalf("refresh after logout: err = %v, want ErrSessionInvalid", err)
	}
	// Logging out twice is a no-op.
	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestExpiredRefreshSessionRejected(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	current := start
	svc, _, _ := newTestService(start)
	svc.Now = func() time.Time { return current }
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "owner@store.test", "Owner", "supersecret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	current = start.Add(25 * time.Hour)
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != ErrSessionInvalid {
		t.Fatalf("refresh with expired session: err = %v, want ErrSessionInvalid", err)
	}
}
