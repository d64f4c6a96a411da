package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account row. PasswordHash is the argon2id encoded hash.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UsersRepo persists accounts.
type UsersRepo struct {
	DB DB
}

// Create inserts a new user. Duplicate emails return ErrDuplicate.
func (r UsersRepo) Create(ctx context.Context, email, name, passwordHash string) (User, error) {
	const q = `
INSERT INTO users (email, name, password_hash)
VALUES ($1, $2, $3)
RETURNING id, email, name, password_hash, created_at, updated_at`
	var u User
	err := r.DB.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email)), name, passwordHash).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("%w: email %s", ErrDuplicate, email)
		}
		return User{}, err
	}
	return u, nil
}

// GetByEmail looks a user up by normalized email.
func (r UsersRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, name, password_hash, created_at, updated_at
FROM users WHERE email = $1`
	var u User
	err := r.DB.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, mapRowError(err)
	}
	return u, nil
}

// GetByID fetches a user by primary key.
func (r UsersRepo) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	const q = `
SELECT id, email, name, password_hash, created_at, updated_at
FROM users WHERE id = $1`
	var u User
	err := r.DB.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, mapRowError(err)
	}
	return u, nil
}
