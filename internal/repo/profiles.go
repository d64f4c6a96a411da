package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoreProfile holds the single per-owner store record.
type StoreProfile struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	StoreName string
	Email     string
	Phone     string
	Address   string
	GSTNumber string
	LogoURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfilesRepo persists store profiles keyed by owner.
type ProfilesRepo struct {
	DB DB
}

const profileColumns = `id, owner_id, store_name, email, phone, address,
gst_number, logo_url, created_at, updated_at`

// Upsert creates the profile on first save and overwrites it afterwards.
func (r ProfilesRepo) Upsert(ctx context.Context, p StoreProfile) (StoreProfile, error) {
	const q = `
INSERT INTO store_profiles (owner_id, store_name, email, phone, address, gst_number, logo_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (owner_id) DO UPDATE SET
  store_name = EXCLUDED.store_name,
  email = EXCLUDED.email,
  phone = EXCLUDED.phone,
  address = EXCLUDED.address,
  gst_number = EXCLUDED.gst_number,
  logo_url = EXCLUDED.logo_url,
  updated_at = now()
RETURNING ` + profileColumns
	var out StoreProfile
	err := r.DB.QueryRow(ctx, q, p.OwnerID, p.StoreName, p.Email, p.Phone,
		p.Address, p.GSTNumber, p.LogoURL).
		Scan(&out.ID, &out.OwnerID, &out.StoreName, &out.Email, &out.Phone,
			&out.Address, &out.GSTNumber, &out.LogoURL, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return StoreProfile{}, err
	}
	return out, nil
}

// GetByOwner returns the owner's profile or ErrNotFound.
func (r ProfilesRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (StoreProfile, error) {
	const q = `SELECT ` + profileColumns + ` FROM store_profiles WHERE owner_id = $1`
	var out StoreProfile
	err := r.DB.QueryRow(ctx, q, ownerID).
		Scan(&out.ID, &out.OwnerID, &out.StoreName, &out.Email, &out.Phone,
			&out.Address, &out.GSTNumber, &out.LogoURL, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return StoreProfile{}, mapRowError(err)
	}
	return out, nil
}
