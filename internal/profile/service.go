package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/repo"
)

// ErrInvalidUpload marks a rejected logo file.
var ErrInvalidUpload = errors.New("profile: invalid upload")

// Querier is the profile storage the service depends on.
type Querier interface {
	Upsert(ctx context.Context, p repo.StoreProfile) (repo.StoreProfile, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (repo.StoreProfile, error)
}

// Input is the upsert payload.
type Input struct {
	StoreName string
	Email     string
	Phone     string
	Address   string
	GSTNumber string
	LogoURL   string
}

// Service manages the single per-owner store profile and its logo file.
type Service struct {
	Q Querier

	// UploadDir is where logo files land; PublicBaseURL prefixes the
	// returned URL (empty means relative URLs).
	UploadDir     string
	PublicBaseURL string

	// MaxUploadBytes bounds accepted logo files. Zero means 5 MiB.
	MaxUploadBytes int64
}

// Get returns the owner's profile. A missing profile is "no profile yet",
// reported as a zero profile, not an error.
func (s Service) Get(ctx context.Context, ownerID uuid.UUID) (repo.StoreProfile, error) {
	p, err := s.Q.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return repo.StoreProfile{OwnerID: ownerID}, nil
		}
		return repo.StoreProfile{}, err
	}
	return p, nil
}

// Upsert creates the profile on first save and overwrites it afterwards.
// Saving the same input twice yields the same stored state.
func (s Service) Upsert(ctx context.Context, ownerID uuid.UUID, in Input) (repo.StoreProfile, error) {
	return s.Q.Upsert(ctx, repo.StoreProfile{
		OwnerID:   ownerID,
		StoreName: strings.TrimSpace(in.StoreName),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		GSTNumber: strings.TrimSpace(in.GSTNumber),
		LogoURL:   strings.TrimSpace(in.LogoURL),
	})
}

var allowedLogoExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".svg":  true,
}

// SaveLogo stores an uploaded logo under the upload dir with a generated
// name and returns its public URL.
func (s Service) SaveLogo(_ context.Context, ownerID uuid.UUID, file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedLogoExts[ext] {
		return "", fmt.Errorf("%w: unsupported file type %q", ErrInvalidUpload, ext)
	}
	max := s.MaxUploadBytes
	if max <= 0 {
		max = 5 << 20
	}
	if header.Size > max {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidUpload, max)
	}

	dir := filepath.Join(s.UploadDir, "logos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("profile: create upload dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s", ownerID, uuid.NewString(), ext)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("profile: create logo file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, max+1)); err != nil {
		return "", fmt.Errorf("profile: write logo file: %w", err)
	}
	return s.PublicBaseURL + "/uploads/logos/" + name, nil
}
