package profile

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/repo"
)

type memProfiles struct {
	byOwner map[uuid.UUID]repo.StoreProfile
	upserts int
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byOwner: make(map[uuid.UUID]repo.StoreProfile)}
}

func (m *memProfiles) Upsert(_ context.Context, p repo.StoreProfile) (repo.StoreProfile, error) {
	m.upserts++
	if existing, ok := m.byOwner[p.OwnerID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.New()
	}
	m.byOwner[p.OwnerID] = p
	return p, nil
}

func (m *memProfiles) GetByOwner(_ context.Context, ownerID uuid.UUID) (repo.StoreProfile, error) {
	p, ok := m.byOwner[ownerID]
	if !ok {
		return repo.StoreProfile{}, repo.ErrNotFound
	}
	return p, nil
}

func TestGetAbsentProfileIsNotAnError(t *testing.T) {
	svc := Service{Q: newMemProfiles()}
	p, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.StoreName != "" {
		t.Fatalf("absent profile should be empty, got %+v", p)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	q := newMemProfiles()
	svc := Service{Q: q}
	ctx := context.Background()
	ownerID := uuid.New()
	in := Input{StoreName: "Corner Store", Email: "shop@example.com", Phone: "9000000000"}

	first, err := svc.Upsert(ctx, ownerID, in)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, ownerID, in)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("upsert must keep one record per owner")
	}
	if second.StoreName != "Corner Store" {
		t.Fatalf("store name = %q", second.StoreName)
	}

	in.Address = "12 Market Road"
	updated, err := svc.Upsert(ctx, ownerID, in)
	if err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if updated.Address != "12 Market Road" || updated.ID != first.ID {
		t.Fatalf("updated = %+v", updated)
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("logo", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/profile/logo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	file, header, err := req.FormFile("logo")
	if err != nil {
		t.Fatalf("parse form file: %v", err)
	}
	return file, header
}

func TestSaveLogoStoresFileAndReturnsURL(t *testing.T) {
	dir := t.TempDir()
	svc := Service{Q: newMemProfiles(), UploadDir: dir, PublicBaseURL: "https://pos.example.com"}
	ownerID := uuid.New()

	file, header := uploadRequest(t, "logo.png", []byte("png-bytes"))
	defer file.Close()

	url, err := svc.SaveLogo(context.Background(), ownerID, file, header)
	if err != nil {
		t.Fatalf("save logo: %v", err)
	}
	if !strings.HasPrefix(url, "https://pos.example.com/uploads/logos/") {
		t.Fatalf("url = %q", url)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Fatalf("url keeps extension: %q", url)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "logos"))
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("stored files = %d, want 1", len(entries))
	}
}

func TestSaveLogoRejectsUnsupportedType(t *testing.T) {
	svc := Service{Q: newMemProfiles(), UploadDir: t.TempDir()}
	file, header := uploadRequest(t, "logo.exe", []byte("mz"))
	defer file.Close()

	if _, err := svc.SaveLogo(context.Background(), uuid.New(), file, header); !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("err = %v, want ErrInvalidUpload", err)
	}
}

func TestSaveLogoRejectsOversizedFile(t *testing.T) {
	svc := Service{Q: newMemProfiles(), UploadDir: t.TempDir(), MaxUploadBytes: 8}
	file, header := uploadRequest(t, "logo.png", []byte("way more than eight bytes"))
	defer file.Close()

	if _, err := svc.SaveLogo(context.Background(), uuid.New(), file, header); !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("err = %v, want ErrInvalidUpload", err)
	}
}
