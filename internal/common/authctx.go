package common

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

type ctxKey string

const ownerIDKey ctxKey = "auth/owner-id"

// WithOwnerID stores the authenticated store owner identifier on the context.
// Threading the session through the context, rather than process-wide state,
// keeps init and teardown explicit: auth middleware sets it per request and
// nothing outlives the request.
func WithOwnerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ownerIDKey, id)
}

// OwnerID extracts the authenticated owner identifier from the context.
func OwnerID(ctx context.Context) (string, bool) {
	v := ctx.Value(ownerIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// ErrNoOwner signals a handler reached without an authenticated owner.
var ErrNoOwner = errors.New("no authenticated owner in context")

// OwnerUUID parses the context owner identifier as a UUID.
func OwnerUUID(ctx context.Context) (uuid.UUID, error) {
	raw, ok := OwnerID(ctx)
	if !ok {
		return uuid.Nil, ErrNoOwner
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNoOwner
	}
	return id, nil
}
