package ports

import (
	"context"

	"github.com/teampulse/feedback-desk/internal/core/domain"
)

// TierStore is a key/value backing store for one credential retention tier.
// Implementations must treat a missing key as (found=false, nil error).
type TierStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SessionReader exposes the derived, read-only view of the authenticated
// session that network operations depend on.
type SessionReader interface {
	IsAuthenticated() bool
	Token() string
	Identity() domain.Identity
}
