// Package session owns the client-side authentication state: the tiered
// credential slot and the authenticated-user profile mirrored alongside it.
package session

import (
	"context"
	"fmt"

	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/ports"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// TokenStore wraps the single credential slot with two retention tiers.
// Writing a token under one tier removes any copy under the other, so the
// two backing stores can never hold stale duplicates. Reads consult the
// persistent tier first; this order is a determinism choice, not a
// correctness requirement, since writes are tier-exclusive.
type TokenStore struct {
	persistent ports.TierStore
	ephemeral  ports.TierStore
}

func NewTokenStore(persistent, ephemeral ports.TierStore) *TokenStore {
	return &TokenStore{persistent: persistent, ephemeral: ephemeral}
}

// Set writes token under tier and removes any copy under the other tier.
// Idempotent.
func (s *TokenStore) Set(ctx context.Context, token string, tier domain.Tier) error {
	dst, other := s.pick(tier)
	if err := dst.Set(ctx, keyToken, token); err != nil {
		return fmt.Errorf("token store: write %s tier: %w", tier, err)
	}
	if err := other.Delete(ctx, keyToken); err != nil {
		return fmt.Errorf("token store: evict other tier: %w", err)
	}
	return nil
}

// Get returns the stored token and the tier it was found under, checking
// the persistent tier first.
func (s *TokenStore) Get(ctx context.Context) (string, domain.Tier, bool, error) {
	if v, found, err := s.persistent.Get(ctx, keyToken); err != nil {
		return "", "", false, fmt.Errorf("token store: read persistent tier: %w", err)
	} else if found {
		return v, domain.TierPersistent, true, nil
	}
	if v, found, err := s.ephemeral.Get(ctx, keyToken); err != nil {
		return "", "", false, fmt.Errorf("token store: read ephemeral tier: %w", err)
	} else if found {
		return v, domain.TierEphemeral, true, nil
	}
	return "", "", false, nil
}

// Clear removes the token from both tiers unconditionally.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.persistent.Delete(ctx, keyToken); err != nil {
		return fmt.Errorf("token store: clear persistent tier: %w", err)
	}
	if err := s.ephemeral.Delete(ctx, keyToken); err != nil {
		return fmt.Errorf("token store: clear ephemeral tier: %w", err)
	}
	return nil
}

func (s *TokenStore) pick(tier domain.Tier) (dst, other ports.TierStore) {
	if tier == domain.TierPersistent {
		return s.persistent, s.ephemeral
	}
	return s.ephemeral, s.persistent
}
