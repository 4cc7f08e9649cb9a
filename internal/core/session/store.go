package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/ports"
)

// Store owns the authenticated-user identity and keeps the user profile in
// the same retention tier as the active credential. Consumers receive an
// explicit *Store reference; nothing here is ambient or global.
//
// Invariant: IsAuthenticated is true exactly when a profile is held. A
// token without a profile (or the reverse) found during restore is treated
// as an inconsistent session and resolved to anonymous.
type Store struct {
	tokens     *TokenStore
	persistent ports.TierStore
	ephemeral  ports.TierStore
	log        zerolog.Logger

	mu      sync.RWMutex
	user    *domain.UserProfile
	token   string
	subs    map[int]func()
	nextSub int
}

func NewStore(persistent, ephemeral ports.TierStore, log zerolog.Logger) *Store {
	return &Store{
		tokens:     NewTokenStore(persistent, ephemeral),
		persistent: persistent,
		ephemeral:  ephemeral,
		log:        log,
		subs:       make(map[int]func()),
	}
}

// Login stores the credential and profile under the tier selected by
// remember and transitions the store to authenticated.
func (s *Store) Login(ctx context.Context, profile domain.UserProfile, remember bool, token string) error {
	tier := domain.TierFor(remember)
	if err := s.tokens.Set(ctx, token, tier); err != nil {
		return err
	}
	if err := s.writeProfile(ctx, profile, tier); err != nil {
		return err
	}

	s.mu.Lock()
	p := profile
	s.user = &p
	s.token = token
	s.mu.Unlock()

	s.log.Info().Int("user_id", profile.ID).Str("role", profile.Role).Str("tier", string(tier)).Msg("session established")
	s.notify()
	return nil
}

// Logout clears the credential and profile from both tiers and transitions
// the store to anonymous.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.clearAll(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	s.log.Info().Msg("session cleared")
	s.notify()
	return nil
}

// RestoreFromStorage rebuilds session state from the backing stores. Called
// once at process start. The token and profile reads are independent; when
// they disagree, or the stored token has visibly expired, the store
// fail-safes to anonymous and scrubs both tiers.
func (s *Store) RestoreFromStorage(ctx context.Context) error {
	token, _, haveToken, err := s.tokens.Get(ctx)
	if err != nil {
		return err
	}
	profile, haveProfile, err := s.readProfile(ctx)
	if err != nil {
		return err
	}

	switch {
	case haveToken != haveProfile:
		s.log.Warn().Bool("token", haveToken).Bool("profile", haveProfile).
			Msg("inconsistent stored session, resolving to anonymous")
		return s.Logout(ctx)
	case !haveToken:
		return nil
	case tokenExpired(token):
		s.log.Info().Msg("stored token expired, resolving to anonymous")
		return s.Logout(ctx)
	}

	s.mu.Lock()
	s.user = &profile
	s.token = token
	s.mu.Unlock()

	s.log.Info().Int("user_id", profile.ID).Str("role", profile.Role).Msg("session restored")
	s.notify()
	return nil
}

// IsAuthenticated reports whether a credential is currently held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the active bearer token, empty when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the authenticated profile, nil when anonymous.
func (s *Store) User() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Identity returns the acting identity, zero when anonymous.
func (s *Store) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.Identity{}
	}
	return domain.Identity{UserID: s.user.ID, Name: s.user.Name, Role: s.user.Role}
}

// Subscribe registers fn to run after every state change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Store) writeProfile(ctx context.Context, profile domain.UserProfile, tier domain.Tier) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("session: encode profile: %w", err)
	}
	dst, other := s.persistent, s.ephemeral
	if tier == domain.TierEphemeral {
		dst, other = s.ephemeral, s.persistent
	}
	if err := dst.Set(ctx, keyUser, string(raw)); err != nil {
		return fmt.Errorf("session: store profile: %w", err)
	}
	if err := other.Delete(ctx, keyUser); err != nil {
		return fmt.Errorf("session: evict profile from other tier: %w", err)
	}
	return nil
}

// readProfile checks the persistent tier first, matching the token read
// order. A stored profile that fails to decode counts as absent.
func (s *Store) readProfile(ctx context.Context) (domain.UserProfile, bool, error) {
	for _, st := range []ports.TierStore{s.persistent, s.ephemeral} {
		raw, found, err := st.Get(ctx, keyUser)
		if err != nil {
			return domain.UserProfile{}, false, fmt.Errorf("session: read profile: %w", err)
		}
		if !found {
			continue
		}
		var p domain.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.log.Warn().Err(err).Msg("stored profile is not valid JSON, treating as absent")
			return domain.UserProfile{}, false, nil
		}
		return p, true, nil
	}
	return domain.UserProfile{}, false, nil
}

func (s *Store) clearAll(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return err
	}
	for _, st := range []ports.TierStore{s.persistent, s.ephemeral} {
		if err := st.Delete(ctx, keyUser); err != nil {
			return fmt.Errorf("session: clear profile: %w", err)
		}
	}
	return nil
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; the token stays opaque otherwise. Tokens that do not parse as
// JWTs, or carry no exp claim, are assumed live and left to the server to
// reject.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
