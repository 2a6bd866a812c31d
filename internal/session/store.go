// Package session holds the operator's access credential and answers whether
// it is currently usable.
//
// The pair is persisted under two keys, KeyAccessToken and KeyTokenExpiry.
// Both are written in a single PutMany call and removed together; a half pair
// found on disk is discarded on Open.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/admin-console/internal/model"
	"github.com/and161185/admin-console/internal/repository"
)

// Persisted key names.
const (
	KeyAccessToken = "accessToken"
	KeyTokenExpiry = "tokenExpiry"
)

// Store is the single owner of the session. Readers never mutate it.
type Store struct {
	mu  sync.RWMutex
	cur *model.Session

	kv  repository.KVRepository
	now func() time.Time
	log *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// Open loads the persisted session, if any.
func Open(ctx context.Context, kv repository.KVRepository, opts ...Option) (*Store, error) {
	s := &Store{kv: kv, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}

	vals, err := kv.GetMany(ctx, KeyAccessToken, KeyTokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	tok, hasTok := vals[KeyAccessToken]
	exp, hasExp := vals[KeyTokenExpiry]
	switch {
	case !hasTok && !hasExp:
		return s, nil
	case hasTok && hasExp:
		ms, perr := strconv.ParseInt(exp, 10, 64)
		if perr == nil && tok != "" {
			s.cur = &model.Session{Token: tok, ExpiresAt: time.UnixMilli(ms)}
			return s, nil
		}
	}

	s.log.Warn("discarding incomplete persisted session",
		zap.Bool("token", hasTok), zap.Bool("expiry", hasExp))
	if err := kv.DeleteMany(ctx, KeyAccessToken, KeyTokenExpiry); err != nil {
		return nil, fmt.Errorf("repair session: %w", err)
	}
	return s, nil
}

// IsValid reports whether a session exists and has not expired at call time.
func (s *Store) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur != nil && s.cur.ValidAt(s.now())
}

// Get returns the stored session, valid or not.
func (s *Store) Get() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return model.Session{}, false
	}
	return *s.cur, true
}

// Set stores token with expiresAt = now + ttl.
func (s *Store) Set(ctx context.Context, token string, ttl time.Duration) error {
	return s.SetUntil(ctx, token, s.now().Add(ttl))
}

// SetUntil stores token with an absolute expiry.
func (s *Store) SetUntil(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return errors.New("validation: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.PutMany(ctx, map[string]string{
		KeyAccessToken: token,
		KeyTokenExpiry: strconv.FormatInt(expiresAt.UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.cur = &model.Session{Token: token, ExpiresAt: time.UnixMilli(expiresAt.UnixMilli())}
	return nil
}

// Clear forgets the session. The in-memory copy is dropped even if the
// backend fails, so a dead credential is never reused by this process.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = nil
	if err := s.kv.DeleteMany(ctx, KeyAccessToken, KeyTokenExpiry); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
