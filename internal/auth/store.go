// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package auth keeps the signed-in customer token of a browser session, the
// authentication record derived from it, and the account operations that change them.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/constant"
	"github.com/traylinx/storefront-bridge/internal/cookie"
	"github.com/traylinx/storefront-bridge/internal/storage"
)

// DefaultTokenTTL is the nominal token lifetime written next to the token. It is never enforced.
const DefaultTokenTTL = time.Hour

// Options configures a Store.
type Options struct {
	// Namespace prefixes the per-token record key; defaults to constant.AuthNamespace.
	Namespace string
	TokenTTL  time.Duration
	// Observers is shared with other stores of the same session when set.
	Observers *Observers
	Logger    log.FieldLogger
	Now       func() time.Time
}

// Store is the auth state of one browser session.
type Store struct {
	storage   storage.Storage
	jar       cookie.Jar
	namespace string
	ttl       time.Duration
	observers *Observers
	log       log.FieldLogger
	now       func() time.Time

	mu    sync.RWMutex
	token string
}

// NewStore builds a store over the session storage and cookie jar, loading the
// current token once.
func NewStore(ctx context.Context, st storage.Storage, jar cookie.Jar, opts Options) (*Store, error) {
	s := &Store{
		storage:   st,
		jar:       jar,
		namespace: opts.Namespace,
		ttl:       opts.TokenTTL,
		observers: opts.Observers,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if s.namespace == "" {
		s.namespace = constant.AuthNamespace
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.observers == nil {
		s.observers = NewObservers()
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}

	token, err := readToken(ctx, st, s.log)
	if err != nil {
		return nil, err
	}
	s.token = token
	return s, nil
}

// ReadToken reads the token stored in st. A missing or unreadable token yields "".
func ReadToken(ctx context.Context, st storage.Storage) (string, error) {
	return readToken(ctx, st, log.StandardLogger())
}

func readToken(ctx context.Context, st storage.Storage, logger log.FieldLogger) (string, error) {
	raw, ok, err := st.GetItem(ctx, constant.TokenStorageKey)
	if err != nil {
		return "", fmt.Errorf("auth: read token: %w", err)
	}
	if !ok || raw == "" {
		return "", nil
	}
	env, err := storage.DecodeEnvelope(raw)
	if err != nil {
		logger.Errorf("could not parse stored token: %v", err)
		return "", nil
	}
	return env.Value, nil
}

// WriteToken stores token in st using the legacy envelope.
func WriteToken(ctx context.Context, st storage.Storage, token string, ttl time.Duration, now time.Time) error {
	raw, err := storage.EncodeEnvelope(token, now, ttl)
	if err != nil {
		return fmt.Errorf("auth: encode token: %w", err)
	}
	if err = st.SetItem(ctx, constant.TokenStorageKey, raw); err != nil {
		return fmt.Errorf("auth: write token: %w", err)
	}
	return nil
}

// Token returns the cached current token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores token, marks its record authenticated and notifies observers.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := WriteToken(ctx, s.storage, token, s.ttl, s.now()); err != nil {
		return err
	}
	rec, err := s.Auth(ctx)
	if err != nil {
		return err
	}
	rec.IsAuthenticated = true
	rec.Token = token
	return s.SetAuth(ctx, rec)
}

func (s *Store) recordKey(token string) string {
	return s.namespace + "_" + token
}

// Auth returns the record of the current token. Without a token, or when the
// stored record is missing, the default record is returned. A corrupt record is
// removed.
func (s *Store) Auth(ctx context.Context) (Record, error) {
	token := s.Token()
	if token == "" {
		return DefaultRecord, nil
	}
	key := s.recordKey(token)
	raw, ok, err := s.storage.GetItem(ctx, key)
	if err != nil {
		return DefaultRecord, fmt.Errorf("auth: read record: %w", err)
	}
	if !ok || raw == "" || raw == "null" {
		return DefaultRecord, nil
	}
	var rec Record
	if err = json.Unmarshal([]byte(raw), &rec); err != nil {
		s.log.Errorf("failed to parse auth record from storage, resetting it: %v", err)
		if errRemove := s.storage.RemoveItem(ctx, key); errRemove != nil {
			return DefaultRecord, fmt.Errorf("auth: purge corrupt record: %w", errRemove)
		}
		return DefaultRecord, nil
	}
	return rec, nil
}

// SetAuth stores rec under the current token and notifies observers.
// It does nothing when no token is set.
func (s *Store) SetAuth(ctx context.Context, rec Record) error {
	token := s.Token()
	if token == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("auth: encode record: %w", err)
	}
	if err = s.storage.SetItem(ctx, s.recordKey(token), string(data)); err != nil {
		return fmt.Errorf("auth: write record: %w", err)
	}
	s.observers.Publish(rec)
	return nil
}

// UnsetAuth removes the record of the current token and the token itself.
func (s *Store) UnsetAuth(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.token = ""
	s.mu.Unlock()

	if token != "" {
		if err := s.storage.RemoveItem(ctx, s.recordKey(token)); err != nil {
			return fmt.Errorf("auth: remove record: %w", err)
		}
	}
	if err := s.storage.RemoveItem(ctx, constant.TokenStorageKey); err != nil {
		return fmt.Errorf("auth: remove token: %w", err)
	}
	return nil
}

// Logout signs out locally once the backend confirmed the token was revoked.
func (s *Store) Logout(ctx context.Context, revoked bool) error {
	if !revoked {
		s.log.Warn("customer token was not revoked, keeping local session")
		return nil
	}
	return s.UnsetAuth(ctx)
}

// Subscribe registers callback for every SetAuth.
func (s *Store) Subscribe(callback func(Record)) *Subscription {
	return s.observers.Subscribe(callback)
}

// Cookie reads a cookie of the session.
func (s *Store) Cookie(key string) (string, bool) {
	return s.jar.Get(key)
}

// SetCookie writes a cookie of the session.
func (s *Store) SetCookie(key, value string, opts ...cookie.Option) {
	s.jar.Set(key, value, opts...)
}
