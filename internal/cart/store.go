// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/constant"
	"github.com/traylinx/storefront-bridge/internal/storage"
)

const cartIDTTL = 30 * 24 * time.Hour

// TokenSource supplies the customer token used to fetch the cart.
type TokenSource interface {
	Token() string
}

// Options configures a Store.
type Options struct {
	Logger log.FieldLogger
	Now    func() time.Time
}

// Store is the cart state of one browser session.
type Store struct {
	storage storage.Storage
	fetcher *Fetcher
	tokens  TokenSource
	log     log.FieldLogger
	now     func() time.Time
}

// NewStore builds a cart store over the session storage.
func NewStore(st storage.Storage, fetcher *Fetcher, tokens TokenSource, opts Options) *Store {
	s := &Store{storage: st, fetcher: fetcher, tokens: tokens, log: opts.Logger, now: opts.Now}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CartID returns the stored cart id, or "" when none is usable.
func (s *Store) CartID(ctx context.Context) (string, error) {
	raw, ok, err := s.storage.GetItem(ctx, constant.CartIDStorageKey)
	if err != nil {
		return "", fmt.Errorf("cart: read cart id: %w", err)
	}
	if !ok || raw == "" {
		return "", nil
	}
	env, err := storage.DecodeEnvelope(raw)
	if err != nil {
		s.log.Errorf("could not parse stored cart id: %v", err)
		return "", nil
	}
	return env.Value, nil
}

// SetCartID stores id as the session cart.
func (s *Store) SetCartID(ctx context.Context, id string) error {
	raw, err := storage.EncodeEnvelope(id, s.now(), cartIDTTL)
	if err != nil {
		return fmt.Errorf("cart: encode cart id: %w", err)
	}
	if err = s.storage.SetItem(ctx, constant.CartIDStorageKey, raw); err != nil {
		return fmt.Errorf("cart: write cart id: %w", err)
	}
	return nil
}

// ResetCartIDStore forgets the cart id and the cached cart.
func (s *Store) ResetCartIDStore(ctx context.Context) error {
	if err := s.storage.RemoveItem(ctx, constant.CartIDStorageKey); err != nil {
		return fmt.Errorf("cart: remove cart id: %w", err)
	}
	if err := s.storage.RemoveItem(ctx, constant.CartSnapshotKey); err != nil {
		return fmt.Errorf("cart: remove cart snapshot: %w", err)
	}
	return nil
}

// Refresh refetches the session cart and caches it. Without a cart id it does
// nothing and returns nil. A cart unknown to the backend is forgotten and
// ErrCartNotFound is returned.
func (s *Store) Refresh(ctx context.Context) (*Cart, error) {
	id, err := s.CartID(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	token := ""
	if s.tokens != nil {
		token = s.tokens.Token()
	}
	c, err := s.fetcher.Fetch(ctx, id, token)
	if errors.Is(err, ErrCartNotFound) {
		s.log.Warnf("cart %s no longer exists, resetting", id)
		if errReset := s.ResetCartIDStore(ctx); errReset != nil {
			return nil, errReset
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("cart: encode snapshot: %w", err)
	}
	if err = s.storage.SetItem(ctx, constant.CartSnapshotKey, string(data)); err != nil {
		return nil, fmt.Errorf("cart: write snapshot: %w", err)
	}
	return c, nil
}

// Snapshot returns the cart cached by the last Refresh.
func (s *Store) Snapshot(ctx context.Context) (*Cart, bool, error) {
	raw, ok, err := s.storage.GetItem(ctx, constant.CartSnapshotKey)
	if err != nil {
		return nil, false, fmt.Errorf("cart: read snapshot: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var c Cart
	if err = json.Unmarshal([]byte(raw), &c); err != nil {
		s.log.Errorf("failed to parse cart snapshot, resetting it: %v", err)
		if errRemove := s.storage.RemoveItem(ctx, constant.CartSnapshotKey); errRemove != nil {
			return nil, false, fmt.Errorf("cart: purge corrupt snapshot: %w", errRemove)
		}
		return nil, false, nil
	}
	return &c, true, nil
}
