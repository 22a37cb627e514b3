// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bridge reconciles the state the commerce backend signals through
// cookies into the session auth and cart stores, and builds the URLs that hand
// navigation back to the backend.
package bridge

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/cart"
	"github.com/traylinx/storefront-bridge/internal/constant"
	"github.com/traylinx/storefront-bridge/internal/cookie"
)

// AuthStore is the part of the auth store the reconciler drives.
type AuthStore interface {
	Token() string
	SetToken(ctx context.Context, token string) error
	UnsetAuth(ctx context.Context) error
	Cookie(key string) (string, bool)
	SetCookie(key, value string, opts ...cookie.Option)
}

// CartStore is the part of the cart store the reconciler drives.
type CartStore interface {
	CartID(ctx context.Context) (string, error)
	SetCartID(ctx context.Context, id string) error
	ResetCartIDStore(ctx context.Context) error
	Refresh(ctx context.Context) (*cart.Cart, error)
}

// Outcome summarizes what one synchronization changed.
type Outcome struct {
	BridgeAuthenticated bool   `json:"bridge_authenticated"`
	TokenAdopted        bool   `json:"token_adopted"`
	LoggedOut           bool   `json:"logged_out"`
	CartAdopted         string `json:"cart_adopted,omitempty"`
	CartFetches         int    `json:"cart_fetches"`
	CartRefreshCleared  bool   `json:"cart_refresh_cleared"`
	CartReset           bool   `json:"cart_reset"`
}

// Changed reports whether the pass touched any local state.
func (o Outcome) Changed() bool {
	return o.TokenAdopted || o.LoggedOut || o.CartAdopted != "" || o.CartFetches > 0 || o.CartRefreshCleared || o.CartReset
}

// Reconciler applies the backend cookie signals of one session.
type Reconciler struct {
	auth AuthStore
	cart CartStore
	log  log.FieldLogger
}

// NewReconciler binds a reconciler to the session stores.
func NewReconciler(auth AuthStore, cart CartStore, logger log.FieldLogger) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{auth: auth, cart: cart, log: logger}
}

func (r *Reconciler) cookieIsTrue(name string) bool {
	v, ok := r.auth.Cookie(name)
	return ok && v == "true"
}

// IsBridgeAuthenticated reports whether the backend says the customer is signed in.
func (r *Reconciler) IsBridgeAuthenticated() bool {
	return r.cookieIsTrue(constant.CookieAuthenticated)
}

// HasCookieToken reports whether the backend handed over a customer token.
func (r *Reconciler) HasCookieToken() bool {
	_, ok := r.auth.Cookie(constant.CookieSigninToken)
	return ok
}

// HasStorageToken reports whether the session holds a customer token.
func (r *Reconciler) HasStorageToken() bool {
	return r.auth.Token() != ""
}

// HasStorageCartID reports whether the session holds a cart id.
func (r *Reconciler) HasStorageCartID(ctx context.Context) bool {
	return r.cartID(ctx) != ""
}

// IsAuthenticated reports whether both the backend and the session consider the customer signed in.
func (r *Reconciler) IsAuthenticated() bool {
	return r.IsBridgeAuthenticated() && r.HasStorageToken()
}

// BridgeType returns the identity handed to the backend: the customer token when
// signed in, the guest cart id otherwise.
func (r *Reconciler) BridgeType(ctx context.Context) Identity {
	if r.IsAuthenticated() {
		return Identity{Kind: KindCustomer, Value: r.auth.Token()}
	}
	return Identity{Kind: KindGuest, Value: r.cartID(ctx)}
}

// UseBridgeRedirect reports whether the session has any identity worth handing over.
func (r *Reconciler) UseBridgeRedirect(ctx context.Context) bool {
	return r.HasStorageToken() || r.HasStorageCartID(ctx)
}

func (r *Reconciler) cartID(ctx context.Context) string {
	id, err := r.cart.CartID(ctx)
	if err != nil {
		r.log.Errorf("bridge: read cart id: %v", err)
		return ""
	}
	return id
}

// Synchronize runs one reconciliation pass. Authentication is reconciled first,
// then the cart refresh and reset signals. A cart reset wins over a refresh
// signalled in the same pass. Steps continue after a failure; storage failures
// are returned joined, cart fetch failures are only logged.
func (r *Reconciler) Synchronize(ctx context.Context) (Outcome, error) {
	var (
		out  Outcome
		errs []error
	)

	out.BridgeAuthenticated = r.IsBridgeAuthenticated()
	if out.BridgeAuthenticated {
		errs = append(errs, r.synchronizeAuthenticated(ctx, &out))
	} else {
		errs = append(errs, r.synchronizeUnauthenticated(ctx, &out))
	}
	errs = append(errs, r.adoptCart(ctx, &out))

	if r.cookieIsTrue(constant.CookieCartRefresh) {
		if r.cookieIsTrue(constant.CookieCartReset) {
			r.log.Debug("bridge: cart reset pending, skipping refresh")
			r.clearCartRefresh(&out)
		} else {
			r.refreshCart(ctx, &out)
		}
	}

	if r.cookieIsTrue(constant.CookieCartReset) {
		if err := r.cart.ResetCartIDStore(ctx); err != nil {
			errs = append(errs, err)
		} else {
			out.CartReset = true
		}
		r.auth.SetCookie(constant.CookieCartReset, "false")
	}

	if err := errors.Join(errs...); err != nil {
		r.log.Errorf("bridge: synchronization incomplete: %v", err)
		return out, err
	}
	return out, nil
}

func (r *Reconciler) synchronizeAuthenticated(ctx context.Context, out *Outcome) error {
	if r.auth.Token() != "" {
		return nil
	}
	token, ok := r.auth.Cookie(constant.CookieSigninToken)
	if !ok {
		return nil
	}
	if err := r.auth.SetToken(ctx, token); err != nil {
		return err
	}
	out.TokenAdopted = true
	r.log.Info("bridge: adopted customer token from backend")
	return nil
}

func (r *Reconciler) synchronizeUnauthenticated(ctx context.Context, out *Outcome) error {
	// The backend owns authentication; a token it does not know about is stale.
	if r.auth.Token() == "" {
		return nil
	}
	if err := r.auth.UnsetAuth(ctx); err != nil {
		return err
	}
	out.LoggedOut = true
	r.log.Info("bridge: backend is signed out, cleared local token")
	return nil
}

func (r *Reconciler) adoptCart(ctx context.Context, out *Outcome) error {
	cookieID, ok := r.auth.Cookie(constant.CookieCartUID)
	if !ok {
		return nil
	}
	localID, err := r.cart.CartID(ctx)
	if err != nil {
		return err
	}
	if localID == cookieID {
		return nil
	}
	if err = r.cart.SetCartID(ctx, cookieID); err != nil {
		return err
	}
	out.CartAdopted = cookieID
	r.refreshCart(ctx, out)
	return nil
}

// refreshCart refetches the cart when one is set and clears the refresh signal.
func (r *Reconciler) refreshCart(ctx context.Context, out *Outcome) {
	if id := r.cartID(ctx); id != "" {
		out.CartFetches++
		if _, err := r.cart.Refresh(ctx); err != nil {
			r.log.Errorf("bridge: refresh cart %s: %v", id, err)
		}
	}
	r.clearCartRefresh(out)
}

func (r *Reconciler) clearCartRefresh(out *Outcome) {
	r.auth.SetCookie(constant.CookieCartRefresh, "false")
	out.CartRefreshCleared = true
}
