// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"context"
	"fmt"
)

// StoreURLConfigKey names the storefront config value holding the backend base URL.
const StoreURLConfigKey = "commerce-store-url"

// ConfigSource looks up storefront configuration values.
type ConfigSource interface {
	ConfigValue(ctx context.Context, name string) (string, error)
}

// API is the page-level bridge entry point of one session.
type API struct {
	reconciler *Reconciler
	config     ConfigSource
	redirector Redirector
}

// NewAPI binds the page-level operations to a session reconciler.
func NewAPI(reconciler *Reconciler, config ConfigSource, redirector Redirector) *API {
	return &API{reconciler: reconciler, config: config, redirector: redirector}
}

// Authenticated reports whether the backend says the customer is signed in.
func (a *API) Authenticated() bool {
	return a.reconciler.IsBridgeAuthenticated()
}

// Redirect returns the backend URL to navigate to for path.
func (a *API) Redirect(ctx context.Context, path string) (string, error) {
	base, err := a.config.ConfigValue(ctx, StoreURLConfigKey)
	if err != nil {
		return "", fmt.Errorf("bridge: lookup %s: %w", StoreURLConfigKey, err)
	}
	id := a.reconciler.BridgeType(ctx)
	useBridge := a.reconciler.UseBridgeRedirect(ctx)
	return a.redirector.RedirectURL(base, id, path, useBridge)
}

// Synchronize runs one reconciliation pass.
func (a *API) Synchronize(ctx context.Context) (Outcome, error) {
	return a.reconciler.Synchronize(ctx)
}

// Reconciler exposes the session reconciler for state queries.
func (a *API) Reconciler() *Reconciler {
	return a.reconciler
}
