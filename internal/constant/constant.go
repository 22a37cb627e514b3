// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package constant defines the cookie names and storage keys shared with the
// storefront frontend and the commerce backend. Both sides read the same names,
// so they must not change.
package constant

// Synchronization cookies written by the commerce backend.
const (
	// CookieAuthenticated is "true" while the customer is signed in on the backend.
	CookieAuthenticated = "eds_bridge_authenticated"

	// CookieSigninToken carries the customer token issued by the backend.
	CookieSigninToken = "eds_bridge_signin_token"

	// CookieCartUID carries the cart id the backend is using.
	CookieCartUID = "eds_bridge_cart_uid"

	// CookieCartRefresh is "true" after the cart was changed on the backend.
	CookieCartRefresh = "eds_bridge_cart_refresh"

	// CookieCartReset is "true" after an order was placed or the customer logged out.
	CookieCartReset = "eds_bridge_cart_reset"
)

// CookieSession identifies a browser session of this service.
const CookieSession = "eds_bridge_session"

// Storage keys, relative to the session scope.
const (
	// TokenStorageKey holds the customer token envelope.
	TokenStorageKey = "M2_VENIA_BROWSER_PERSISTENCE__signin_token"

	// CartIDStorageKey holds the cart id envelope.
	CartIDStorageKey = "M2_VENIA_BROWSER_PERSISTENCE__cartId"

	// AuthNamespace prefixes the per-token auth record key.
	AuthNamespace = "COMMERCE_AUTH_CACHE"

	// CartSnapshotKey holds the last fetched cart.
	CartSnapshotKey = "COMMERCE_CART_CACHE"
)

// DefaultBridgeRoute is the backend route that accepts bridge handoffs.
const DefaultBridgeRoute = "/bridge/state/index/"
