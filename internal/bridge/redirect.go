// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/traylinx/storefront-bridge/internal/constant"
)

// Identity kinds understood by the backend bridge route.
const (
	KindGuest    = "guest"
	KindCustomer = "customer"
)

// Identity is the guest cart id or customer token handed to the backend.
type Identity struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// pathValue renders the identity value as the frontend does; a missing value becomes "null".
func (id Identity) pathValue() string {
	if id.Value == "" {
		return "null"
	}
	return id.Value
}

// fixedRoutes are the targets with a dedicated backend page.
var fixedRoutes = map[string]string{
	"account":        "/customer/account/",
	"account-login":  "/customer/account/login/",
	"account-logout": "/customer/account/logout/",
	"cart":           "/checkout/cart/",
	"checkout":       "/checkout/",
}

// bridgedTargets prefer the bridge form whenever the session has an identity.
var bridgedTargets = map[string]bool{
	"account-login": true,
	"cart":          true,
	"checkout":      true,
}

// Redirector builds backend URLs for a bridge route.
type Redirector struct {
	// Route defaults to constant.DefaultBridgeRoute.
	Route string
}

func (r Redirector) route() string {
	route := strings.TrimSpace(r.Route)
	if route == "" {
		route = constant.DefaultBridgeRoute
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if !strings.HasSuffix(route, "/") {
		route += "/"
	}
	return route
}

// BridgeURL returns {base}{route}{guest|customer}/{identity}/path/{target}.
func (r Redirector) BridgeURL(base string, id Identity, target string) (string, error) {
	kind := KindGuest
	if id.Kind == KindCustomer {
		kind = KindCustomer
	}
	return resolve(base, fmt.Sprintf("%s%s/%s/path/%s", r.route(), kind, id.pathValue(), target))
}

// RedirectURL returns the backend URL for target. The fixed targets map to their
// backend page unless useBridge asks for the bridge form of login, cart and checkout.
func (r Redirector) RedirectURL(base string, id Identity, target string, useBridge bool) (string, error) {
	if useBridge && bridgedTargets[target] {
		return r.BridgeURL(base, id, target)
	}
	if route, ok := fixedRoutes[target]; ok {
		return resolve(base, route)
	}
	return r.BridgeURL(base, id, target)
}

// BridgeURL builds a bridge URL on the default route.
func BridgeURL(base string, id Identity, target string) (string, error) {
	return Redirector{}.BridgeURL(base, id, target)
}

// RedirectURL builds a redirect URL on the default route.
func RedirectURL(base string, id Identity, target string, useBridge bool) (string, error) {
	return Redirector{}.RedirectURL(base, id, target, useBridge)
}

func resolve(base, path string) (string, error) {
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil || b.Scheme == "" || b.Host == "" {
		return "", fmt.Errorf("bridge: invalid commerce store url %q", base)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("bridge: invalid path %q: %w", path, err)
	}
	return b.ResolveReference(ref).String(), nil
}
