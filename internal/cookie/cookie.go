// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cookie implements the cookie signaling channel shared with the commerce
// backend. A Jar reads the cookies a browser sent and queues the ones to write back.
package cookie

import (
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultExpirationDays is the lifetime of a cookie written without an explicit expiry.
const DefaultExpirationDays = 30

// Jar reads and writes cookies for a single browser.
// Get reports ok=false for a missing or empty cookie. A value written with Set is
// visible to later Get calls on the same jar.
type Jar interface {
	Get(key string) (string, bool)
	Set(key, value string, opts ...Option)
}

// Attributes are the attributes of a cookie write.
type Attributes struct {
	Days   int
	Domain string
	Path   string
}

// Option overrides one attribute of a cookie write.
type Option func(*Attributes)

// WithDays sets the cookie lifetime in days.
func WithDays(days int) Option {
	return func(a *Attributes) { a.Days = days }
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(a *Attributes) { a.Domain = domain }
}

// WithPath sets the cookie path.
func WithPath(path string) Option {
	return func(a *Attributes) { a.Path = path }
}

// Written is a cookie write as it will be sent to the browser.
type Written struct {
	Name    string
	Value   string
	Expires time.Time
	Domain  string
	Path    string
}

// resolve applies opts on top of the defaults for hostname.
func resolve(hostname string, defaults Defaults, opts []Option) Attributes {
	attrs := Attributes{
		Days:   defaults.ExpirationDays,
		Domain: defaults.Domain,
		Path:   "/",
	}
	if attrs.Days <= 0 {
		attrs.Days = DefaultExpirationDays
	}
	if attrs.Domain == "" && hostname != "" {
		attrs.Domain = "." + hostname
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&attrs)
		}
	}
	attrs.Domain = CookieDomain(attrs.Domain)
	return attrs
}

// CookieDomain normalizes a cookie domain. It returns an empty string (a host-only
// cookie) for IP addresses, single-label hosts and public suffixes, which browsers
// would reject as a Domain attribute.
func CookieDomain(domain string) string {
	host := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return ""
	}
	if suffix, _ := publicsuffix.PublicSuffix(host); suffix == host {
		return ""
	}
	return "." + host
}

// Encode escapes value like the browser's encodeURIComponent.
func Encode(value string) string {
	escaped := url.QueryEscape(value)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	// encodeURIComponent leaves these unescaped.
	for _, c := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(c), c)
	}
	return escaped
}

// Decode reverses Encode. Malformed escapes leave the raw value untouched.
func Decode(value string) string {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}
