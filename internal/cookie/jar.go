// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cookie

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/storefront-bridge/internal/util"
)

// Defaults configures cookie writes that do not override an attribute.
type Defaults struct {
	// ExpirationDays defaults to DefaultExpirationDays.
	ExpirationDays int
	// Domain overrides the ".{hostname}" default.
	Domain string
	Secure bool
	// Now is the clock used for expiry; nil means time.Now.
	Now func() time.Time
}

func (d Defaults) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// HTTPJar reads cookies from a gin request and writes Set-Cookie headers on its response.
// Writes are overlaid on the request cookies so later reads observe them.
type HTTPJar struct {
	c        *gin.Context
	defaults Defaults
	hostname string

	mu      sync.Mutex
	pending map[string]string
	written []Written
}

// NewHTTPJar returns a jar bound to the request and response of c.
func NewHTTPJar(c *gin.Context, defaults Defaults) *HTTPJar {
	return &HTTPJar{
		c:        c,
		defaults: defaults,
		hostname: util.RequestHostname(c),
		pending:  make(map[string]string),
	}
}

func (j *HTTPJar) Get(key string) (string, bool) {
	j.mu.Lock()
	value, ok := j.pending[key]
	j.mu.Unlock()
	if !ok {
		ck, err := j.c.Request.Cookie(key)
		if err != nil {
			return "", false
		}
		value = Decode(ck.Value)
	}
	if value == "" {
		return "", false
	}
	return value, true
}

func (j *HTTPJar) Set(key, value string, opts ...Option) {
	attrs := resolve(j.hostname, j.defaults, opts)
	w := Written{
		Name:    key,
		Value:   value,
		Expires: j.defaults.now().Add(time.Duration(attrs.Days) * 24 * time.Hour),
		Domain:  attrs.Domain,
		Path:    attrs.Path,
	}

	j.mu.Lock()
	j.pending[key] = value
	j.written = append(j.written, w)
	j.mu.Unlock()

	http.SetCookie(j.c.Writer, &http.Cookie{
		Name:     w.Name,
		Value:    Encode(w.Value),
		Expires:  w.Expires.UTC(),
		Domain:   w.Domain,
		Path:     w.Path,
		Secure:   j.defaults.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Written returns the cookies written through the jar, in order.
func (j *HTTPJar) Written() []Written {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Written(nil), j.written...)
}

// MemoryJar is an in-process Jar. It backs command-line tools and tests.
type MemoryJar struct {
	defaults Defaults
	hostname string

	mu      sync.Mutex
	values  map[string]string
	written []Written
}

// NewMemoryJar returns a jar for hostname seeded with initial cookies.
func NewMemoryJar(hostname string, defaults Defaults, initial map[string]string) *MemoryJar {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryJar{defaults: defaults, hostname: hostname, values: values}
}

func (j *MemoryJar) Get(key string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	value := j.values[key]
	return value, value != ""
}

func (j *MemoryJar) Set(key, value string, opts ...Option) {
	attrs := resolve(j.hostname, j.defaults, opts)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.values[key] = value
	j.written = append(j.written, Written{
		Name:    key,
		Value:   value,
		Expires: j.defaults.now().Add(time.Duration(attrs.Days) * 24 * time.Hour),
		Domain:  attrs.Domain,
		Path:    attrs.Path,
	})
}

// Written returns the cookies written through the jar, in order.
func (j *MemoryJar) Written() []Written {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Written(nil), j.written...)
}
