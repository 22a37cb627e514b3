// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/storefront-bridge/internal/auth"
	"github.com/traylinx/storefront-bridge/internal/bridge"
	"github.com/traylinx/storefront-bridge/internal/cart"
	"github.com/traylinx/storefront-bridge/internal/cookie"
	"github.com/traylinx/storefront-bridge/internal/storage"
)

// session is everything one request needs to act for a browser.
type session struct {
	id       string
	auth     *auth.Store
	cart     *cart.Store
	bridge   *bridge.API
	accounts *auth.Accounts
}

// session composes the stores of the request's browser session. Storage is
// scoped by the session id; observers are shared through the bus so event
// streams hear updates made here.
func (s *Server) session(c *gin.Context) (*session, error) {
	cfg := s.config()
	client, fetcher := s.commerce()
	logger := requestLogger(c)
	id := sessionID(c)

	st := storage.Scoped(s.backend, id)
	jar := cookie.NewHTTPJar(c, cookie.Defaults{
		ExpirationDays: cfg.Bridge.CookieExpirationDays,
		Domain:         cfg.Bridge.CookieDomain,
		Secure:         cfg.Bridge.CookieSecure,
	})

	authStore, err := auth.NewStore(c.Request.Context(), st, jar, auth.Options{
		Namespace: cfg.Bridge.AuthNamespace,
		TokenTTL:  time.Duration(cfg.Bridge.TokenTTLSeconds) * time.Second,
		Observers: s.bus.Observers(id),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	cartStore := cart.NewStore(st, fetcher, authStore, cart.Options{Logger: logger})
	reconciler := bridge.NewReconciler(authStore, cartStore, logger)

	return &session{
		id:       id,
		auth:     authStore,
		cart:     cartStore,
		bridge:   bridge.NewAPI(reconciler, cfg, bridge.Redirector{Route: cfg.Bridge.Route}),
		accounts: auth.NewAccounts(client, authStore, logger),
	}, nil
}
