// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api provides the HTTP surface of storefront-bridge. It composes a
// per-session auth store, cart store and bridge reconciler for every request
// and exposes them through a gin engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/auth"
	"github.com/traylinx/storefront-bridge/internal/cart"
	"github.com/traylinx/storefront-bridge/internal/commerce"
	"github.com/traylinx/storefront-bridge/internal/config"
	"github.com/traylinx/storefront-bridge/internal/storage"
	"github.com/traylinx/storefront-bridge/internal/util"
)

// Server is the storefront-bridge HTTP server.
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	stateBox *util.StateBox
	backend  storage.Backend
	bus      *auth.Bus
	events   *eventHub

	mu      sync.RWMutex
	cfg     *config.Config
	client  *commerce.Client
	fetcher *cart.Fetcher

	startedAt time.Time
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithCommerceClient replaces the client built from configuration.
func WithCommerceClient(client *commerce.Client) ServerOption {
	return func(s *Server) {
		s.client = client
		s.fetcher = cart.NewFetcher(client)
	}
}

// NewServer builds the engine and routes. backend is shared by all sessions;
// the server does not close it.
func NewServer(cfg *config.Config, sb *util.StateBox, backend storage.Backend, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: nil config")
	}
	if backend == nil {
		return nil, errors.New("api: nil storage backend")
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:    gin.New(),
		stateBox:  sb,
		backend:   backend,
		bus:       auth.NewBus(),
		events:    newEventHub(),
		cfg:       cfg,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		client, err := newCommerceClient(cfg)
		if err != nil {
			return nil, err
		}
		s.client = client
		s.fetcher = cart.NewFetcher(client)
	}

	s.engine.Use(gin.Recovery(), RequestIDMiddleware(), SessionMiddleware(cfg.Bridge.CookieSecure))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func newCommerceClient(cfg *config.Config) (*commerce.Client, error) {
	client, err := commerce.NewClient(commerce.Config{
		Endpoint: cfg.Commerce.GraphQLEndpoint,
		Headers:  cfg.Commerce.Headers,
		Timeout:  time.Duration(cfg.Commerce.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("api: commerce client: %w", err)
	}
	return client, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	b := s.engine.Group("/bridge")
	{
		b.GET("/authenticated", s.withSession(s.handleAuthenticated))
		b.POST("/synchronize", s.withSession(s.handleSynchronize))
		b.GET("/state", s.withSession(s.handleState))
		b.GET("/redirect/*path", s.withSession(s.handleRedirect))
		b.GET("/events", s.withSession(s.handleEvents))
	}

	a := s.engine.Group("/account")
	{
		a.POST("/login", s.withSession(s.handleLogin))
		a.POST("/logout", s.withSession(s.handleLogout))
		a.POST("/register", s.withSession(s.handleRegister))
		a.POST("/password/reset-request", s.withSession(s.handlePasswordResetRequest))
		a.POST("/password/reset", s.withSession(s.handlePasswordReset))
	}

	s.engine.GET("/cart", s.withSession(s.handleCart))

	m := s.engine.Group("/v0/management", ManagementMiddleware(s.config))
	{
		m.GET("/status", StateBoxStatusHandler(s.stateBox, s.backend, s.bus))
	}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// config returns the active configuration.
func (s *Server) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) commerce() (*commerce.Client, *cart.Fetcher) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client, s.fetcher
}

// UpdateConfig swaps in a reloaded configuration. A changed commerce endpoint,
// header set or timeout rebuilds the GraphQL client. Listener and storage
// settings only take effect after a restart.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	old := s.config()

	var (
		client  *commerce.Client
		fetcher *cart.Fetcher
	)
	if commerceChanged(old, cfg) {
		c, err := newCommerceClient(cfg)
		if err != nil {
			log.Errorf("config reload: keeping previous commerce client: %v", err)
		} else {
			client, fetcher = c, cart.NewFetcher(c)
			log.Infof("commerce endpoint set to %s", c.Endpoint())
		}
	}
	if old.Host != cfg.Host || old.Port != cfg.Port || old.TLS != cfg.TLS {
		log.Warn("config reload: listener changes require a restart")
	}
	if old.Storage.Driver != cfg.Storage.Driver {
		log.Warn("config reload: storage driver changes require a restart")
	}

	s.mu.Lock()
	s.cfg = cfg
	if client != nil {
		s.client, s.fetcher = client, fetcher
	}
	s.mu.Unlock()
}

func commerceChanged(old, cfg *config.Config) bool {
	if old.Commerce.GraphQLEndpoint != cfg.Commerce.GraphQLEndpoint || old.Commerce.TimeoutSeconds != cfg.Commerce.TimeoutSeconds {
		return true
	}
	if len(old.Commerce.Headers) != len(cfg.Commerce.Headers) {
		return true
	}
	for k, v := range cfg.Commerce.Headers {
		if old.Commerce.Headers[k] != v {
			return true
		}
	}
	return false
}

// Start serves until Stop is called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	cfg := s.config()
	log.Infof("storefront-bridge listening on %s", s.server.Addr)

	var err error
	if cfg.TLS.Enable {
		err = s.server.ListenAndServeTLS(cfg.TLS.Cert, cfg.TLS.Key)
	} else {
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Stop closes open event streams and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.events.closeAll()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}
