// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/storefront-bridge/internal/auth"
	"github.com/traylinx/storefront-bridge/internal/bridge"
	"github.com/traylinx/storefront-bridge/internal/buildinfo"
	"github.com/traylinx/storefront-bridge/internal/cart"
	"github.com/traylinx/storefront-bridge/internal/config"
)

// State is the session view returned by the bridge and account endpoints.
type State struct {
	Authenticated     bool            `json:"authenticated"`
	Auth              auth.Record     `json:"auth"`
	CartID            string          `json:"cart_id"`
	BridgeType        bridge.Identity `json:"bridge_type"`
	UseBridgeRedirect bool            `json:"use_bridge_redirect"`
}

func (s *session) state(c *gin.Context) (State, error) {
	ctx := c.Request.Context()
	rec, err := s.auth.Auth(ctx)
	if err != nil {
		return State{}, err
	}
	cartID, err := s.cart.CartID(ctx)
	if err != nil {
		return State{}, err
	}
	r := s.bridge.Reconciler()
	return State{
		Authenticated:     s.bridge.Authenticated(),
		Auth:              rec,
		CartID:            cartID,
		BridgeType:        r.BridgeType(ctx),
		UseBridgeRedirect: r.UseBridgeRedirect(ctx),
	}, nil
}

// withSession composes the session and hands it to fn, answering 500 when the
// session storage cannot be read.
func (s *Server) withSession(fn func(c *gin.Context, sess *session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := s.session(c)
		if err != nil {
			requestLogger(c).Errorf("compose session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
			return
		}
		fn(c, sess)
	}
}

func (s *Server) respondState(c *gin.Context, sess *session, status int, extra gin.H) {
	st, err := sess.state(c)
	if err != nil {
		requestLogger(c).Errorf("read session state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}
	body := gin.H{"state": st}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"build":   buildinfo.Current(),
		"storage": s.backend.Name(),
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleAuthenticated(c *gin.Context, sess *session) {
	c.JSON(http.StatusOK, gin.H{"authenticated": sess.bridge.Authenticated()})
}

func (s *Server) handleSynchronize(c *gin.Context, sess *session) {
	out, err := sess.bridge.Synchronize(c.Request.Context())
	extra := gin.H{"outcome": out}
	if err != nil {
		extra["error"] = err.Error()
	}
	s.respondState(c, sess, http.StatusOK, extra)
}

func (s *Server) handleState(c *gin.Context, sess *session) {
	s.respondState(c, sess, http.StatusOK, nil)
}

func (s *Server) handleRedirect(c *gin.Context, sess *session) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	target, err := sess.bridge.Redirect(c.Request.Context(), path)
	if err != nil {
		requestLogger(c).Errorf("redirect %s: %v", path, err)
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrConfigValueNotFound) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "store URL is not configured"})
		return
	}
	c.Redirect(http.StatusFound, target)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context, sess *session) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	sess.accounts.Login(c.Request.Context(), req.Email, req.Password)
	s.respondState(c, sess, http.StatusOK, nil)
}

func (s *Server) handleLogout(c *gin.Context, sess *session) {
	sess.accounts.Logout(c.Request.Context())
	s.respondState(c, sess, http.StatusOK, nil)
}

type registerRequest struct {
	Firstname    string `json:"firstname" binding:"required"`
	Lastname     string `json:"lastname" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	IsSubscribed bool   `json:"is_subscribed"`
}

func (s *Server) handleRegister(c *gin.Context, sess *session) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "firstname, lastname, email and password are required"})
		return
	}
	sess.accounts.Register(c.Request.Context(), auth.CustomerInput{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Email:        req.Email,
		Password:     req.Password,
		IsSubscribed: req.IsSubscribed,
	})
	s.respondState(c, sess, http.StatusOK, nil)
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) handlePasswordResetRequest(c *gin.Context, sess *session) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	ok, err := sess.accounts.RequestPasswordResetEmail(c.Request.Context(), req.Email)
	if err != nil {
		requestLogger(c).Errorf("request password reset: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": ok})
}

type resetPasswordRequest struct {
	Email              string `json:"email" binding:"required"`
	ResetPasswordToken string `json:"reset_password_token" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required"`
}

func (s *Server) handlePasswordReset(c *gin.Context, sess *session) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, reset_password_token and new_password are required"})
		return
	}
	ok, err := sess.accounts.ResetPassword(c.Request.Context(), req.Email, req.ResetPasswordToken, req.NewPassword)
	if err != nil {
		requestLogger(c).Errorf("reset password: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": ok})
}

// handleCart serves the cached cart. ?refresh=true refetches it first.
func (s *Server) handleCart(c *gin.Context, sess *session) {
	ctx := c.Request.Context()
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if _, err := sess.cart.Refresh(ctx); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
			requestLogger(c).Errorf("refresh cart: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "cart refresh failed"})
			return
		}
	}
	snapshot, ok, err := sess.cart.Snapshot(ctx)
	if err != nil {
		requestLogger(c).Errorf("read cart snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"cart": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": snapshot})
}
