// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/config"
	"github.com/traylinx/storefront-bridge/internal/constant"
	"github.com/traylinx/storefront-bridge/internal/logging"
	"github.com/traylinx/storefront-bridge/internal/util"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxLoggerKey    = "bridge.logger"
	ctxSessionKey   = "bridge.session"

	sessionCookieMaxAge = 365 * 24 * time.Hour
)

// RequestIDMiddleware tags every request with an id, echoes it in the
// X-Request-ID header and logs the request once it completes.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()[:8]
		}
		c.Header(requestIDHeader, id)
		entry := log.WithField(logging.RequestIDField, id)
		c.Set(ctxLoggerKey, entry)

		start := time.Now()
		c.Next()

		entry.WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).Round(time.Millisecond)).
			Debugf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}

// SessionMiddleware binds the request to a browser session, issuing a new
// session cookie when the request carries none.
func SessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(constant.CookieSession)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     constant.CookieSession,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(ctxSessionKey, id)
		c.Set(ctxLoggerKey, requestLogger(c).WithField("session", util.HideSecret(id)))
		c.Next()
	}
}

// ManagementMiddleware guards the management routes. Remote callers are refused
// unless allow-remote is set, and every caller must present the secret key.
func ManagementMiddleware(cfg func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := cfg()
		if current.RemoteManagement.SecretKey == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "management API disabled"})
			return
		}
		if !current.RemoteManagement.AllowRemote && !util.IsLocalhostDirect(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "remote management disabled"})
			return
		}
		key := c.GetHeader("X-Management-Key")
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			key = strings.TrimSpace(bearer)
		}
		if !current.CheckManagementKey(key) {
			requestLogger(c).Warn("management: rejected request with invalid key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}

// requestLogger returns the request-scoped log entry.
func requestLogger(c *gin.Context) *log.Entry {
	if v, ok := c.Get(ctxLoggerKey); ok {
		if entry, ok := v.(*log.Entry); ok {
			return entry
		}
	}
	return log.NewEntry(log.StandardLogger())
}

func sessionID(c *gin.Context) string {
	return c.GetString(ctxSessionKey)
}
