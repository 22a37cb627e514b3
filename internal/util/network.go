// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// IsLocalhostDirect checks if the request is coming directly from localhost
// without any proxy headers, ensuring a secure local connection.
func IsLocalhostDirect(c *gin.Context) bool {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return false
	}

	// Proxy headers mean the loopback address belongs to the proxy, not the client.
	if c.GetHeader("X-Forwarded-For") != "" ||
		c.GetHeader("X-Real-IP") != "" ||
		c.GetHeader("Forwarded") != "" {
		return false
	}

	return true
}

// RequestHostname returns the request host without its port.
func RequestHostname(c *gin.Context) string {
	host := c.Request.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.Trim(host, "[]")
}

// HideSecret masks all but the first and last four characters of a secret
// so tokens can appear in logs without leaking.
func HideSecret(secret string) string {
	if len(secret) > 8 {
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
	if len(secret) > 4 {
		return secret[:2] + "..." + secret[len(secret)-2:]
	}
	if secret == "" {
		return ""
	}
	return "****"
}
