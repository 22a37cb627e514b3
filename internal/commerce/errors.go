// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package commerce

import "strings"

// Error categories reported in extensions.category.
const (
	CategoryAuthentication = "graphql-authentication"
	CategoryAuthorization  = "graphql-authorization"
	CategoryNoSuchEntity   = "graphql-no-such-entity"
	CategoryInput          = "graphql-input"
)

// Error is one entry of a GraphQL errors array.
type Error struct {
	Message    string     `json:"message"`
	Path       []any      `json:"path,omitempty"`
	Extensions Extensions `json:"extensions,omitempty"`
}

// Extensions carries the commerce error classification.
type Extensions struct {
	Category string `json:"category,omitempty"`
}

// Errors is a GraphQL errors array. A non-empty Errors is an error.
type Errors []Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return "commerce: no errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "commerce: graphql errors: " + strings.Join(msgs, "; ")
}

// HasCategory reports whether any error carries the given category.
func (e Errors) HasCategory(category string) bool {
	for _, err := range e {
		if err.Extensions.Category == category {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
