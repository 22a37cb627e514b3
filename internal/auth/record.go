// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	json "github.com/goccy/go-json"
)

// Record is the per-token authentication status persisted next to the token.
// An empty Token encodes as null.
type Record struct {
	Token           string
	IsAuthenticated bool
}

// DefaultRecord is returned whenever no token is set or nothing usable is stored.
var DefaultRecord = Record{}

type recordJSON struct {
	Token           *string `json:"token"`
	IsAuthenticated bool    `json:"isAuthenticated"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	w := recordJSON{IsAuthenticated: r.IsAuthenticated}
	if r.Token != "" {
		token := r.Token
		w.Token = &token
	}
	return json.Marshal(w)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.IsAuthenticated = w.IsAuthenticated
	r.Token = ""
	if w.Token != nil {
		r.Token = *w.Token
	}
	return nil
}
