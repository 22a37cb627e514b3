// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMalformedEnvelope is returned when a stored envelope cannot be decoded.
var ErrMalformedEnvelope = errors.New("storage: malformed envelope")

// Envelope is the legacy persistence wrapper shared with the storefront frontend:
//
//	{"value":"\"<value>\"","timeStored":<unix ms>,"ttl":<seconds>}
//
// The value is wrapped in literal quote characters. TTL is informational and
// never enforced on read.
type Envelope struct {
	Value      string
	TimeStored time.Time
	TTL        time.Duration
}

// EncodeEnvelope renders value in the legacy envelope format.
func EncodeEnvelope(value string, stored time.Time, ttl time.Duration) (string, error) {
	raw, err := sjson.Set("", "value", `"`+value+`"`)
	if err != nil {
		return "", fmt.Errorf("storage: encode envelope value: %w", err)
	}
	if raw, err = sjson.Set(raw, "timeStored", stored.UnixMilli()); err != nil {
		return "", fmt.Errorf("storage: encode envelope timestamp: %w", err)
	}
	if raw, err = sjson.Set(raw, "ttl", int64(ttl/time.Second)); err != nil {
		return "", fmt.Errorf("storage: encode envelope ttl: %w", err)
	}
	return raw, nil
}

// DecodeEnvelope parses a legacy envelope. Every quote character is stripped from
// the value, matching what the frontend does when it reads the same key.
func DecodeEnvelope(raw string) (Envelope, error) {
	if !gjson.Valid(raw) {
		return Envelope{}, ErrMalformedEnvelope
	}
	value := gjson.Get(raw, "value")
	if value.Type != gjson.String {
		return Envelope{}, fmt.Errorf("%w: value is not a string", ErrMalformedEnvelope)
	}
	env := Envelope{Value: strings.ReplaceAll(value.String(), `"`, "")}
	if ts := gjson.Get(raw, "timeStored"); ts.Exists() {
		env.TimeStored = time.UnixMilli(ts.Int())
	}
	if ttl := gjson.Get(raw, "ttl"); ttl.Exists() {
		env.TTL = time.Duration(ttl.Int()) * time.Second
	}
	return env, nil
}

// Expired reports whether the envelope's nominal TTL has elapsed at now.
// An envelope without TTL never expires.
func (e Envelope) Expired(now time.Time) bool {
	if e.TTL <= 0 || e.TimeStored.IsZero() {
		return false
	}
	return now.After(e.TimeStored.Add(e.TTL))
}
