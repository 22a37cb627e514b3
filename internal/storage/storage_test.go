// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/storefront-bridge/internal/util"
)

// exerciseBackend runs the localStorage contract against any Storage.
func exerciseBackend(t *testing.T, st Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := st.GetItem(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SetItem(ctx, "k", "v1"))
	v, ok, err := st.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, st.SetItem(ctx, "k", "v2"))
	v, _, err = st.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	require.NoError(t, st.SetItem(ctx, "session/with spaces", `{"a":"b"}`))
	v, ok, err = st.GetItem(ctx, "session/with spaces")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":"b"}`, v)

	require.NoError(t, st.RemoveItem(ctx, "k"))
	_, ok, err = st.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.RemoveItem(ctx, "k"), "removing a missing key succeeds")
}

func TestMemory(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestMemoryKeysSorted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SetItem(ctx, "b", "1"))
	require.NoError(t, m.SetItem(ctx, "a", "2"))
	assert.Equal(t, []string{"a", "b"}, m.Keys())
}

func TestFile(t *testing.T) {
	sb, err := util.NewStateBoxAt(t.TempDir())
	require.NoError(t, err)
	f, err := NewFile(sb, "")
	require.NoError(t, err)
	assert.Equal(t, sb.StorageDir(), f.Dir())
	exerciseBackend(t, f)
}

func TestFileReadOnly(t *testing.T) {
	dir := t.TempDir()
	sb, err := util.NewStateBoxAt(dir)
	require.NoError(t, err)
	_, err = NewFile(sb, "")
	require.NoError(t, err)

	t.Setenv("BRIDGE_READONLY", "1")
	ro, err := util.NewStateBoxAt(dir)
	require.NoError(t, err)
	f, err := NewFile(ro, "")
	require.NoError(t, err)

	err = f.SetItem(context.Background(), "k", "v")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestSQLite(t *testing.T) {
	sb, err := util.NewStateBoxAt(t.TempDir())
	require.NoError(t, err)
	s, err := NewSQLite(context.Background(), sb, "test.db")
	require.NoError(t, err)
	defer s.Close()
	assert.Contains(t, s.Path(), sb.StorageDir())
	exerciseBackend(t, s)
}

func TestScopedIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	a := Scoped(base, "session-a")
	b := Scoped(base, "session-b")

	require.NoError(t, a.SetItem(ctx, "token", "ta"))
	_, ok, err := b.GetItem(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.SetItem(ctx, "token", "tb"))
	v, _, _ := a.GetItem(ctx, "token")
	assert.Equal(t, "ta", v)
	assert.Equal(t, []string{"session-a/token", "session-b/token"}, base.Keys())

	require.NoError(t, a.RemoveItem(ctx, "token"))
	v, ok, _ = b.GetItem(ctx, "token")
	assert.True(t, ok)
	assert.Equal(t, "tb", v)
}

func TestScopedEmptyScopeIsIdentity(t *testing.T) {
	base := NewMemory()
	assert.Same(t, Storage(base), Scoped(base, "/"))
}

func TestEnvelopeEncode(t *testing.T) {
	stored := time.UnixMilli(1700000000123)
	raw, err := EncodeEnvelope("abc", stored, time.Hour)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"\"abc\"","timeStored":1700000000123,"ttl":3600}`, raw)

	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc", env.Value)
	assert.Equal(t, stored.UnixMilli(), env.TimeStored.UnixMilli())
	assert.Equal(t, time.Hour, env.TTL)
}

func TestEnvelopeDecodeStripsEveryQuote(t *testing.T) {
	env, err := DecodeEnvelope(`{"value":"\"a\"b\"","timeStored":1,"ttl":1}`)
	require.NoError(t, err)
	assert.Equal(t, "ab", env.Value)
}

func TestEnvelopeDecodeMalformed(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"value":1}`, `{"other":"x"}`} {
		_, err := DecodeEnvelope(raw)
		assert.ErrorIs(t, err, ErrMalformedEnvelope, raw)
	}
}

func TestEnvelopeExpired(t *testing.T) {
	stored := time.Unix(1000, 0)
	env := Envelope{Value: "x", TimeStored: stored, TTL: time.Minute}
	assert.False(t, env.Expired(stored.Add(30*time.Second)))
	assert.True(t, env.Expired(stored.Add(2*time.Minute)))
	assert.False(t, Envelope{Value: "x"}.Expired(stored))
}

func TestOpenSelectsDriver(t *testing.T) {
	sb, err := util.NewStateBoxAt(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	b, err := Open(ctx, sb, Options{})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, b.Name())

	b, err = Open(ctx, sb, Options{Driver: "FILE"})
	require.NoError(t, err)
	assert.Equal(t, DriverFile, b.Name())

	_, err = Open(ctx, sb, Options{Driver: "redis"})
	assert.Error(t, err)

	_, err = Open(ctx, sb, Options{Driver: DriverPostgres})
	assert.ErrorContains(t, err, "DSN is required")

	_, err = Open(ctx, sb, Options{Driver: DriverObject})
	assert.ErrorContains(t, err, "endpoint is required")
}

func TestObjectKeyFor(t *testing.T) {
	assert.Equal(t, "sess/M2_VENIA_BROWSER_PERSISTENCE__cartId", objectKeyFor("", "sess/M2_VENIA_BROWSER_PERSISTENCE__cartId"))
	assert.Equal(t, "bridge/sess/a%20b", objectKeyFor("bridge", "/sess/a b"))
	assert.Equal(t, "p/COMMERCE_AUTH_CACHE_tok%3Fx", objectKeyFor("p", "COMMERCE_AUTH_CACHE_tok?x"))
}
