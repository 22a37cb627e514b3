// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/traylinx/storefront-bridge/internal/constant"
	"github.com/traylinx/storefront-bridge/internal/cookie"
	"github.com/traylinx/storefront-bridge/internal/storage"
)

var fixedNow = time.UnixMilli(1760000000000)

func newTestStore(t *testing.T, st storage.Storage) *Store {
	t.Helper()
	jar := cookie.NewMemoryJar("shop.example.com", cookie.Defaults{}, nil)
	s, err := NewStore(context.Background(), st, jar, Options{Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	return s
}

func TestSetTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestStore(t, mem)

	require.NoError(t, s.SetToken(ctx, "ABC"))
	assert.Equal(t, "ABC", s.Token())

	raw, ok, err := mem.GetItem(ctx, constant.TokenStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"ABC"`, gjson.Get(raw, "value").String())
	assert.Equal(t, fixedNow.UnixMilli(), gjson.Get(raw, "timeStored").Int())
	assert.Equal(t, int64(3600), gjson.Get(raw, "ttl").Int())

	rec, err := s.Auth(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{Token: "ABC", IsAuthenticated: true}, rec)

	// A fresh store of the same session loads the token once.
	again := newTestStore(t, mem)
	assert.Equal(t, "ABC", again.Token())
}

func TestWriteTokenLeavesRecordDefault(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, WriteToken(ctx, mem, "T1", time.Hour, fixedNow))

	token, err := ReadToken(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, "T1", token)

	s := newTestStore(t, mem)
	rec, err := s.Auth(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecord, rec)
	assert.Equal(t, []string{constant.TokenStorageKey}, mem.Keys())
}

func TestReadTokenUnparseable(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.SetItem(ctx, constant.TokenStorageKey, "{broken"))

	token, err := ReadToken(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, "", token)
}

func TestSetAuthWithoutTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestStore(t, mem)

	called := false
	s.Subscribe(func(Record) { called = true })

	require.NoError(t, s.SetAuth(ctx, Record{Token: "X", IsAuthenticated: true}))
	assert.Empty(t, mem.Keys())
	assert.False(t, called)

	rec, err := s.Auth(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecord, rec)
}

func TestCorruptRecordIsPurged(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, WriteToken(ctx, mem, "TOK", time.Hour, fixedNow))
	require.NoError(t, mem.SetItem(ctx, constant.AuthNamespace+"_TOK", "{not json"))

	s := newTestStore(t, mem)
	rec, err := s.Auth(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecord, rec)

	_, ok, err := mem.GetItem(ctx, constant.AuthNamespace+"_TOK")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsetAuthClearsEverything(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestStore(t, mem)
	require.NoError(t, s.SetToken(ctx, "XYZ"))
	require.Len(t, mem.Keys(), 2)

	require.NoError(t, s.UnsetAuth(ctx))
	assert.Empty(t, mem.Keys())
	assert.Equal(t, "", s.Token())

	rec, err := s.Auth(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRecord, rec)
}

func TestLogoutRequiresRevocation(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	s := newTestStore(t, mem)
	require.NoError(t, s.SetToken(ctx, "XYZ"))

	require.NoError(t, s.Logout(ctx, false))
	assert.Equal(t, "XYZ", s.Token())

	require.NoError(t, s.Logout(ctx, true))
	assert.Equal(t, "", s.Token())
	assert.Empty(t, mem.Keys())
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())

	var first, second []Record
	sub := s.Subscribe(func(r Record) { first = append(first, r) })
	s.Subscribe(func(r Record) { second = append(second, r) })

	require.NoError(t, s.SetToken(ctx, "A"))
	sub.Unsubscribe()
	require.NoError(t, s.SetAuth(ctx, Record{Token: "A"}))

	assert.Equal(t, []Record{{Token: "A", IsAuthenticated: true}}, first)
	assert.Equal(t, []Record{{Token: "A", IsAuthenticated: true}, {Token: "A"}}, second)
}

func TestPanickingObserverDoesNotStopOthers(t *testing.T) {
	obs := NewObservers()
	obs.Subscribe(func(Record) { panic("boom") })
	got := 0
	obs.Subscribe(func(Record) { got++ })

	obs.Publish(Record{})
	assert.Equal(t, 1, got)
}

func TestBusSharesObserversAcrossStores(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	assert.Nil(t, bus.Observers("s1"))

	var seen []Record
	sub := bus.Subscribe("s1", func(r Record) { seen = append(seen, r) })
	assert.Equal(t, 1, bus.Sessions())

	jar := cookie.NewMemoryJar("", cookie.Defaults{}, nil)
	s, err := NewStore(ctx, storage.NewMemory(), jar, Options{Observers: bus.Observers("s1")})
	require.NoError(t, err)
	require.NoError(t, s.SetToken(ctx, "T"))
	assert.Len(t, seen, 1)

	sub.Unsubscribe()
	assert.Equal(t, 0, bus.Sessions())
	assert.Nil(t, bus.Observers("s1"))
}

func TestRecordJSON(t *testing.T) {
	data, err := DefaultRecord.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":null,"isAuthenticated":false}`, string(data))

	var rec Record
	require.NoError(t, rec.UnmarshalJSON([]byte(`{"token":"Z","isAuthenticated":true}`)))
	assert.Equal(t, Record{Token: "Z", IsAuthenticated: true}, rec)
}

func TestCookieAccessors(t *testing.T) {
	jar := cookie.NewMemoryJar("shop.example.com", cookie.Defaults{}, map[string]string{constant.CookieAuthenticated: "true"})
	s, err := NewStore(context.Background(), storage.NewMemory(), jar, Options{})
	require.NoError(t, err)

	v, ok := s.Cookie(constant.CookieAuthenticated)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	s.SetCookie(constant.CookieCartReset, "false")
	written := jar.Written()
	require.Len(t, written, 1)
	assert.Equal(t, ".shop.example.com", written[0].Domain)
}

type failingStorage struct{ storage.Storage }

func (failingStorage) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}

func TestNewStoreWrapsStorageErrors(t *testing.T) {
	jar := cookie.NewMemoryJar("", cookie.Defaults{}, nil)
	_, err := NewStore(context.Background(), failingStorage{storage.NewMemory()}, jar, Options{})
	assert.ErrorContains(t, err, "auth: read token: disk gone")
}

func TestProperty_TokenRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("SetToken then Token returns the token and Auth is authenticated", prop.ForAll(
		func(token string) bool {
			ctx := context.Background()
			mem := storage.NewMemory()
			jar := cookie.NewMemoryJar("", cookie.Defaults{}, nil)
			s, err := NewStore(ctx, mem, jar, Options{})
			if err != nil {
				return false
			}
			if err = s.SetToken(ctx, token); err != nil {
				return false
			}
			stored, err := ReadToken(ctx, mem)
			if err != nil || stored != token || s.Token() != token {
				return false
			}
			rec, err := s.Auth(ctx)
			return err == nil && rec.Token == token && rec.IsAuthenticated
		},
		gen.Identifier(),
	))

	properties.Property("SetAuth without a token never writes", prop.ForAll(
		func(token string, authenticated bool) bool {
			ctx := context.Background()
			mem := storage.NewMemory()
			jar := cookie.NewMemoryJar("", cookie.Defaults{}, nil)
			s, err := NewStore(ctx, mem, jar, Options{})
			if err != nil {
				return false
			}
			if err = s.SetAuth(ctx, Record{Token: token, IsAuthenticated: authenticated}); err != nil {
				return false
			}
			return len(mem.Keys()) == 0
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
