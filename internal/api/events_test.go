// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/storefront-bridge/internal/constant"
)

func dialEvents(t *testing.T, ts *httptest.Server, session string) (*websocket.Conn, *http.Response) {
	t.Helper()
	header := http.Header{}
	if session != "" {
		header.Set("Cookie", constant.CookieSession+"="+session)
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/bridge/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, resp
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestEventsPushesAuthRecordOnSynchronize(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)

	conn, _ := dialEvents(t, ts, testSession)

	initial := readEvent(t, conn)
	assert.Equal(t, EventTypeAuth, initial.Type)
	assert.False(t, initial.Record.IsAuthenticated)
	assert.Equal(t, 1, env.srv.bus.Sessions())

	rr := env.do(t, http.MethodPost, "/bridge/synchronize", "", map[string]string{
		constant.CookieSession:       testSession,
		constant.CookieAuthenticated: "true",
		constant.CookieSigninToken:   "tok-ws",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	pushed := readEvent(t, conn)
	assert.Equal(t, "tok-ws", pushed.Record.Token)
	assert.True(t, pushed.Record.IsAuthenticated)
}

func TestEventsIgnoresOtherSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)

	conn, _ := dialEvents(t, ts, testSession)
	readEvent(t, conn)

	env.do(t, http.MethodPost, "/bridge/synchronize", "", map[string]string{
		constant.CookieSession:       "0d4c7c53-6a0e-4f59-9d0c-3f1a2b3c4d5e",
		constant.CookieAuthenticated: "true",
		constant.CookieSigninToken:   "tok-other",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var ev Event
	assert.Error(t, conn.ReadJSON(&ev))
}

func TestEventsIssuesSessionCookieOnUpgrade(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)

	conn, resp := dialEvents(t, ts, "")
	readEvent(t, conn)

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == constant.CookieSession {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStopClosesEventStreams(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)

	conn, _ := dialEvents(t, ts, testSession)
	readEvent(t, conn)

	env.srv.events.closeAll()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)

	require.Eventually(t, func() bool { return env.srv.bus.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)
	_ = env.srv.Stop(context.Background())
}
