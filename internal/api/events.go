// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/traylinx/storefront-bridge/internal/auth"
)

const (
	eventsReadTimeout  = 60 * time.Second
	eventsWriteTimeout = 10 * time.Second
	eventsPingInterval = 30 * time.Second
	eventsMaxInbound   = 4 << 10
)

// EventTypeAuth carries the session's auth record.
const EventTypeAuth = "auth"

// Event is one message on the /bridge/events stream.
type Event struct {
	Type   string      `json:"type"`
	Record auth.Record `json:"record"`
}

var errStreamClosed = errors.New("event stream closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// eventHub tracks open streams so shutdown can close them.
type eventHub struct {
	mu      sync.Mutex
	streams map[*eventStream]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{streams: make(map[*eventStream]struct{})}
}

func (h *eventHub) add(s *eventStream) {
	h.mu.Lock()
	h.streams[s] = struct{}{}
	h.mu.Unlock()
}

func (h *eventHub) remove(s *eventStream) {
	h.mu.Lock()
	delete(h.streams, s)
	h.mu.Unlock()
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	streams := make([]*eventStream, 0, len(h.streams))
	for s := range h.streams {
		streams = append(streams, s)
	}
	h.streams = make(map[*eventStream]struct{})
	h.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
}

// eventStream is one websocket connection of a browser session.
type eventStream struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex
	closed     chan struct{}
	closeOnce  sync.Once
}

func newEventStream(conn *websocket.Conn) *eventStream {
	s := &eventStream{conn: conn, closed: make(chan struct{})}
	conn.SetReadLimit(eventsMaxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsReadTimeout))
	})
	return s
}

func (s *eventStream) send(ev Event) error {
	select {
	case <-s.closed:
		return errStreamClosed
	default:
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func (s *eventStream) heartbeat() {
	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.writeMutex.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(eventsWriteTimeout))
			s.writeMutex.Unlock()
			if err != nil {
				s.close()
				return
			}
		}
	}
}

// drain discards client messages until the connection fails or closes.
func (s *eventStream) drain() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *eventStream) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.writeMutex.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
			time.Now().Add(eventsWriteTimeout))
		s.writeMutex.Unlock()
		_ = s.conn.Close()
	})
}

// handleEvents upgrades to a websocket that first sends the current auth
// record and then every record stored by SetAuth in this session.
func (s *Server) handleEvents(c *gin.Context, sess *session) {
	logger := requestLogger(c)
	rec, err := sess.auth.Auth(c.Request.Context())
	if err != nil {
		logger.Errorf("events: read auth record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session storage unavailable"})
		return
	}

	// The upgrade response is written by the websocket library, so a freshly
	// issued session cookie has to be passed along explicitly.
	header := http.Header{}
	for _, v := range c.Writer.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", v)
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		logger.Warnf("events: upgrade failed: %v", err)
		return
	}

	stream := newEventStream(conn)
	s.events.add(stream)
	defer func() {
		s.events.remove(stream)
		stream.close()
	}()

	sub := s.bus.Subscribe(sess.id, func(r auth.Record) {
		if errSend := stream.send(Event{Type: EventTypeAuth, Record: r}); errSend != nil && !errors.Is(errSend, errStreamClosed) {
			logger.Debugf("events: push failed: %v", errSend)
			stream.close()
		}
	})
	defer sub.Unsubscribe()

	if err = stream.send(Event{Type: EventTypeAuth, Record: rec}); err != nil {
		logger.Debugf("events: initial send failed: %v", err)
		return
	}
	logger.Debug("events: stream opened")

	go stream.heartbeat()
	stream.drain()
	logger.Debug("events: stream closed")
}
