// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Subscription is a handle for a registered auth observer.
type Subscription struct {
	ID          string
	Callback    func(Record)
	Unsubscribe func()
}

// Observers is a list of callbacks notified synchronously on every SetAuth.
// It may be shared by several stores of the same browser session.
type Observers struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// NewObservers creates an empty observer list.
func NewObservers() *Observers {
	return &Observers{}
}

// Subscribe registers callback and returns its handle.
func (o *Observers) Subscribe(callback func(Record)) *Subscription {
	sub := &Subscription{ID: uuid.NewString(), Callback: callback}
	sub.Unsubscribe = func() { o.remove(sub.ID) }

	o.mu.Lock()
	o.subs = append(o.subs, sub)
	o.mu.Unlock()
	return sub
}

func (o *Observers) remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s.ID == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers.
func (o *Observers) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}

// Publish calls every observer with rec in registration order. A panicking
// observer is logged and does not stop the others.
func (o *Observers) Publish(rec Record) {
	o.mu.RLock()
	active := make([]*Subscription, len(o.subs))
	copy(active, o.subs)
	o.mu.RUnlock()

	for _, sub := range active {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("panic in auth observer %s: %v", sub.ID, r)
				}
			}()
			sub.Callback(rec)
		}()
	}
}

// Bus keeps the observer lists of live browser sessions, so a long-lived
// listener (the events websocket) hears SetAuth calls made by later requests.
type Bus struct {
	mu       sync.Mutex
	sessions map[string]*Observers
}

// NewBus creates an empty session bus.
func NewBus() *Bus {
	return &Bus{sessions: make(map[string]*Observers)}
}

// Observers returns the observer list of session, or nil when nobody listens.
func (b *Bus) Observers(session string) *Observers {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[session]
}

// Subscribe registers callback for session. Unsubscribing the last observer of a
// session forgets the session.
func (b *Bus) Subscribe(session string, callback func(Record)) *Subscription {
	b.mu.Lock()
	obs, ok := b.sessions[session]
	if !ok {
		obs = NewObservers()
		b.sessions[session] = obs
	}
	sub := obs.Subscribe(callback)
	b.mu.Unlock()

	inner := sub.Unsubscribe
	sub.Unsubscribe = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		inner()
		if obs.Len() == 0 && b.sessions[session] == obs {
			delete(b.sessions, session)
		}
	}
	return sub
}

// Sessions returns the number of sessions with at least one observer.
func (b *Bus) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
