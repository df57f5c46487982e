// Package notify is an in-process notification center. Posting never
// blocks: a subscriber whose channel is full misses the notification
package notify

import (
	"errors"
	"sync"
	"sync/atomic"
)

// Name identifies a kind of notification
type Name string

// Notification is one posted event. Object carries the payload, if any
type Notification struct {
	Name   Name
	Object any
}

var (
	ErrSubscriberExists   = errors.New("notify: subscriber id already exists")
	ErrSubscriberNotFound = errors.New("notify: subscriber id not found")
	ErrClosed             = errors.New("notify: center is closed")
)

// Stats is a snapshot of delivery counters
type Stats struct {
	Posted    uint64
	Delivered uint64
	Dropped   uint64
}

type subscriber struct {
	names map[Name]struct{}
	ch    chan<- Notification
}

// Center fans notifications out to subscribers filtered by name
type Center struct {
	mu     sync.RWMutex
	subs   map[string]subscriber
	closed bool

	posted, delivered, dropped atomic.Uint64
}

// New returns an empty Center
func New() *Center {
	return &Center{subs: make(map[string]subscriber)}
}

// Subscribe delivers notifications with any of names to ch. No names means all
func (c *Center) Subscribe(id string, ch chan<- Notification, names ...Name) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.subs[id]; ok {
		return ErrSubscriberExists
	}
	set := make(map[Name]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	c.subs[id] = subscriber{names: set, ch: ch}
	return nil
}

// Unsubscribe removes id; the channel is not closed
func (c *Center) Unsubscribe(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.subs[id]; !ok {
		return ErrSubscriberNotFound
	}
	delete(c.subs, id)
	return nil
}

// Post delivers n to every matching subscriber without blocking
func (c *Center) Post(n Notification) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.posted.Add(1)
	for _, s := range c.subs {
		if len(s.names) > 0 {
			if _, ok := s.names[n.Name]; !ok {
				continue
			}
		}
		select {
		case s.ch <- n:
			c.delivered.Add(1)
		default:
			c.dropped.Add(1)
		}
	}
}

// Stats returns the delivery counters
func (c *Center) Stats() Stats {
	return Stats{Posted: c.posted.Load(), Delivered: c.delivered.Load(), Dropped: c.dropped.Load()}
}

// Close drops every subscriber; later posts are ignored
func (c *Center) Close() {
	c.mu.Lock()
	c.closed = true
	c.subs = nil
	c.mu.Unlock()
}
