package client

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Kind names a family of cached queries.
type Kind string

const (
	KindPost          Kind = "post"
	KindComments      Kind = "comments"
	KindProfile       Kind = "profile"
	KindNotifications Kind = "notifications"
	KindUnread        Kind = "unread"
)

// Key identifies one cached query result.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + "/" + k.ID
}

// QueryCache is a size- and age-bounded cache of query results. Values are
// shared with callers and must be treated as read-only.
type QueryCache struct {
	lru *expirable.LRU[Key, interface{}]
}

// NewQueryCache keeps at most size entries, each for at most ttl.
func NewQueryCache(size int, ttl time.Duration) *QueryCache {
	return &QueryCache{lru: expirable.NewLRU[Key, interface{}](size, nil, ttl)}
}

func (c *QueryCache) Get(key Key) (interface{}, bool) {
	return c.lru.Get(key)
}

func (c *QueryCache) Set(key Key, value interface{}) {
	c.lru.Add(key, value)
}

// Invalidate drops keys so the next read goes to the server.
func (c *QueryCache) Invalidate(keys ...Key) {
	for _, key := range keys {
		c.lru.Remove(key)
	}
}

// InvalidateKind drops every entry of kind.
func (c *QueryCache) InvalidateKind(kind Kind) {
	for _, key := range c.lru.Keys() {
		if key.Kind == kind {
			c.lru.Remove(key)
		}
	}
}

func (c *QueryCache) Len() int {
	return c.lru.Len()
}

func cached[T any](c *QueryCache, key Key) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
