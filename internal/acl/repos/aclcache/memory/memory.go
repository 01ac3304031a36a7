// Package memory provides an in-process implementation of the aclcache
// client backed by an expirable LRU. It stands in for the external
// distributed cache behind the same contract, which also makes the
// synchronizer testable without network dependencies.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/haukened/dns-acl/internal/acl/repos/aclcache"
)

// client implements aclcache.Client on an expirable LRU with a fixed TTL.
type client struct {
	lru *expirable.LRU[string, []byte]
}

// New returns an in-memory cache client. Entries expire after ttl; size
// caps the number of live entries.
func New(size int, ttl time.Duration) aclcache.Client {
	return &client{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

// ReplaceNamespace deletes every key under the ACL namespace, then writes
// the new entries. The two phases are not atomic with respect to readers,
// matching the distributed cache's semantics.
func (c *client) ReplaceNamespace(_ context.Context, entries map[string][]byte) error {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, aclcache.Namespace) {
			c.lru.Remove(key)
		}
	}
	for key, val := range entries {
		c.lru.Add(key, val)
	}
	return nil
}

// Get returns the value for key if present and not expired.
func (c *client) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.lru.Get(key)
	return val, ok, nil
}

// Keys returns all live keys.
func (c *client) Keys(_ context.Context) ([]string, error) {
	return c.lru.Keys(), nil
}

// Close releases the client. The in-memory backend has nothing to tear
// down.
func (c *client) Close() error { return nil }

var _ aclcache.Client = (*client)(nil)
