// Package aclcache defines the client contract for the distributed cache
// holding the compiled ACL structure, and the key naming consumed by the
// DNS hot path.
package aclcache

import "context"

// Key families shared with the hot-path consumer. All three are rewritten
// wholesale on every rebuild and carry the same time-to-live.
const (
	// Namespace prefixes every key owned by the synchronizer.
	Namespace = "acl:"
	// AddressKeyPrefix prefixes the per-address set keys.
	AddressKeyPrefix = "acl:ip:"
	// AllUsersKey holds the set of patterns blocked for every address.
	AllUsersKey = "acl:all_users"
	// MetaKey holds the JSON-encoded metadata of the last rebuild.
	MetaKey = "acl:meta"
)

// AddressKey returns the cache key holding the blocked-pattern set for one
// address.
func AddressKey(addr string) string {
	return AddressKeyPrefix + addr
}

// Client is the injected handle to the distributed cache. Implementations
// own their connection lifecycle; the synchronizer only sees this contract.
//
// ReplaceNamespace deletes every existing key under the ACL namespace and
// then writes the given entries, each with the client's fixed TTL. Readers
// are never blocked during the swap; a concurrent read may observe the
// window between delete and write.
type Client interface {
	ReplaceNamespace(ctx context.Context, entries map[string][]byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
