package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache/memory"
)

// seed writes a compiled snapshot into the cache and refreshes the reader's
// prefilter from the equivalent structure.
func seed(t *testing.T, cache aclcache.Client, r *Reader, perAddress map[string][]string, global []string) {
	t.Helper()

	compiled := domain.NewCompiledACL()
	entries := make(map[string][]byte)
	for addr, patterns := range perAddress {
		compiled.PerAddress[addr] = domain.NewDomainSet(patterns...)
		entries[aclcache.AddressKey(addr)] = mustJSON(t, patterns)
	}
	compiled.Global = domain.NewDomainSet(global...)
	entries[aclcache.AllUsersKey] = mustJSON(t, global)
	entries[aclcache.MetaKey] = []byte(`{"source_policies":1}`)

	assert.NoError(t, cache.ReplaceNamespace(context.Background(), entries))
	r.Refresh(compiled)
}

func mustJSON(t *testing.T, patterns []string) []byte {
	t.Helper()
	if patterns == nil {
		return []byte(`[]`)
	}
	out := []byte(`[`)
	for i, p := range patterns {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, '"')
		out = append(out, p...)
		out = append(out, '"')
	}
	return append(out, ']')
}

func TestReader_Decide(t *testing.T) {
	cache := memory.New(64, time.Minute)
	r := New(cache, 0.01)
	seed(t, cache, r,
		map[string][]string{
			"10.0.0.5": {"ads.example.com", "*.tracker.example"},
		},
		[]string{"malware.example"},
	)

	tests := []struct {
		name        string
		addr        string
		qname       string
		wantBlocked bool
		wantScope   string
		wantPattern string
	}{
		{
			name:        "exact per-address match",
			addr:        "10.0.0.5",
			qname:       "ads.example.com",
			wantBlocked: true,
			wantScope:   "address",
			wantPattern: "ads.example.com",
		},
		{
			name:        "wildcard per-address match on subdomain",
			addr:        "10.0.0.5",
			qname:       "cdn.tracker.example",
			wantBlocked: true,
			wantScope:   "address",
			wantPattern: "*.tracker.example",
		},
		{
			name:        "wildcard matches the apex too",
			addr:        "10.0.0.5",
			qname:       "tracker.example",
			wantBlocked: true,
			wantScope:   "address",
			wantPattern: "*.tracker.example",
		},
		{
			name:        "global match applies to untracked address",
			addr:        "192.168.1.20",
			qname:       "malware.example",
			wantBlocked: true,
			wantScope:   "global",
			wantPattern: "malware.example",
		},
		{
			name:        "global match applies to tracked address as well",
			addr:        "10.0.0.5",
			qname:       "malware.example",
			wantBlocked: true,
			wantScope:   "global",
			wantPattern: "malware.example",
		},
		{
			name:  "unrelated domain allowed",
			addr:  "10.0.0.5",
			qname: "example.org",
		},
		{
			name:  "per-address rules do not leak to other addresses",
			addr:  "192.168.1.20",
			qname: "ads.example.com",
		},
		{
			name:        "query name is canonicalized",
			addr:        "10.0.0.5",
			qname:       "ADS.Example.COM.",
			wantBlocked: true,
			wantScope:   "address",
			wantPattern: "ads.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Decide(context.Background(), tt.addr, tt.qname)
			assert.Equal(t, tt.wantBlocked, d.Blocked)
			if tt.wantBlocked {
				assert.Equal(t, tt.wantScope, d.Scope)
				assert.Equal(t, tt.wantPattern, d.MatchedPattern)
			}
		})
	}
}

func TestReader_Decide_FullInternetSentinel(t *testing.T) {
	cache := memory.New(64, time.Minute)
	r := New(cache, 0.01)
	seed(t, cache, r, nil, []string{domain.AllDomains})

	d := r.Decide(context.Background(), "10.0.0.99", "anything.example")
	assert.True(t, d.Blocked)
	assert.Equal(t, "global", d.Scope)
	assert.Equal(t, domain.AllDomains, d.MatchedPattern)
}

func TestReader_Decide_EmptyCacheAllows(t *testing.T) {
	cache := memory.New(64, time.Minute)
	r := New(cache, 0.01)
	// no refresh, no cache contents: the cache stays authoritative and
	// absent keys yield no decision
	d := r.Decide(context.Background(), "10.0.0.5", "ads.example.com")
	assert.False(t, d.Blocked)
}

func TestReader_Decide_RefreshedFilterEarlyAllows(t *testing.T) {
	cache := memory.New(64, time.Minute)
	r := New(cache, 0.01)
	seed(t, cache, r,
		map[string][]string{"10.0.0.5": {"ads.example.com"}},
		nil,
	)

	// a name no pattern can cover is allowed without a wrong answer even
	// when the filter short-circuits the cache lookups
	d := r.Decide(context.Background(), "10.0.0.5", "unrelated.example.net")
	assert.False(t, d.Blocked)
}

func TestReader_Meta(t *testing.T) {
	cache := memory.New(64, time.Minute)
	r := New(cache, 0.01)

	_, ok, err := r.Meta(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)

	seed(t, cache, r, nil, nil)

	meta, ok, err := r.Meta(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, meta.SourcePolicies)
}

func TestReader_StaleFilterOnlyCostsLookups(t *testing.T) {
	cache := memory.New(64, time.Minute)
	r := New(cache, 0.01)
	seed(t, cache, r,
		map[string][]string{"10.0.0.5": {"ads.example.com"}},
		nil,
	)

	// swap the cache underneath without refreshing the filter: the stale
	// filter may pass the name through, but the cache answers correctly
	err := cache.ReplaceNamespace(context.Background(), map[string][]byte{
		aclcache.AllUsersKey: []byte(`[]`),
	})
	assert.NoError(t, err)

	d := r.Decide(context.Background(), "10.0.0.5", "ads.example.com")
	assert.False(t, d.Blocked)
}
