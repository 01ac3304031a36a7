// Package decision implements the cache read contract consumed by the DNS
// hot path: given a requesting address and a queried domain, it reports
// whether any compiled ACL entry blocks the pair. Reads never block on a
// rebuild; on internal errors the reader prefers Allow.
package decision

import (
	"context"
	"strings"
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/dns-acl/internal/acl/common/utils"
	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache"
)

// Decision is the outcome of evaluating one address/domain pair.
type Decision struct {
	Blocked        bool
	MatchedPattern string // pattern that matched, in administrator form
	Scope          string // "address" or "global"
}

// Reader consults a Bloom prefilter and then the cache. The prefilter is
// rebuilt by the synchronizer after every successful rebuild; between
// rebuilds it may be stale, which only costs extra cache lookups, never a
// wrong answer.
type Reader struct {
	mu     sync.RWMutex
	cache  aclcache.Client
	bloom  *bitsbloom.BloomFilter
	fpRate float64
}

// New constructs a Reader. fpRate is the target false-positive rate when
// sizing the prefilter.
func New(cache aclcache.Client, fpRate float64) *Reader {
	return &Reader{cache: cache, fpRate: fpRate}
}

// Refresh rebuilds the Bloom prefilter from a freshly compiled structure.
func (r *Reader) Refresh(compiled *domain.CompiledACL) {
	var n uint
	for _, set := range compiled.PerAddress {
		n += uint(len(set))
	}
	n += uint(len(compiled.Global))
	if n == 0 {
		n = 1
	}
	bf := bitsbloom.NewWithEstimates(n, r.fpRate)
	for _, set := range compiled.PerAddress {
		for pattern := range set {
			bf.AddString(pattern)
		}
	}
	for pattern := range compiled.Global {
		bf.AddString(pattern)
	}

	r.mu.Lock()
	r.bloom = bf
	r.mu.Unlock()
}

// Decide evaluates the pair against the per-address set and, independently,
// the global set. Absent cache keys contribute no decision: the consumer's
// fallback for an expired or unpopulated cache is its own concern.
func (r *Reader) Decide(ctx context.Context, addr, qname string) Decision {
	cn := utils.CanonicalDNSName(qname)
	if !r.mightBlock(cn) {
		return Decision{}
	}
	if d := r.checkSet(ctx, aclcache.AddressKey(addr), cn, "address"); d.Blocked {
		return d
	}
	return r.checkSet(ctx, aclcache.AllUsersKey, cn, "global")
}

// mightBlock probes the prefilter with the name, the match-everything
// sentinel, and every wildcard ancestor. A definite negative means no
// compiled pattern can match, so the cache is not consulted at all. With no
// filter loaded, the cache stays authoritative.
func (r *Reader) mightBlock(cn string) bool {
	r.mu.RLock()
	bf := r.bloom
	r.mu.RUnlock()
	if bf == nil {
		return true
	}
	if bf.TestString(cn) || bf.TestString(domain.AllDomains) {
		return true
	}
	for suffix := cn; suffix != ""; {
		if bf.TestString("*." + suffix) {
			return true
		}
		i := strings.IndexByte(suffix, '.')
		if i < 0 {
			break
		}
		suffix = suffix[i+1:]
	}
	return false
}

// checkSet loads one cached set and tests the name against its patterns.
func (r *Reader) checkSet(ctx context.Context, key, cn, scope string) Decision {
	patterns, ok, err := getSet(ctx, r.cache, key)
	if err != nil || !ok {
		return Decision{}
	}
	for _, pattern := range patterns {
		if patternMatches(pattern, cn) {
			return Decision{Blocked: true, MatchedPattern: pattern, Scope: scope}
		}
	}
	return Decision{}
}

// patternMatches tests one compiled pattern against a canonical name:
// the AllDomains sentinel matches everything, "*.base" matches base and
// its subdomains, anything else matches exactly.
func patternMatches(pattern, cn string) bool {
	if pattern == domain.AllDomains {
		return true
	}
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return utils.IsSubdomainOf(cn, base)
	}
	return cn == pattern
}
