package domain

import (
	"sort"
	"time"
)

// Sentinel markers in the compiled structure.
const (
	// AllAddresses marks an expanded target that applies to every address.
	AllAddresses = "*"
	// AllDomains is the "match everything" pattern produced by a
	// full-internet block.
	AllDomains = "*"
)

// DomainSet is a set of blocked domain patterns in administrator form
// ("ads.example.com", "*.tracker.example", or the AllDomains sentinel).
type DomainSet map[string]struct{}

// NewDomainSet builds a set from the given patterns.
func NewDomainSet(patterns ...string) DomainSet {
	s := make(DomainSet, len(patterns))
	for _, p := range patterns {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts a pattern. Union semantics: later adds only ever grow the set.
func (s DomainSet) Add(pattern string) {
	s[pattern] = struct{}{}
}

// AddAll unions all patterns from other into s.
func (s DomainSet) AddAll(other DomainSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Contains reports set membership.
func (s DomainSet) Contains(pattern string) bool {
	_, ok := s[pattern]
	return ok
}

// Sorted returns the patterns in lexical order, for stable cache writes and
// test comparisons.
func (s DomainSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CompileMeta is the observability record produced by each compile cycle.
type CompileMeta struct {
	SourcePolicies   int           `json:"source_policies"`
	ExpandedPolicies int           `json:"expanded_policies"`
	TrackedAddresses int           `json:"tracked_addresses"`
	GlobalEntries    int           `json:"global_entries"`
	CompiledAt       time.Time     `json:"compiled_at"`
	Duration         time.Duration `json:"duration"`
}

// CompiledACL is the flattened, cache-ready structure the DNS hot path
// consults: one domain set per tracked address, plus one global set applying
// to every address. It is recomputed wholesale on every compile cycle, never
// patched incrementally.
type CompiledACL struct {
	PerAddress map[string]DomainSet
	Global     DomainSet
	Meta       CompileMeta
}

// NewCompiledACL returns an empty structure with initialized containers.
func NewCompiledACL() *CompiledACL {
	return &CompiledACL{
		PerAddress: make(map[string]DomainSet),
		Global:     make(DomainSet),
	}
}

// Addresses returns the tracked addresses in lexical order.
func (c *CompiledACL) Addresses() []string {
	out := make([]string, 0, len(c.PerAddress))
	for a := range c.PerAddress {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
