package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haukened/dns-acl/internal/acl/common/utils"
)

// DomainEntryKind defines how a domain entry matches queried names.
//
// exact    - matches the named domain only
// wildcard - matches the named domain and any subdomain
type DomainEntryKind uint8

const (
	// EntryExact matches only the exact domain.
	EntryExact DomainEntryKind = iota
	// EntryWildcard matches the domain and all its subdomains.
	EntryWildcard
)

// String returns a stable string representation of the entry kind.
func (k DomainEntryKind) String() string {
	switch k {
	case EntryExact:
		return "exact"
	case EntryWildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("DomainEntryKind(%d)", k)
	}
}

// DomainEntry is a single domain pattern inside a domain group or a
// specific-domains block payload. Name is canonical (lowercase, no trailing
// dot) and never carries the "*." prefix; the kind carries that instead.
type DomainEntry struct {
	Name string          `json:"name"`
	Kind DomainEntryKind `json:"kind"`
}

// ParseDomainEntry converts an administrator-supplied pattern into a
// DomainEntry. A leading "*." marks a wildcard; anything else is exact.
func ParseDomainEntry(pattern string) (DomainEntry, error) {
	s := strings.TrimSpace(pattern)
	kind := EntryExact
	if strings.HasPrefix(s, "*.") {
		kind = EntryWildcard
		s = strings.TrimPrefix(s, "*.")
	}
	e := DomainEntry{Name: utils.CanonicalDNSName(s), Kind: kind}
	if err := e.Validate(); err != nil {
		return DomainEntry{}, err
	}
	return e, nil
}

// Validate checks the entry for an empty name and overbroad wildcards.
func (e DomainEntry) Validate() error {
	if e.Name == "" {
		return &ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	if strings.ContainsAny(e.Name, " \t*") {
		return &ValidationError{Field: "domain", Reason: fmt.Sprintf("malformed domain %q", e.Name)}
	}
	if e.Kind == EntryWildcard && utils.IsBarePublicSuffix(e.Name) {
		return &ValidationError{
			Field:  "domain",
			Reason: fmt.Sprintf("wildcard *.%s covers an entire public suffix", e.Name),
		}
	}
	return nil
}

// Pattern renders the entry in administrator form: "example.com" for exact,
// "*.example.com" for wildcard. This is also the form stored in the compiled
// cache sets.
func (e DomainEntry) Pattern() string {
	if e.Kind == EntryWildcard {
		return "*." + e.Name
	}
	return e.Name
}

// Matches reports whether the queried name (canonical form) is covered by
// this entry: equality for exact, apex-inclusive subdomain for wildcard.
func (e DomainEntry) Matches(qname string) bool {
	if e.Kind == EntryWildcard {
		return utils.IsSubdomainOf(qname, e.Name)
	}
	return qname == e.Name
}

// MarshalJSON stores entries in the administrator pattern form so documents
// round-trip through the store without a separate kind field.
func (e DomainEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Pattern())
}

// UnmarshalJSON accepts the pattern form produced by MarshalJSON.
func (e *DomainEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDomainEntry(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
