package utils

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalDNSName lowercases a domain name and strips whitespace and any
// trailing dots, so the same name always produces the same cache key.
func CanonicalDNSName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// IsSubdomainOf reports whether name sits at or below base.
// Both arguments are expected in canonical form.
// "example.com" and "a.b.example.com" are both under "example.com";
// "notexample.com" is not.
func IsSubdomainOf(name, base string) bool {
	if base == "" {
		return false
	}
	if name == base {
		return true
	}
	return strings.HasSuffix(name, "."+base)
}

// IsBarePublicSuffix reports whether name is exactly a public suffix
// (e.g. "com", "co.uk"). A wildcard anchored at a bare public suffix would
// match every registrable domain under it, so group validation rejects those.
func IsBarePublicSuffix(name string) bool {
	name = CanonicalDNSName(name)
	if name == "" {
		return false
	}
	suffix, _ := publicsuffix.PublicSuffix(name)
	return suffix == name
}
