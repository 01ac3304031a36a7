// Package compiler turns a snapshot of policies and groups into the
// flattened, O(1)-lookup ACL structure consumed by the DNS hot path.
package compiler

import (
	"github.com/haukened/dns-acl/internal/acl/common/clock"
	"github.com/haukened/dns-acl/internal/acl/domain"
)

// Compile produces the flattened ACL structure from a full snapshot of
// active policies and all groups. It is a pure function of its inputs:
// no external state, no ordering dependency beyond set-union monotonicity,
// so re-running it on the same snapshot always yields the same structure.
//
// Inactive policies are skipped entirely. A dangling group reference
// contributes nothing rather than failing, so transient group-deletion
// races degrade gracefully. A policy whose target or block expands empty
// is discarded and does not appear in the expanded count.
func Compile(policies []domain.Policy, addressGroups []domain.AddressGroup, domainGroups []domain.DomainGroup, clk clock.Clock) *domain.CompiledACL {
	start := clk.Now()

	addrsByGroup := make(map[string][]string, len(addressGroups))
	for _, g := range addressGroups {
		addrsByGroup[g.ID] = g.Addresses
	}
	entriesByGroup := make(map[string][]domain.DomainEntry, len(domainGroups))
	for _, g := range domainGroups {
		entriesByGroup[g.ID] = g.Entries
	}

	out := domain.NewCompiledACL()
	sourceCount := 0
	expandedCount := 0

	for _, p := range policies {
		if !p.Active {
			continue
		}
		sourceCount++

		addrs := expandTarget(p.Target, addrsByGroup)
		patterns := expandBlock(p.Block, entriesByGroup)
		if len(addrs) == 0 || len(patterns) == 0 {
			continue
		}
		expandedCount++

		for _, addr := range addrs {
			if addr == domain.AllAddresses {
				for _, pat := range patterns {
					out.Global.Add(pat)
				}
				continue
			}
			set, ok := out.PerAddress[addr]
			if !ok {
				set = make(domain.DomainSet)
				out.PerAddress[addr] = set
			}
			for _, pat := range patterns {
				set.Add(pat)
			}
		}
	}

	end := clk.Now()
	out.Meta = domain.CompileMeta{
		SourcePolicies:   sourceCount,
		ExpandedPolicies: expandedCount,
		TrackedAddresses: len(out.PerAddress),
		GlobalEntries:    len(out.Global),
		CompiledAt:       end.UTC(),
		Duration:         end.Sub(start),
	}
	return out
}

// expandTarget resolves a target into its concrete address list. Dangling
// group references expand to nothing.
func expandTarget(t domain.Target, addrsByGroup map[string][]string) []string {
	switch t.Kind() {
	case domain.TargetAll:
		return []string{domain.AllAddresses}
	case domain.TargetSingle:
		return []string{t.Address()}
	case domain.TargetMultiple:
		return t.Addresses()
	case domain.TargetGroup:
		return addrsByGroup[t.GroupID()]
	case domain.TargetGroups:
		var addrs []string
		for _, id := range t.GroupIDs() {
			addrs = append(addrs, addrsByGroup[id]...)
		}
		return addrs
	default:
		return nil
	}
}

// expandBlock resolves a block into its concrete pattern list, mirroring
// expandTarget.
func expandBlock(b domain.Block, entriesByGroup map[string][]domain.DomainEntry) []string {
	switch b.Kind() {
	case domain.BlockFullInternet:
		return []string{domain.AllDomains}
	case domain.BlockDomains:
		return patterns(b.Entries())
	case domain.BlockGroup:
		return patterns(entriesByGroup[b.GroupID()])
	case domain.BlockGroups:
		var out []string
		for _, id := range b.GroupIDs() {
			out = append(out, patterns(entriesByGroup[id])...)
		}
		return out
	default:
		return nil
	}
}

func patterns(entries []domain.DomainEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Pattern())
	}
	return out
}
