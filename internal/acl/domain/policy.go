package domain

import (
	"fmt"
	"strings"
	"time"
)

// PolicyType is an informational classification chosen by the administrator.
// The compiler ignores it; only the target and block variants matter there.
type PolicyType string

const (
	PolicyUserDomain   PolicyType = "user-domain"
	PolicyUserInternet PolicyType = "user-internet"
	PolicyDomainAll    PolicyType = "domain-all"
	PolicyDomainUser   PolicyType = "domain-user"
	PolicyGroupBased   PolicyType = "group-based"
)

// ParsePolicyType converts a string into a PolicyType.
func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyUserDomain:
		return PolicyUserDomain, nil
	case PolicyUserInternet:
		return PolicyUserInternet, nil
	case PolicyDomainAll:
		return PolicyDomainAll, nil
	case PolicyDomainUser:
		return PolicyDomainUser, nil
	case PolicyGroupBased:
		return PolicyGroupBased, nil
	default:
		return "", &ValidationError{Field: "policy_type", Reason: fmt.Sprintf("unsupported policy type %q", s)}
	}
}

// Policy is an administrator-authored access-control rule: which addresses
// it applies to (Target) and what it blocks for them (Block).
type Policy struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      PolicyType `json:"policy_type"`
	Target    Target     `json:"target"`
	Block     Block      `json:"block"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Validate checks required fields. Target and Block are valid by
// construction; only the surrounding document fields need checking.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, err := ParsePolicyType(string(p.Type)); err != nil {
		return err
	}
	return nil
}

// ReferencesAddressGroup reports whether the policy references the given
// address group from its target.
func (p Policy) ReferencesAddressGroup(groupID string) bool {
	return p.Target.ReferencesGroup(groupID)
}

// ReferencesDomainGroup reports whether the policy references the given
// domain group from its block.
func (p Policy) ReferencesDomainGroup(groupID string) bool {
	return p.Block.ReferencesGroup(groupID)
}

// Ref returns the id/name pair used in conflict reporting.
func (p Policy) Ref() PolicyRef {
	return PolicyRef{ID: p.ID, Name: p.Name}
}
