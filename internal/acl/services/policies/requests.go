package policies

import (
	"github.com/haukened/dns-acl/internal/acl/domain"
)

// CreatePolicyRequest is the API-facing payload for creating a policy.
// TargetType and BlockType select the variant; only the matching payload
// field may be set — the variant constructors reject anything else.
type CreatePolicyRequest struct {
	Name       string `validate:"required"`
	PolicyType string `validate:"required"`

	TargetType      string `validate:"required,oneof=all single_address multiple_addresses address_group multiple_address_groups"`
	Address         string
	Addresses       []string
	AddressGroupID  string
	AddressGroupIDs []string

	BlockType      string `validate:"required,oneof=full_internet specific_domains domain_group multiple_domain_groups"`
	Domains        []string
	DomainGroupID  string
	DomainGroupIDs []string

	Active bool
}

// UpdatePolicyRequest carries partial policy fields; nil means unchanged.
// Target and block replacements arrive as complete variant payloads.
type UpdatePolicyRequest struct {
	Name       *string
	PolicyType *string
	Target     *CreateTargetRequest
	Block      *CreateBlockRequest
	Active     *bool
}

// CreateTargetRequest is the variant payload for a target replacement.
type CreateTargetRequest struct {
	TargetType string `validate:"required,oneof=all single_address multiple_addresses address_group multiple_address_groups"`
	Address    string
	Addresses  []string
	GroupID    string
	GroupIDs   []string
}

// CreateBlockRequest is the variant payload for a block replacement.
type CreateBlockRequest struct {
	BlockType string `validate:"required,oneof=full_internet specific_domains domain_group multiple_domain_groups"`
	Domains   []string
	GroupID   string
	GroupIDs  []string
}

// CreateAddressGroupRequest is the API-facing payload for creating an
// address group.
type CreateAddressGroupRequest struct {
	Name        string   `validate:"required"`
	Description string
	Addresses   []string `validate:"dive,required"`
}

// CreateDomainGroupRequest is the API-facing payload for creating a domain
// group. Domains are administrator patterns ("ads.example.com" or
// "*.tracker.example").
type CreateDomainGroupRequest struct {
	Name        string   `validate:"required"`
	Description string
	Domains     []string `validate:"dive,required"`
}

// buildTarget assembles the target variant from its declared type and
// payload. A payload that does not match the declared type fails inside the
// constructor with a ValidationError.
func buildTarget(targetType, address string, addresses []string, groupID string, groupIDs []string) (domain.Target, error) {
	switch targetType {
	case "all":
		return domain.AllAddressesTarget(), nil
	case "single_address":
		return domain.SingleAddressTarget(address)
	case "multiple_addresses":
		return domain.MultipleAddressesTarget(addresses)
	case "address_group":
		return domain.AddressGroupTarget(groupID)
	case "multiple_address_groups":
		return domain.AddressGroupsTarget(groupIDs)
	default:
		return domain.Target{}, &domain.ValidationError{Field: "target_type", Reason: "unsupported target type"}
	}
}

// buildBlock assembles the block variant, mirroring buildTarget.
func buildBlock(blockType string, domains []string, groupID string, groupIDs []string) (domain.Block, error) {
	switch blockType {
	case "full_internet":
		return domain.FullInternetBlock(), nil
	case "specific_domains":
		entries, err := parseEntries(domains)
		if err != nil {
			return domain.Block{}, err
		}
		return domain.DomainsBlock(entries)
	case "domain_group":
		return domain.DomainGroupBlock(groupID)
	case "multiple_domain_groups":
		return domain.DomainGroupsBlock(groupIDs)
	default:
		return domain.Block{}, &domain.ValidationError{Field: "block_type", Reason: "unsupported block type"}
	}
}

func parseEntries(patterns []string) ([]domain.DomainEntry, error) {
	entries := make([]domain.DomainEntry, 0, len(patterns))
	for _, p := range patterns {
		e, err := domain.ParseDomainEntry(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
