package policies

import (
	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/policystore"
)

// PolicyStore is the durable-store surface the policy service needs.
type PolicyStore interface {
	CreatePolicy(p domain.Policy) (domain.Policy, error)
	GetPolicy(id string) (domain.Policy, error)
	ListPolicies(filter policystore.ListFilter, skip, limit int) ([]domain.Policy, int, error)
	UpdatePolicy(id string, upd policystore.PolicyUpdate) (domain.Policy, error)
	TogglePolicyActive(id string) (bool, error)
	DeletePolicy(id string) error
}

// AddressGroupStore is the durable-store surface the address-group service
// needs.
type AddressGroupStore interface {
	CreateAddressGroup(g domain.AddressGroup) (domain.AddressGroup, error)
	GetAddressGroup(id string) (domain.AddressGroup, error)
	ListAddressGroups(skip, limit int) ([]domain.AddressGroup, int, error)
	UpdateAddressGroup(id string, upd policystore.AddressGroupUpdate) (domain.AddressGroup, error)
	DeleteAddressGroup(id string) error
}

// DomainGroupStore is the durable-store surface the domain-group service
// needs.
type DomainGroupStore interface {
	CreateDomainGroup(g domain.DomainGroup) (domain.DomainGroup, error)
	GetDomainGroup(id string) (domain.DomainGroup, error)
	ListDomainGroups(skip, limit int) ([]domain.DomainGroup, int, error)
	UpdateDomainGroup(id string, upd policystore.DomainGroupUpdate) (domain.DomainGroup, error)
	DeleteDomainGroup(id string) error
}

// Reloader triggers an asynchronous cache rebuild after a durable commit.
type Reloader interface {
	ForceReload()
}
