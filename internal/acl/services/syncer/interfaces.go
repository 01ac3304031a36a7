package syncer

import "github.com/haukened/dns-acl/internal/acl/domain"

// Snapshotter provides the fresh policy-store reads each rebuild works
// from. The store is the sole source of truth; the synchronizer never
// caches these reads between cycles.
type Snapshotter interface {
	ActivePolicies() ([]domain.Policy, error)
	AllAddressGroups() ([]domain.AddressGroup, error)
	AllDomainGroups() ([]domain.DomainGroup, error)
}

// FilterRefresher is notified with the freshly compiled structure after
// every successful cache swap, so hot-path prefilters can rebuild.
type FilterRefresher interface {
	Refresh(compiled *domain.CompiledACL)
}

// Reloader is the trigger surface consumed by the mutation hooks in the
// policy services.
type Reloader interface {
	ForceReload()
}
