package policies

import (
	"github.com/go-playground/validator/v10"

	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/policystore"
)

// AddressGroupService exposes the address-group CRUD operations. Only a
// successful delete changes what the compiler can see, so only delete
// dispatches a cache rebuild.
type AddressGroupService struct {
	store    AddressGroupStore
	reloader Reloader
	validate *validator.Validate
}

// NewAddressGroupService constructs an AddressGroupService.
func NewAddressGroupService(store AddressGroupStore, reloader Reloader) *AddressGroupService {
	return &AddressGroupService{
		store:    store,
		reloader: reloader,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create validates the request and stores a new address group.
func (s *AddressGroupService) Create(req CreateAddressGroupRequest) (domain.AddressGroup, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.AddressGroup{}, &domain.ValidationError{Reason: err.Error()}
	}
	return s.store.CreateAddressGroup(domain.AddressGroup{
		Name:        req.Name,
		Description: req.Description,
		Addresses:   req.Addresses,
	})
}

// Get loads one address group by id.
func (s *AddressGroupService) Get(id string) (domain.AddressGroup, error) {
	return s.store.GetAddressGroup(id)
}

// List returns a page of address groups plus the total count.
func (s *AddressGroupService) List(skip, limit int) ([]domain.AddressGroup, int, error) {
	return s.store.ListAddressGroups(skip, limit)
}

// Update applies a partial update.
func (s *AddressGroupService) Update(id string, upd policystore.AddressGroupUpdate) (domain.AddressGroup, error) {
	return s.store.UpdateAddressGroup(id, upd)
}

// Delete removes an address group. A group still referenced by any policy
// is rejected with a ConflictError carrying the referencing policies; a
// successful delete dispatches a cache rebuild.
func (s *AddressGroupService) Delete(id string) error {
	if err := s.store.DeleteAddressGroup(id); err != nil {
		return err
	}
	s.reloader.ForceReload()
	return nil
}

// DomainGroupService mirrors AddressGroupService for domain groups.
type DomainGroupService struct {
	store    DomainGroupStore
	reloader Reloader
	validate *validator.Validate
}

// NewDomainGroupService constructs a DomainGroupService.
func NewDomainGroupService(store DomainGroupStore, reloader Reloader) *DomainGroupService {
	return &DomainGroupService{
		store:    store,
		reloader: reloader,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create validates the request, parses the domain patterns, and stores a
// new domain group.
func (s *DomainGroupService) Create(req CreateDomainGroupRequest) (domain.DomainGroup, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.DomainGroup{}, &domain.ValidationError{Reason: err.Error()}
	}
	entries, err := parseEntries(req.Domains)
	if err != nil {
		return domain.DomainGroup{}, err
	}
	return s.store.CreateDomainGroup(domain.DomainGroup{
		Name:        req.Name,
		Description: req.Description,
		Entries:     entries,
	})
}

// Get loads one domain group by id.
func (s *DomainGroupService) Get(id string) (domain.DomainGroup, error) {
	return s.store.GetDomainGroup(id)
}

// List returns a page of domain groups plus the total count.
func (s *DomainGroupService) List(skip, limit int) ([]domain.DomainGroup, int, error) {
	return s.store.ListDomainGroups(skip, limit)
}

// Update applies a partial update.
func (s *DomainGroupService) Update(id string, upd policystore.DomainGroupUpdate) (domain.DomainGroup, error) {
	return s.store.UpdateDomainGroup(id, upd)
}

// Delete removes a domain group, with the same referential-integrity and
// rebuild behavior as address groups.
func (s *DomainGroupService) Delete(id string) error {
	if err := s.store.DeleteDomainGroup(id); err != nil {
		return err
	}
	s.reloader.ForceReload()
	return nil
}
