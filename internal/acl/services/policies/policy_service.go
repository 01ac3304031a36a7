// Package policies is the service layer over the policy store. It validates
// API payloads, assembles the typed variants, and closes the gap between an
// administrator edit and enforcement: every state-changing policy operation
// dispatches an asynchronous cache rebuild after its durable commit.
package policies

import (
	"github.com/go-playground/validator/v10"

	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/policystore"
)

// PolicyService exposes the access-control-policy CRUD operations consumed
// by the HTTP API layer.
type PolicyService struct {
	store    PolicyStore
	reloader Reloader
	validate *validator.Validate
}

// NewPolicyService constructs a PolicyService.
func NewPolicyService(store PolicyStore, reloader Reloader) *PolicyService {
	return &PolicyService{
		store:    store,
		reloader: reloader,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create validates the request, stores the policy, and dispatches a cache
// rebuild. The rebuild is fire-and-forget: the policy is already durably
// committed, so a rebuild failure never fails the create.
func (s *PolicyService) Create(req CreatePolicyRequest) (domain.Policy, error) {
	if err := s.validate.Struct(&req); err != nil {
		return domain.Policy{}, &domain.ValidationError{Reason: err.Error()}
	}
	ptype, err := domain.ParsePolicyType(req.PolicyType)
	if err != nil {
		return domain.Policy{}, err
	}
	target, err := buildTarget(req.TargetType, req.Address, req.Addresses, req.AddressGroupID, req.AddressGroupIDs)
	if err != nil {
		return domain.Policy{}, err
	}
	block, err := buildBlock(req.BlockType, req.Domains, req.DomainGroupID, req.DomainGroupIDs)
	if err != nil {
		return domain.Policy{}, err
	}

	created, err := s.store.CreatePolicy(domain.Policy{
		Name:   req.Name,
		Type:   ptype,
		Target: target,
		Block:  block,
		Active: req.Active,
	})
	if err != nil {
		return domain.Policy{}, err
	}
	s.reloader.ForceReload()
	return created, nil
}

// Get loads one policy by id.
func (s *PolicyService) Get(id string) (domain.Policy, error) {
	return s.store.GetPolicy(id)
}

// List returns a page of policies matching the filter plus the total count
// matching the filter, independent of paging.
func (s *PolicyService) List(filter string, skip, limit int) ([]domain.Policy, int, error) {
	return s.store.ListPolicies(policystore.ListFilter(filter), skip, limit)
}

// Update applies a partial update and dispatches a cache rebuild.
func (s *PolicyService) Update(id string, req UpdatePolicyRequest) (domain.Policy, error) {
	upd := policystore.PolicyUpdate{Name: req.Name, Active: req.Active}
	if req.PolicyType != nil {
		ptype, err := domain.ParsePolicyType(*req.PolicyType)
		if err != nil {
			return domain.Policy{}, err
		}
		upd.Type = &ptype
	}
	if req.Target != nil {
		if err := s.validate.Struct(req.Target); err != nil {
			return domain.Policy{}, &domain.ValidationError{Reason: err.Error()}
		}
		target, err := buildTarget(req.Target.TargetType, req.Target.Address, req.Target.Addresses, req.Target.GroupID, req.Target.GroupIDs)
		if err != nil {
			return domain.Policy{}, err
		}
		upd.Target = &target
	}
	if req.Block != nil {
		if err := s.validate.Struct(req.Block); err != nil {
			return domain.Policy{}, &domain.ValidationError{Reason: err.Error()}
		}
		block, err := buildBlock(req.Block.BlockType, req.Block.Domains, req.Block.GroupID, req.Block.GroupIDs)
		if err != nil {
			return domain.Policy{}, err
		}
		upd.Block = &block
	}

	updated, err := s.store.UpdatePolicy(id, upd)
	if err != nil {
		return domain.Policy{}, err
	}
	s.reloader.ForceReload()
	return updated, nil
}

// ToggleActive flips the active flag, dispatches a cache rebuild, and
// returns the new value.
func (s *PolicyService) ToggleActive(id string) (bool, error) {
	active, err := s.store.TogglePolicyActive(id)
	if err != nil {
		return false, err
	}
	s.reloader.ForceReload()
	return active, nil
}

// Delete removes a policy unconditionally and dispatches a cache rebuild.
func (s *PolicyService) Delete(id string) error {
	if err := s.store.DeletePolicy(id); err != nil {
		return err
	}
	s.reloader.ForceReload()
	return nil
}

// ForceReloadACLPolicies triggers an out-of-band rebuild, exposed for
// operational/manual use.
func (s *PolicyService) ForceReloadACLPolicies() {
	s.reloader.ForceReload()
}
