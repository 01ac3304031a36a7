package policystore

import (
	"encoding/json"
	"sort"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/dns-acl/internal/acl/domain"
)

// ListFilter selects which policies a List call returns: "all", "active",
// "inactive", or a specific policy type.
type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterActive   ListFilter = "active"
	FilterInactive ListFilter = "inactive"
)

// matches reports whether p passes the filter.
func (f ListFilter) matches(p domain.Policy) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterActive:
		return p.Active
	case FilterInactive:
		return !p.Active
	default:
		return string(p.Type) == string(f)
	}
}

// PolicyUpdate carries the partial fields of an update; nil means unchanged.
type PolicyUpdate struct {
	Name   *string
	Type   *domain.PolicyType
	Target *domain.Target
	Block  *domain.Block
	Active *bool
}

// CreatePolicy validates and stores a new policy, assigning its identifier
// and timestamps. The name must be globally unique.
func (s *Store) CreatePolicy(p domain.Policy) (domain.Policy, error) {
	if err := p.Validate(); err != nil {
		return domain.Policy{}, err
	}
	now := s.clock.Now().UTC()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := claimName(tx.Bucket(bucketPolicyNames), p.Name, p.ID); err != nil {
			return err
		}
		return putDoc(tx.Bucket(bucketPolicies), p.ID, p)
	})
	if err != nil {
		return domain.Policy{}, wrapStorage("create policy", err)
	}
	return p, nil
}

// GetPolicy loads one policy by id.
func (s *Store) GetPolicy(id string) (domain.Policy, error) {
	if err := checkID(id); err != nil {
		return domain.Policy{}, err
	}
	var p domain.Policy
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketPolicies).Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "policy", ID: id}
		}
		return json.Unmarshal(raw, &p)
	})
	if err != nil {
		return domain.Policy{}, wrapStorage("get policy", err)
	}
	return p, nil
}

// ListPolicies returns a page of policies matching the filter plus the total
// count matching the filter, independent of paging.
func (s *Store) ListPolicies(filter ListFilter, skip, limit int) ([]domain.Policy, int, error) {
	matched, err := s.scanPolicies(func(p domain.Policy) bool { return filter.matches(p) })
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	pg, total := page(matched, skip, limit)
	return pg, total, nil
}

// UpdatePolicy applies a partial update. A name change re-checks uniqueness
// against the new value. UpdatedAt is always refreshed.
func (s *Store) UpdatePolicy(id string, upd PolicyUpdate) (domain.Policy, error) {
	if err := checkID(id); err != nil {
		return domain.Policy{}, err
	}
	var p domain.Policy
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketPolicies)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "policy", ID: id}
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if upd.Name != nil && *upd.Name != p.Name {
			names := tx.Bucket(bucketPolicyNames)
			if err := claimName(names, *upd.Name, id); err != nil {
				return err
			}
			if err := names.Delete([]byte(p.Name)); err != nil {
				return err
			}
			p.Name = *upd.Name
		}
		if upd.Type != nil {
			p.Type = *upd.Type
		}
		if upd.Target != nil {
			p.Target = *upd.Target
		}
		if upd.Block != nil {
			p.Block = *upd.Block
		}
		if upd.Active != nil {
			p.Active = *upd.Active
		}
		if err := p.Validate(); err != nil {
			return err
		}
		p.UpdatedAt = s.clock.Now().UTC()
		return putDoc(docs, id, p)
	})
	if err != nil {
		return domain.Policy{}, wrapStorage("update policy", err)
	}
	return p, nil
}

// TogglePolicyActive flips the active flag and returns the new value.
func (s *Store) TogglePolicyActive(id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	var active bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketPolicies)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "policy", ID: id}
		}
		var p domain.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		p.Active = !p.Active
		p.UpdatedAt = s.clock.Now().UTC()
		active = p.Active
		return putDoc(docs, id, p)
	})
	if err != nil {
		return false, wrapStorage("toggle policy", err)
	}
	return active, nil
}

// DeletePolicy removes a policy unconditionally. The caller is responsible
// for triggering the cache rebuild afterwards.
func (s *Store) DeletePolicy(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketPolicies)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "policy", ID: id}
		}
		var p domain.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPolicyNames).Delete([]byte(p.Name)); err != nil {
			return err
		}
		return docs.Delete([]byte(id))
	})
	return wrapStorage("delete policy", err)
}

// ActivePolicies returns every policy with the active flag set. This is the
// snapshot read the compiler works from.
func (s *Store) ActivePolicies() ([]domain.Policy, error) {
	return s.scanPolicies(func(p domain.Policy) bool { return p.Active })
}

// PoliciesReferencingAddressGroup returns every policy whose target
// references the group, directly or via the multi-group list.
func (s *Store) PoliciesReferencingAddressGroup(groupID string) ([]domain.Policy, error) {
	return s.scanPolicies(func(p domain.Policy) bool {
		return p.ReferencesAddressGroup(groupID)
	})
}

// PoliciesReferencingDomainGroup returns every policy whose block references
// the group, directly or via the multi-group list.
func (s *Store) PoliciesReferencingDomainGroup(groupID string) ([]domain.Policy, error) {
	return s.scanPolicies(func(p domain.Policy) bool {
		return p.ReferencesDomainGroup(groupID)
	})
}

// scanPolicies walks the policies bucket and collects documents passing keep.
func (s *Store) scanPolicies(keep func(domain.Policy) bool) ([]domain.Policy, error) {
	var out []domain.Policy
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPolicies).ForEach(func(_, raw []byte) error {
			var p domain.Policy
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			if keep(p) {
				out = append(out, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapStorage("scan policies", err)
	}
	return out, nil
}
