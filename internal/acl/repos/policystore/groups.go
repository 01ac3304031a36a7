package policystore

import (
	"encoding/json"
	"sort"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/dns-acl/internal/acl/domain"
)

// AddressGroupUpdate carries partial address-group fields; nil means
// unchanged.
type AddressGroupUpdate struct {
	Name        *string
	Description *string
	Addresses   *[]string
}

// DomainGroupUpdate carries partial domain-group fields; nil means
// unchanged.
type DomainGroupUpdate struct {
	Name        *string
	Description *string
	Entries     *[]domain.DomainEntry
}

// CreateAddressGroup validates and stores a new address group.
func (s *Store) CreateAddressGroup(g domain.AddressGroup) (domain.AddressGroup, error) {
	if err := g.Validate(); err != nil {
		return domain.AddressGroup{}, err
	}
	now := s.clock.Now().UTC()
	g.ID = newID()
	g.CreatedAt = now
	g.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := claimName(tx.Bucket(bucketAddressGroupNames), g.Name, g.ID); err != nil {
			return err
		}
		return putDoc(tx.Bucket(bucketAddressGroups), g.ID, g)
	})
	if err != nil {
		return domain.AddressGroup{}, wrapStorage("create address group", err)
	}
	return g, nil
}

// GetAddressGroup loads one address group by id.
func (s *Store) GetAddressGroup(id string) (domain.AddressGroup, error) {
	if err := checkID(id); err != nil {
		return domain.AddressGroup{}, err
	}
	var g domain.AddressGroup
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketAddressGroups).Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "address group", ID: id}
		}
		return json.Unmarshal(raw, &g)
	})
	if err != nil {
		return domain.AddressGroup{}, wrapStorage("get address group", err)
	}
	return g, nil
}

// ListAddressGroups returns a page of address groups plus the total count.
func (s *Store) ListAddressGroups(skip, limit int) ([]domain.AddressGroup, int, error) {
	all, err := s.AllAddressGroups()
	if err != nil {
		return nil, 0, err
	}
	pg, total := page(all, skip, limit)
	return pg, total, nil
}

// UpdateAddressGroup applies a partial update, re-checking name uniqueness
// on a name change.
func (s *Store) UpdateAddressGroup(id string, upd AddressGroupUpdate) (domain.AddressGroup, error) {
	if err := checkID(id); err != nil {
		return domain.AddressGroup{}, err
	}
	var g domain.AddressGroup
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketAddressGroups)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "address group", ID: id}
		}
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		if upd.Name != nil && *upd.Name != g.Name {
			names := tx.Bucket(bucketAddressGroupNames)
			if err := claimName(names, *upd.Name, id); err != nil {
				return err
			}
			if err := names.Delete([]byte(g.Name)); err != nil {
				return err
			}
			g.Name = *upd.Name
		}
		if upd.Description != nil {
			g.Description = *upd.Description
		}
		if upd.Addresses != nil {
			g.Addresses = *upd.Addresses
		}
		if err := g.Validate(); err != nil {
			return err
		}
		g.UpdatedAt = s.clock.Now().UTC()
		return putDoc(docs, id, g)
	})
	if err != nil {
		return domain.AddressGroup{}, wrapStorage("update address group", err)
	}
	return g, nil
}

// DeleteAddressGroup removes an address group unless any policy still
// references it. The referential check and the delete run in the same write
// transaction, so a rejected delete never partially mutates the store.
func (s *Store) DeleteAddressGroup(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketAddressGroups)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "address group", ID: id}
		}
		var g domain.AddressGroup
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		refs, err := referencingPolicies(tx, func(p domain.Policy) bool {
			return p.ReferencesAddressGroup(id)
		})
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return &domain.ConflictError{Name: g.Name, References: refs}
		}
		if err := tx.Bucket(bucketAddressGroupNames).Delete([]byte(g.Name)); err != nil {
			return err
		}
		return docs.Delete([]byte(id))
	})
	return wrapStorage("delete address group", err)
}

// AllAddressGroups returns every address group, ordered by creation time.
func (s *Store) AllAddressGroups() ([]domain.AddressGroup, error) {
	var out []domain.AddressGroup
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAddressGroups).ForEach(func(_, raw []byte) error {
			var g domain.AddressGroup
			if err := json.Unmarshal(raw, &g); err != nil {
				return err
			}
			out = append(out, g)
			return nil
		})
	})
	if err != nil {
		return nil, wrapStorage("scan address groups", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CreateDomainGroup validates and stores a new domain group.
func (s *Store) CreateDomainGroup(g domain.DomainGroup) (domain.DomainGroup, error) {
	if err := g.Validate(); err != nil {
		return domain.DomainGroup{}, err
	}
	now := s.clock.Now().UTC()
	g.ID = newID()
	g.CreatedAt = now
	g.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := claimName(tx.Bucket(bucketDomainGroupNames), g.Name, g.ID); err != nil {
			return err
		}
		return putDoc(tx.Bucket(bucketDomainGroups), g.ID, g)
	})
	if err != nil {
		return domain.DomainGroup{}, wrapStorage("create domain group", err)
	}
	return g, nil
}

// GetDomainGroup loads one domain group by id.
func (s *Store) GetDomainGroup(id string) (domain.DomainGroup, error) {
	if err := checkID(id); err != nil {
		return domain.DomainGroup{}, err
	}
	var g domain.DomainGroup
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDomainGroups).Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "domain group", ID: id}
		}
		return json.Unmarshal(raw, &g)
	})
	if err != nil {
		return domain.DomainGroup{}, wrapStorage("get domain group", err)
	}
	return g, nil
}

// ListDomainGroups returns a page of domain groups plus the total count.
func (s *Store) ListDomainGroups(skip, limit int) ([]domain.DomainGroup, int, error) {
	all, err := s.AllDomainGroups()
	if err != nil {
		return nil, 0, err
	}
	pg, total := page(all, skip, limit)
	return pg, total, nil
}

// UpdateDomainGroup applies a partial update, re-checking name uniqueness
// on a name change.
func (s *Store) UpdateDomainGroup(id string, upd DomainGroupUpdate) (domain.DomainGroup, error) {
	if err := checkID(id); err != nil {
		return domain.DomainGroup{}, err
	}
	var g domain.DomainGroup
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDomainGroups)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "domain group", ID: id}
		}
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		if upd.Name != nil && *upd.Name != g.Name {
			names := tx.Bucket(bucketDomainGroupNames)
			if err := claimName(names, *upd.Name, id); err != nil {
				return err
			}
			if err := names.Delete([]byte(g.Name)); err != nil {
				return err
			}
			g.Name = *upd.Name
		}
		if upd.Description != nil {
			g.Description = *upd.Description
		}
		if upd.Entries != nil {
			g.Entries = *upd.Entries
		}
		if err := g.Validate(); err != nil {
			return err
		}
		g.UpdatedAt = s.clock.Now().UTC()
		return putDoc(docs, id, g)
	})
	if err != nil {
		return domain.DomainGroup{}, wrapStorage("update domain group", err)
	}
	return g, nil
}

// DeleteDomainGroup removes a domain group unless any policy still
// references it from its block side.
func (s *Store) DeleteDomainGroup(id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDomainGroups)
		raw := docs.Get([]byte(id))
		if raw == nil {
			return &domain.NotFoundError{Kind: "domain group", ID: id}
		}
		var g domain.DomainGroup
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		refs, err := referencingPolicies(tx, func(p domain.Policy) bool {
			return p.ReferencesDomainGroup(id)
		})
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return &domain.ConflictError{Name: g.Name, References: refs}
		}
		if err := tx.Bucket(bucketDomainGroupNames).Delete([]byte(g.Name)); err != nil {
			return err
		}
		return docs.Delete([]byte(id))
	})
	return wrapStorage("delete domain group", err)
}

// AllDomainGroups returns every domain group, ordered by creation time.
func (s *Store) AllDomainGroups() ([]domain.DomainGroup, error) {
	var out []domain.DomainGroup
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDomainGroups).ForEach(func(_, raw []byte) error {
			var g domain.DomainGroup
			if err := json.Unmarshal(raw, &g); err != nil {
				return err
			}
			out = append(out, g)
			return nil
		})
	})
	if err != nil {
		return nil, wrapStorage("scan domain groups", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// referencingPolicies collects id/name refs for policies passing keep,
// within an open transaction.
func referencingPolicies(tx *bbolt.Tx, keep func(domain.Policy) bool) ([]domain.PolicyRef, error) {
	var refs []domain.PolicyRef
	err := tx.Bucket(bucketPolicies).ForEach(func(_, raw []byte) error {
		var p domain.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if keep(p) {
			refs = append(refs, p.Ref())
		}
		return nil
	})
	return refs, err
}
