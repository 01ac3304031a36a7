package policystore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/dns-acl/internal/acl/common/clock"
	"github.com/haukened/dns-acl/internal/acl/domain"
)

var (
	bucketPolicies          = []byte("policies")
	bucketPolicyNames       = []byte("policy_names")
	bucketAddressGroups     = []byte("address_groups")
	bucketAddressGroupNames = []byte("address_group_names")
	bucketDomainGroups      = []byte("domain_groups")
	bucketDomainGroupNames  = []byte("domain_group_names")
)

// Store is the bbolt-backed durable store for policies and groups.
// Documents are JSON-encoded under their UUID; a name-index bucket per
// entity kind enforces uniqueness inside the same write transaction.
type Store struct {
	db    *bbolt.DB
	clock clock.Clock
}

// Open opens (or creates) the policy database at path and ensures all
// buckets exist.
func Open(path string, clk clock.Clock) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketPolicies, bucketPolicyNames,
			bucketAddressGroups, bucketAddressGroupNames,
			bucketDomainGroups, bucketDomainGroupNames,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Op: "open", Err: err}
	}
	return &Store{db: db, clock: clk}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// newID returns a fresh document identifier.
func newID() string { return uuid.NewString() }

// checkID rejects syntactically invalid identifiers before any lookup, so
// a malformed id surfaces as a ValidationError rather than a NotFoundError.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &domain.ValidationError{Field: "id", Reason: "malformed identifier"}
	}
	return nil
}

// wrapStorage passes domain taxonomy errors through untouched and wraps
// anything else as a StorageError.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
		ne *domain.NotFoundError
		se *domain.StorageError
	)
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &ne) || errors.As(err, &se) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}

// putDoc JSON-encodes doc under id in bucket b.
func putDoc(b *bbolt.Bucket, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return b.Put([]byte(id), raw)
}

// claimName reserves name → id in the index bucket, returning a
// ConflictError when the name is already held by a different document.
func claimName(idx *bbolt.Bucket, name, id string) error {
	if existing := idx.Get([]byte(name)); existing != nil && string(existing) != id {
		return &domain.ConflictError{Name: name}
	}
	return idx.Put([]byte(name), []byte(id))
}

// page applies skip/limit to a sorted slice and returns the page plus the
// total before paging.
func page[T any](items []T, skip, limit int) ([]T, int) {
	total := len(items)
	if skip < 0 {
		skip = 0
	}
	if skip >= total {
		return []T{}, total
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total
}
