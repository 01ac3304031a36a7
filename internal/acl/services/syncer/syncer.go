// Package syncer owns the distributed-cache representation of the compiled
// ACL structure: it rebuilds it on a fixed schedule and on demand after
// administrator mutations.
package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/haukened/dns-acl/internal/acl/common/clock"
	"github.com/haukened/dns-acl/internal/acl/common/log"
	"github.com/haukened/dns-acl/internal/acl/common/metrics"
	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache"
	"github.com/haukened/dns-acl/internal/acl/services/compiler"
)

// Syncer compiles the current policy snapshot and swaps it into the cache.
// Any number of rebuilds may run concurrently; compile is pure and
// idempotent, so the last writer to finish wins and concurrent rebuilds
// converge. No lock serializes the swap: the hot path must never block on
// a rebuild.
type Syncer struct {
	store     Snapshotter
	cache     aclcache.Client
	refresher FilterRefresher
	logger    log.Logger
	clock     clock.Clock
	interval  time.Duration
}

// Options configures a Syncer.
type Options struct {
	Store     Snapshotter
	Cache     aclcache.Client
	Refresher FilterRefresher // optional
	Logger    log.Logger
	Clock     clock.Clock
	Interval  time.Duration // scheduled rebuild period
}

// New constructs a Syncer.
func New(opts Options) *Syncer {
	return &Syncer{
		store:     opts.Store,
		cache:     opts.Cache,
		refresher: opts.Refresher,
		logger:    opts.Logger,
		clock:     opts.Clock,
		interval:  opts.Interval,
	}
}

// RebuildNow reads a fresh snapshot, compiles it, and replaces the cache
// contents. It returns the compile metadata on success and propagates
// storage errors to the caller.
func (s *Syncer) RebuildNow(ctx context.Context) (domain.CompileMeta, error) {
	return s.rebuild(ctx, "manual")
}

// Run performs an immediate rebuild and then one per interval until the
// context is cancelled. Individual failures are logged and swallowed so a
// bad cycle never kills the scheduler; the next tick retries.
func (s *Syncer) Run(ctx context.Context) {
	s.runOnce(ctx, "scheduled")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, "scheduled")
		case <-ctx.Done():
			s.logger.Info(nil, "ACL rebuild scheduler stopped")
			return
		}
	}
}

// ForceReload dispatches an asynchronous rebuild after a mutation has been
// durably committed. The mutation's response never waits on it and never
// sees its failure; the scheduled tick provides eventual correction.
func (s *Syncer) ForceReload() {
	go s.runOnce(context.Background(), "forced")
}

// runOnce wraps rebuild with logging and error absorption.
func (s *Syncer) runOnce(ctx context.Context, trigger string) {
	meta, err := s.rebuild(ctx, trigger)
	if err != nil {
		s.logger.Error(map[string]any{
			"trigger": trigger,
			"error":   err,
		}, "ACL cache rebuild failed")
		return
	}
	s.logger.Info(map[string]any{
		"trigger":           trigger,
		"source_policies":   meta.SourcePolicies,
		"expanded_policies": meta.ExpandedPolicies,
		"tracked_addresses": meta.TrackedAddresses,
		"global_entries":    meta.GlobalEntries,
		"duration":          meta.Duration.String(),
	}, "ACL cache rebuilt")
}

func (s *Syncer) rebuild(ctx context.Context, trigger string) (domain.CompileMeta, error) {
	policies, err := s.store.ActivePolicies()
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues(trigger, "failure").Inc()
		return domain.CompileMeta{}, err
	}
	addressGroups, err := s.store.AllAddressGroups()
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues(trigger, "failure").Inc()
		return domain.CompileMeta{}, err
	}
	domainGroups, err := s.store.AllDomainGroups()
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues(trigger, "failure").Inc()
		return domain.CompileMeta{}, err
	}

	compiled := compiler.Compile(policies, addressGroups, domainGroups, s.clock)

	entries, err := encodeEntries(compiled)
	if err != nil {
		metrics.RebuildsTotal.WithLabelValues(trigger, "failure").Inc()
		return domain.CompileMeta{}, err
	}
	if err := s.cache.ReplaceNamespace(ctx, entries); err != nil {
		metrics.RebuildsTotal.WithLabelValues(trigger, "failure").Inc()
		return domain.CompileMeta{}, &domain.StorageError{Op: "cache replace", Err: err}
	}

	if s.refresher != nil {
		s.refresher.Refresh(compiled)
	}

	metrics.RebuildsTotal.WithLabelValues(trigger, "success").Inc()
	metrics.RebuildDuration.Observe(compiled.Meta.Duration.Seconds())
	metrics.SourcePolicies.Set(float64(compiled.Meta.SourcePolicies))
	metrics.ExpandedPolicies.Set(float64(compiled.Meta.ExpandedPolicies))
	metrics.TrackedAddresses.Set(float64(compiled.Meta.TrackedAddresses))
	metrics.GlobalEntries.Set(float64(compiled.Meta.GlobalEntries))

	return compiled.Meta, nil
}

// encodeEntries renders the compiled structure into the three cache key
// families: one set per tracked address, the all-users set, and the
// metadata record. Sets are stored as sorted JSON arrays.
func encodeEntries(compiled *domain.CompiledACL) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(compiled.PerAddress)+2)
	for addr, set := range compiled.PerAddress {
		raw, err := json.Marshal(set.Sorted())
		if err != nil {
			return nil, err
		}
		entries[aclcache.AddressKey(addr)] = raw
	}
	global, err := json.Marshal(compiled.Global.Sorted())
	if err != nil {
		return nil, err
	}
	entries[aclcache.AllUsersKey] = global

	meta, err := json.Marshal(compiled.Meta)
	if err != nil {
		return nil, err
	}
	entries[aclcache.MetaKey] = meta
	return entries, nil
}

var _ Reloader = (*Syncer)(nil)
