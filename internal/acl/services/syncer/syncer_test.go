package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/haukened/dns-acl/internal/acl/common/clock"
	"github.com/haukened/dns-acl/internal/acl/common/log"
	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache"
	"github.com/haukened/dns-acl/internal/acl/repos/aclcache/memory"
)

// MockStore is a testify mock of the Snapshotter interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ActivePolicies() ([]domain.Policy, error) {
	args := m.Called()
	return args.Get(0).([]domain.Policy), args.Error(1)
}

func (m *MockStore) AllAddressGroups() ([]domain.AddressGroup, error) {
	args := m.Called()
	return args.Get(0).([]domain.AddressGroup), args.Error(1)
}

func (m *MockStore) AllDomainGroups() ([]domain.DomainGroup, error) {
	args := m.Called()
	return args.Get(0).([]domain.DomainGroup), args.Error(1)
}

// failingCache always fails the swap.
type failingCache struct{}

func (failingCache) ReplaceNamespace(context.Context, map[string][]byte) error {
	return errors.New("cache unreachable")
}
func (failingCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (failingCache) Keys(context.Context) ([]string, error)           { return nil, nil }
func (failingCache) Close() error                                     { return nil }

// countingRefresher records refresh calls.
type countingRefresher struct {
	calls atomic.Int64
	last  *domain.CompiledACL
}

func (r *countingRefresher) Refresh(compiled *domain.CompiledACL) {
	r.last = compiled
	r.calls.Add(1)
}

func testSnapshot(t *testing.T) *MockStore {
	t.Helper()
	target, err := domain.SingleAddressTarget("10.0.0.5")
	assert.NoError(t, err)
	block, err := domain.DomainsBlock([]domain.DomainEntry{{Name: "ads.example.com", Kind: domain.EntryExact}})
	assert.NoError(t, err)

	store := &MockStore{}
	store.On("ActivePolicies").Return([]domain.Policy{
		{ID: "p1", Name: "one", Type: domain.PolicyUserDomain, Target: target, Block: block, Active: true},
		{ID: "p2", Name: "two", Type: domain.PolicyDomainAll, Target: domain.AllAddressesTarget(), Block: domain.FullInternetBlock(), Active: true},
	}, nil)
	store.On("AllAddressGroups").Return([]domain.AddressGroup{}, nil)
	store.On("AllDomainGroups").Return([]domain.DomainGroup{}, nil)
	return store
}

func newTestSyncer(store Snapshotter, cache aclcache.Client, refresher FilterRefresher) *Syncer {
	return New(Options{
		Store:     store,
		Cache:     cache,
		Refresher: refresher,
		Logger:    log.NewNoopLogger(),
		Clock:     &clock.MockClock{CurrentTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Interval:  time.Minute,
	})
}

func TestSyncer_RebuildNow_WritesAllKeyFamilies(t *testing.T) {
	store := testSnapshot(t)
	cache := memory.New(64, time.Minute)
	refresher := &countingRefresher{}
	s := newTestSyncer(store, cache, refresher)

	meta, err := s.RebuildNow(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, meta.SourcePolicies)
	assert.Equal(t, 2, meta.ExpandedPolicies)
	assert.Equal(t, 1, meta.TrackedAddresses)
	assert.Equal(t, 1, meta.GlobalEntries)

	ctx := context.Background()

	raw, ok, err := cache.Get(ctx, aclcache.AddressKey("10.0.0.5"))
	assert.NoError(t, err)
	assert.True(t, ok, "per-address key missing")
	var patterns []string
	assert.NoError(t, json.Unmarshal(raw, &patterns))
	assert.Equal(t, []string{"ads.example.com"}, patterns)

	raw, ok, err = cache.Get(ctx, aclcache.AllUsersKey)
	assert.NoError(t, err)
	assert.True(t, ok, "all-users key missing")
	assert.NoError(t, json.Unmarshal(raw, &patterns))
	assert.Equal(t, []string{domain.AllDomains}, patterns)

	raw, ok, err = cache.Get(ctx, aclcache.MetaKey)
	assert.NoError(t, err)
	assert.True(t, ok, "meta key missing")
	var storedMeta domain.CompileMeta
	assert.NoError(t, json.Unmarshal(raw, &storedMeta))
	assert.Equal(t, meta.SourcePolicies, storedMeta.SourcePolicies)

	assert.EqualValues(t, 1, refresher.calls.Load())
	assert.NotNil(t, refresher.last)
}

func TestSyncer_RebuildNow_RemovesStaleKeys(t *testing.T) {
	store := testSnapshot(t)
	cache := memory.New(64, time.Minute)
	s := newTestSyncer(store, cache, nil)

	// seed a key that the fresh snapshot will not produce
	err := cache.ReplaceNamespace(context.Background(), map[string][]byte{
		aclcache.AddressKey("192.168.1.99"): []byte(`["old.example"]`),
	})
	assert.NoError(t, err)

	_, err = s.RebuildNow(context.Background())
	assert.NoError(t, err)

	_, ok, _ := cache.Get(context.Background(), aclcache.AddressKey("192.168.1.99"))
	assert.False(t, ok, "stale key should be gone after rebuild")
}

func TestSyncer_RebuildNow_PropagatesStoreError(t *testing.T) {
	store := &MockStore{}
	store.On("ActivePolicies").Return([]domain.Policy(nil), errors.New("db closed"))
	s := newTestSyncer(store, memory.New(4, time.Minute), nil)

	_, err := s.RebuildNow(context.Background())
	assert.Error(t, err)
}

func TestSyncer_RebuildNow_WrapsCacheError(t *testing.T) {
	store := testSnapshot(t)
	s := newTestSyncer(store, failingCache{}, nil)

	_, err := s.RebuildNow(context.Background())
	assert.Error(t, err)
	var se *domain.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestSyncer_Run_SwallowsFailuresAndKeepsTicking(t *testing.T) {
	store := &MockStore{}
	store.On("ActivePolicies").Return([]domain.Policy(nil), errors.New("db closed"))
	s := New(Options{
		Store:    store,
		Cache:    memory.New(4, time.Minute),
		Logger:   log.NewNoopLogger(),
		Clock:    clock.RealClock{},
		Interval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}

	// the immediate run plus several ticks, each failing, none fatal
	assert.GreaterOrEqual(t, len(store.Calls), 3)
}

func TestSyncer_ForceReload_IsAsynchronous(t *testing.T) {
	store := testSnapshot(t)
	cache := memory.New(64, time.Minute)
	refresher := &countingRefresher{}
	s := newTestSyncer(store, cache, refresher)

	s.ForceReload()

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() == 1
	}, time.Second, 10*time.Millisecond, "forced rebuild never completed")
}
