package policies

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/haukened/dns-acl/internal/acl/domain"
	"github.com/haukened/dns-acl/internal/acl/repos/policystore"
)

// MockPolicyStore is a testify mock of the PolicyStore interface.
type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) CreatePolicy(p domain.Policy) (domain.Policy, error) {
	args := m.Called(p)
	return args.Get(0).(domain.Policy), args.Error(1)
}

func (m *MockPolicyStore) GetPolicy(id string) (domain.Policy, error) {
	args := m.Called(id)
	return args.Get(0).(domain.Policy), args.Error(1)
}

func (m *MockPolicyStore) ListPolicies(filter policystore.ListFilter, skip, limit int) ([]domain.Policy, int, error) {
	args := m.Called(filter, skip, limit)
	return args.Get(0).([]domain.Policy), args.Int(1), args.Error(2)
}

func (m *MockPolicyStore) UpdatePolicy(id string, upd policystore.PolicyUpdate) (domain.Policy, error) {
	args := m.Called(id, upd)
	return args.Get(0).(domain.Policy), args.Error(1)
}

func (m *MockPolicyStore) TogglePolicyActive(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPolicyStore) DeletePolicy(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockReloader records rebuild triggers.
type MockReloader struct {
	mock.Mock
}

func (m *MockReloader) ForceReload() {
	m.Called()
}

func validCreateRequest() CreatePolicyRequest {
	return CreatePolicyRequest{
		Name:       "block-ads",
		PolicyType: "user-domain",
		TargetType: "single_address",
		Address:    "10.0.0.5",
		BlockType:  "specific_domains",
		Domains:    []string{"ads.example.com"},
		Active:     true,
	}
}

func TestPolicyService_Create_TriggersReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	store.On("CreatePolicy", mock.AnythingOfType("domain.Policy")).
		Return(domain.Policy{ID: "p1", Name: "block-ads"}, nil)
	reloader.On("ForceReload").Return()

	created, err := svc.Create(validCreateRequest())
	assert.NoError(t, err)
	assert.Equal(t, "p1", created.ID)

	store.AssertExpectations(t)
	reloader.AssertNumberOfCalls(t, "ForceReload", 1)

	// the assembled variants match the declared types
	stored := store.Calls[0].Arguments.Get(0).(domain.Policy)
	assert.Equal(t, domain.TargetSingle, stored.Target.Kind())
	assert.Equal(t, "10.0.0.5", stored.Target.Address())
	assert.Equal(t, domain.BlockDomains, stored.Block.Kind())
}

func TestPolicyService_Create_ValidationFailureSkipsStoreAndReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	req := validCreateRequest()
	req.Name = ""

	_, err := svc.Create(req)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	store.AssertNotCalled(t, "CreatePolicy", mock.Anything)
	reloader.AssertNotCalled(t, "ForceReload")
}

func TestPolicyService_Create_MismatchedPayloadRejected(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	// declared single_address but no address supplied
	req := validCreateRequest()
	req.Address = ""

	_, err := svc.Create(req)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
	reloader.AssertNotCalled(t, "ForceReload")
}

func TestPolicyService_Create_StoreConflictSkipsReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	store.On("CreatePolicy", mock.AnythingOfType("domain.Policy")).
		Return(domain.Policy{}, &domain.ConflictError{Name: "block-ads"})

	_, err := svc.Create(validCreateRequest())
	var ce *domain.ConflictError
	assert.ErrorAs(t, err, &ce)
	reloader.AssertNotCalled(t, "ForceReload")
}

func TestPolicyService_Update_TriggersReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	name := "renamed"
	store.On("UpdatePolicy", "p1", mock.AnythingOfType("policystore.PolicyUpdate")).
		Return(domain.Policy{ID: "p1", Name: name}, nil)
	reloader.On("ForceReload").Return()

	updated, err := svc.Update("p1", UpdatePolicyRequest{Name: &name})
	assert.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	reloader.AssertNumberOfCalls(t, "ForceReload", 1)
}

func TestPolicyService_Update_ReplacesTargetVariant(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	store.On("UpdatePolicy", "p1", mock.MatchedBy(func(upd policystore.PolicyUpdate) bool {
		return upd.Target != nil && upd.Target.Kind() == domain.TargetAll
	})).Return(domain.Policy{ID: "p1"}, nil)
	reloader.On("ForceReload").Return()

	_, err := svc.Update("p1", UpdatePolicyRequest{
		Target: &CreateTargetRequest{TargetType: "all"},
	})
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPolicyService_ToggleActive_TriggersReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	store.On("TogglePolicyActive", "p1").Return(false, nil)
	reloader.On("ForceReload").Return()

	active, err := svc.ToggleActive("p1")
	assert.NoError(t, err)
	assert.False(t, active)
	reloader.AssertNumberOfCalls(t, "ForceReload", 1)
}

func TestPolicyService_ToggleActive_NotFoundSkipsReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	store.On("TogglePolicyActive", "missing").Return(false, &domain.NotFoundError{Kind: "policy", ID: "missing"})

	_, err := svc.ToggleActive("missing")
	var ne *domain.NotFoundError
	assert.ErrorAs(t, err, &ne)
	reloader.AssertNotCalled(t, "ForceReload")
}

func TestPolicyService_Delete_TriggersReload(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	store.On("DeletePolicy", "p1").Return(nil)
	reloader.On("ForceReload").Return()

	assert.NoError(t, svc.Delete("p1"))
	reloader.AssertNumberOfCalls(t, "ForceReload", 1)
}

func TestPolicyService_ForceReloadACLPolicies(t *testing.T) {
	store := &MockPolicyStore{}
	reloader := &MockReloader{}
	svc := NewPolicyService(store, reloader)

	reloader.On("ForceReload").Return()
	svc.ForceReloadACLPolicies()
	reloader.AssertNumberOfCalls(t, "ForceReload", 1)
}

func TestPolicyService_List_PassesFilterThrough(t *testing.T) {
	store := &MockPolicyStore{}
	svc := NewPolicyService(store, &MockReloader{})

	store.On("ListPolicies", policystore.FilterActive, 10, 5).
		Return([]domain.Policy{}, 42, nil)

	_, total, err := svc.List("active", 10, 5)
	assert.NoError(t, err)
	assert.Equal(t, 42, total)
	store.AssertExpectations(t)
}

func TestPolicyService_Create_UnknownPolicyType(t *testing.T) {
	store := &MockPolicyStore{}
	svc := NewPolicyService(store, &MockReloader{})

	req := validCreateRequest()
	req.PolicyType = "bogus"

	_, err := svc.Create(req)
	assert.Error(t, err)
	assert.True(t, errors.As(err, new(*domain.ValidationError)))
}
