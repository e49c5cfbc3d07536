package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hq/meridian/internal/shared"
)

type mockRepository struct {
	users       map[int64]*User
	assignments map[int64][]Assignment

	listError        error
	assignmentsError error

	listPage    int
	listPerPage int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[int64]*User),
		assignments: make(map[int64][]Assignment),
	}
}

func (m *mockRepository) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	m.listPage = page
	m.listPerPage = perPage
	list := make([]User, 0, len(m.users))
	for _, u := range m.users {
		list = append(list, *u)
	}
	return list, len(m.users), nil
}

func (m *mockRepository) GetUser(ctx context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) ListAssignments(ctx context.Context, userID int64) ([]Assignment, error) {
	if m.assignmentsError != nil {
		return nil, m.assignmentsError
	}
	return m.assignments[userID], nil
}

func TestListNormalizesPagination(t *testing.T) {
	repo := newMockRepository()
	repo.users[1] = &User{ID: 1, Email: "a@meridian.local"}
	repo.users[2] = &User{ID: 2, Email: "b@meridian.local"}
	svc := NewService(repo)

	listing, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listPage)
	assert.Equal(t, 20, repo.listPerPage)
	assert.Equal(t, 2, listing.Pagination.Total)
	assert.Equal(t, 1, listing.Pagination.TotalPages)
	assert.Len(t, listing.Users, 2)
}

func TestListPropagatesRepoError(t *testing.T) {
	repo := newMockRepository()
	repo.listError = errors.New("connection refused")
	svc := NewService(repo)

	_, err := svc.List(context.Background(), 1, 20)
	require.Error(t, err)
}

func TestGetBundlesAssignments(t *testing.T) {
	repo := newMockRepository()
	repo.users[7] = &User{ID: 7, Email: "manager@meridian.local", Name: "Manager"}
	establishment := int64(11)
	repo.assignments[7] = []Assignment{
		{RoleID: 2, RoleName: "branch-staff", Scope: "establishment", ContextID: &establishment},
	}
	svc := NewService(repo)

	detail, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), detail.ID)
	require.Len(t, detail.Assignments, 1)
	assert.Equal(t, "branch-staff", detail.Assignments[0].RoleName)
	require.NotNil(t, detail.Assignments[0].ContextID)
	assert.Equal(t, establishment, *detail.Assignments[0].ContextID)
}

func TestGetUnknownUser(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Get(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetAssignmentFailure(t *testing.T) {
	repo := newMockRepository()
	repo.users[7] = &User{ID: 7, Email: "manager@meridian.local"}
	repo.assignmentsError = errors.New("timeout")
	svc := NewService(repo)

	_, err := svc.Get(context.Background(), 7)
	require.Error(t, err)
}
