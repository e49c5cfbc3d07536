package users

import (
	"context"

	"github.com/meridian-hq/meridian/internal/shared"
)

// RepositoryPort defines persistence operations for the users module.
type RepositoryPort interface {
	ListUsers(ctx context.Context, page, perPage int) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListAssignments(ctx context.Context, userID int64) ([]Assignment, error)
}

// Service exposes read operations over subject accounts.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a new Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// UserListing bundles one page of users with its pagination metadata.
type UserListing struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// List returns a paginated listing.
func (s *Service) List(ctx context.Context, page, perPage int) (*UserListing, error) {
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}
	return &UserListing{Users: users, Pagination: shared.NewPagination(p.Page, p.PerPage, total)}, nil
}

// UserDetail is a user together with their role assignments.
type UserDetail struct {
	User
	Assignments []Assignment `json:"assignments"`
}

// Get returns a user with their role assignments.
func (s *Service) Get(ctx context.Context, id int64) (*UserDetail, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: *user, Assignments: assignments}, nil
}
