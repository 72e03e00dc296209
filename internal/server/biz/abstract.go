package biz

import (
	"context"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/store"
)

type AbstractService struct {
	store *store.Store
}

// requireSession returns the acting session or ErrUnauthenticated.
func (s *AbstractService) requireSession(ctx context.Context) (*contexts.Session, error) {
	session, ok := contexts.GetSession(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	return session, nil
}

// requireDepartment returns the active department or ErrNoDepartment.
func (s *AbstractService) requireDepartment(ctx context.Context) (*contexts.Department, error) {
	dept, ok := contexts.GetDepartment(ctx)
	if !ok {
		return nil, ErrNoDepartment
	}

	return dept, nil
}
