package biz

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/permissions"
	"github.com/loopdocs/docdesk/internal/store"
)

// UserView is a user as presented to the console: string identifier and the
// full permission set as seen from the active department.
type UserView struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FullName    string   `json:"fullName"`
	Active      bool     `json:"active"`
	Permissions []string `json:"permissions"`
}

// ConvertUserToView converts a stored user into its console presentation.
func ConvertUserToView(user *store.User, permissions []string) UserView {
	return UserView{
		ID:          strconv.FormatInt(user.ID, 10),
		Email:       user.Email,
		FullName:    user.FullName,
		Active:      user.Active,
		Permissions: permissions,
	}
}

type UserServiceParams struct {
	fx.In

	Store *store.Store
	Auth  *AuthService
}

func NewUserService(params UserServiceParams) *UserService {
	return &UserService{
		AbstractService: &AbstractService{store: params.Store},
		auth:            params.Auth,
	}
}

type UserService struct {
	*AbstractService

	auth *AuthService
}

// List returns the members of the active department together with their
// permission sets.
func (s *UserService) List(ctx context.Context) ([]UserView, error) {
	if _, err := s.requireSession(ctx); err != nil {
		return nil, err
	}

	dept, err := s.requireDepartment(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx, dept.Acronym)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	views := make([]UserView, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i, user := range users {
		i, user := i, user
		g.Go(func() error {
			codes, err := s.store.UserPermissions(gctx, user.ID, dept.Acronym)
			if err != nil {
				return fmt.Errorf("failed to load permissions for user %d: %w", user.ID, err)
			}

			views[i] = UserView{
				ID:          strconv.FormatInt(user.ID, 10),
				Email:       user.Email,
				FullName:    user.FullName,
				Active:      user.Active,
				Permissions: codes,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return views, nil
}

// Create registers a new user and enrolls them in the active department.
// Requires the INVITE_USERS permission.
func (s *UserService) Create(ctx context.Context, email, fullName, password string) (*UserView, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	if !session.HasPermission(string(permissions.CodeInviteUsers)) {
		return nil, fmt.Errorf("%w: inviting users requires %s", ErrPermissionDenied, permissions.CodeInviteUsers)
	}

	dept, err := s.requireDepartment(ctx)
	if err != nil {
		return nil, err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	id, err := s.store.CreateUser(ctx, &store.User{
		Email:    email,
		FullName: fullName,
		Password: hashed,
		Active:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	deptRow, err := s.store.GetDepartmentByAcronym(ctx, dept.Acronym)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve department: %w", err)
	}

	if err := s.store.AddUserToDepartment(ctx, id, deptRow.ID); err != nil {
		return nil, err
	}

	log.Info(ctx, "user created",
		log.Int64("user_id", id),
		log.String("department", dept.Acronym),
	)

	return &UserView{
		ID:       strconv.FormatInt(id, 10),
		Email:    email,
		FullName: fullName,
		Active:   true,
	}, nil
}

// Delete removes a user. Requires the DELETE_USERS permission.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	session, err := s.requireSession(ctx)
	if err != nil {
		return err
	}

	if !session.HasPermission(string(permissions.CodeDeleteUsers)) {
		return fmt.Errorf("%w: deleting users requires %s", ErrPermissionDenied, permissions.CodeDeleteUsers)
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}

		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.auth.InvalidateSessions(ctx, userID)

	log.Info(ctx, "user deleted", log.Int64("user_id", userID))

	return nil
}
