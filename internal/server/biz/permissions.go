package biz

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/permissions"
	"github.com/loopdocs/docdesk/internal/store"
)

type PermissionServiceParams struct {
	fx.In

	Store *store.Store
	Auth  *AuthService
}

func NewPermissionService(params PermissionServiceParams) *PermissionService {
	return &PermissionService{
		AbstractService: &AbstractService{store: params.Store},
		auth:            params.Auth,
	}
}

type PermissionService struct {
	*AbstractService

	auth *AuthService
}

// Domain returns the permission codes the acting user may manage in the
// current view: department-scoped codes when they hold MANAGE_DEPT_PERM,
// system-scoped codes when they hold MANAGE_SYSTEM_PERM.
func (s *PermissionService) Domain(ctx context.Context) ([]string, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireDepartment(ctx); err != nil {
		return nil, err
	}

	var codes []string

	if session.HasPermission(string(permissions.CodeManageDeptPerm)) {
		for _, code := range permissions.DomainCodes(permissions.ScopeDepartment) {
			codes = append(codes, string(code))
		}
	}

	if session.HasPermission(string(permissions.CodeManageSystemPerm)) {
		for _, code := range permissions.DomainCodes(permissions.ScopeSystem) {
			codes = append(codes, string(code))
		}
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: managing permissions requires %s or %s",
			ErrPermissionDenied, permissions.CodeManageDeptPerm, permissions.CodeManageSystemPerm)
	}

	return lo.Uniq(codes), nil
}

// Update replaces a user's full permission set. Every code that differs
// from the user's current set must lie inside the acting user's manageable
// domain.
func (s *PermissionService) Update(ctx context.Context, userID int64, codes []string) error {
	domain, err := s.Domain(ctx)
	if err != nil {
		return err
	}

	dept, err := s.requireDepartment(ctx)
	if err != nil {
		return err
	}

	if err := s.checkUpdate(ctx, userID, dept.Acronym, codes, domain); err != nil {
		return err
	}

	if err := s.store.ReplaceUserPermissions(ctx, userID, dept.Acronym, codes); err != nil {
		return fmt.Errorf("failed to replace permissions: %w", err)
	}

	s.auth.InvalidateSessions(ctx, userID)

	log.Info(ctx, "permissions updated",
		log.Int64("user_id", userID),
		log.String("department", dept.Acronym),
		log.Strings("codes", codes),
	)

	return nil
}

// BatchUpdate replaces several users' permission sets in one transaction.
// Either every update applies or none does.
func (s *PermissionService) BatchUpdate(ctx context.Context, updates map[int64][]string) error {
	domain, err := s.Domain(ctx)
	if err != nil {
		return err
	}

	dept, err := s.requireDepartment(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for userID, codes := range updates {
		userID, codes := userID, codes
		g.Go(func() error {
			return s.checkUpdate(gctx, userID, dept.Acronym, codes, domain)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.store.BatchReplaceUserPermissions(ctx, dept.Acronym, updates); err != nil {
		return fmt.Errorf("failed to batch replace permissions: %w", err)
	}

	s.auth.InvalidateSessions(ctx, lo.Keys(updates)...)

	log.Info(ctx, "permissions batch updated",
		log.Int("users", len(updates)),
		log.String("department", dept.Acronym),
	)

	return nil
}

// checkUpdate verifies that the requested set only differs from the current
// one inside the manageable domain, and that every code is registered.
func (s *PermissionService) checkUpdate(ctx context.Context, userID int64, department string, codes, domain []string) error {
	for _, code := range codes {
		if !permissions.IsValid(code) {
			return fmt.Errorf("unknown permission code %q", code)
		}
	}

	current, err := s.store.UserPermissions(ctx, userID, department)
	if err != nil {
		return fmt.Errorf("failed to load current permissions: %w", err)
	}

	added, removed := lo.Difference(codes, current)

	for _, code := range append(added, removed...) {
		if !lo.Contains(domain, code) {
			return fmt.Errorf("%w: code %s is outside the manageable domain", ErrPermissionDenied, code)
		}
	}

	return nil
}
