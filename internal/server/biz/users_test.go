package biz

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/store"
)

func newUserService(t *testing.T, s *store.Store) *UserService {
	t.Helper()

	auth := newAuthService(t, s)

	return NewUserService(UserServiceParams{Store: s, Auth: auth})
}

func seedDepartment(t *testing.T, s *store.Store, acronym string) int64 {
	t.Helper()

	id, err := s.CreateDepartment(context.Background(), &store.Department{
		Acronym: acronym,
		Name:    "Department " + acronym,
	})
	require.NoError(t, err)

	return id
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := newUserService(t, s)

	seedDepartment(t, s, "ENG")

	t.Run("requires INVITE_USERS", func(t *testing.T) {
		_, err := svc.Create(actingContext("SEARCH_DOCS"), "new@example.com", "New", "pw")
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("creates and enrolls in the active department", func(t *testing.T) {
		view, err := svc.Create(actingContext("INVITE_USERS"), "new@example.com", "New User", "pw")
		require.NoError(t, err)
		assert.True(t, view.Active)

		members, err := s.ListUsers(ctx, "ENG")
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "new@example.com", members[0].Email)

		// The stored password is hashed, and the hash verifies.
		require.NoError(t, VerifyPassword(members[0].Password, "pw"))
	})
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	svc := newUserService(t, s)

	id := seedAccount(t, s, "bob@example.com", "pw", true)

	t.Run("requires DELETE_USERS", func(t *testing.T) {
		err := svc.Delete(actingContext("SEARCH_DOCS"), id)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("deletes the user", func(t *testing.T) {
		require.NoError(t, svc.Delete(actingContext("DELETE_USERS"), id))
		assert.ErrorIs(t, svc.Delete(actingContext("DELETE_USERS"), id), store.ErrNotFound)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := newUserService(t, s)

	deptID := seedDepartment(t, s, "ENG")
	ana := seedAccount(t, s, "ana@example.com", "pw", true)
	bob := seedAccount(t, s, "bob@example.com", "pw", true)
	require.NoError(t, s.AddUserToDepartment(ctx, ana, deptID))
	require.NoError(t, s.AddUserToDepartment(ctx, bob, deptID))
	require.NoError(t, s.ReplaceUserPermissions(ctx, ana, "ENG", []string{"SEARCH_DOCS", "MANAGE_SYSTEM_PERM"}))

	views, err := svc.List(actingContext("SEARCH_DOCS"))
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, strconv.FormatInt(ana, 10), views[0].ID)
	assert.ElementsMatch(t, []string{"MANAGE_SYSTEM_PERM", "SEARCH_DOCS"}, views[0].Permissions)
	assert.Empty(t, views[1].Permissions)

	t.Run("requires a department", func(t *testing.T) {
		ctx := contexts.WithSession(context.Background(), &contexts.Session{UserID: "1"})
		_, err := svc.List(ctx)
		assert.ErrorIs(t, err, ErrNoDepartment)
	})
}
