package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopdocs/docdesk/internal/descriptor"
	"github.com/loopdocs/docdesk/internal/gateway"
	"github.com/loopdocs/docdesk/internal/tabular"
)

type fakeGateway struct {
	mu sync.Mutex

	users  []gateway.User
	domain []string

	updates map[string][]string
	batches []map[string][]string
	deleted []string

	err error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users: []gateway.User{
			{ID: "1", Email: "ana@example.com", FullName: "Ana", Active: true,
				Permissions: []string{"ADD_DOCS", "MANAGE_CATEGORIES", "MANAGE_SYSTEM_PERM"}},
			{ID: "2", Email: "bob@example.com", FullName: "Bob", Active: true,
				Permissions: []string{"SEARCH_DOCS"}},
		},
		domain: []string{
			"ADD_DOCS", "SEARCH_DOCS", "DELETE_DOCS", "MANAGE_CATEGORIES",
			"INVITE_USERS", "DELETE_USERS", "MANAGE_DEPT_PERM",
		},
		updates: map[string][]string{},
	}
}

func (g *fakeGateway) ListUsers(ctx context.Context) ([]gateway.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]gateway.User, len(g.users))
	copy(out, g.users)

	return out, g.err
}

func (g *fakeGateway) PermissionDomain(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.domain, g.err
}

func (g *fakeGateway) CreateUser(ctx context.Context, draft gateway.UserDraft) (*gateway.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}

	user := gateway.User{
		ID:       fmt.Sprintf("%d", len(g.users)+1),
		Email:    draft.Email,
		FullName: draft.FullName,
		Active:   true,
	}
	g.users = append(g.users, user)

	return &user, nil
}

func (g *fakeGateway) UpdateUserPermissions(ctx context.Context, userID string, codes []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}

	g.updates[userID] = codes

	return nil
}

func (g *fakeGateway) BatchUpdateUserPermissions(ctx context.Context, updates map[string][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}

	g.batches = append(g.batches, updates)

	return nil
}

func (g *fakeGateway) DeleteUser(ctx context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}

	g.deleted = append(g.deleted, userID)

	return nil
}

type recordingSession struct {
	id        string
	refreshes int
}

func (s *recordingSession) CurrentUserID() string { return s.id }

func (s *recordingSession) Refresh(ctx context.Context) error {
	s.refreshes++
	return nil
}

func TestProjectRow(t *testing.T) {
	user := gateway.User{
		ID: "1", Email: "ana@example.com", FullName: "Ana", Active: true,
		Permissions: []string{"ADD_DOCS", "MANAGE_SYSTEM_PERM"},
	}
	domain := []string{"ADD_DOCS", "SEARCH_DOCS"}

	row := ProjectRow(user, domain)

	assert.Equal(t, "1", row.ID)
	assert.Equal(t, "ana@example.com", row.Field("email"))
	assert.Equal(t, true, row.Field("active"))
	assert.Equal(t, true, row.Field("ADD_DOCS"))
	assert.Equal(t, false, row.Field("SEARCH_DOCS"))

	// System codes outside the domain are not projected onto the row.
	assert.Nil(t, row.Field("MANAGE_SYSTEM_PERM"))
}

func TestLoadSnapshotsBaseline(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	rows, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, true, rows[0].Field("ADD_DOCS"))
	assert.Equal(t, false, rows[0].Field("SEARCH_DOCS"))

	domain, err := r.Domain(context.Background())
	require.NoError(t, err)
	assert.Len(t, domain, 7)
}

func TestCommitUserPreservesOutsideCodes(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	err = r.CommitUser(context.Background(), "1", map[string]bool{
		"ADD_DOCS":    false,
		"SEARCH_DOCS": true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"MANAGE_CATEGORIES", "MANAGE_SYSTEM_PERM", "SEARCH_DOCS"}, gw.updates["1"])
}

func TestCommitUserWithoutPriorLoad(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	err := r.CommitUser(context.Background(), "2", map[string]bool{"ADD_DOCS": true})
	require.NoError(t, err)

	assert.Equal(t, []string{"ADD_DOCS", "SEARCH_DOCS"}, gw.updates["2"])
}

func TestCommitUserUnknownUser(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	err := r.CommitUser(context.Background(), "missing", map[string]bool{"ADD_DOCS": true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown user")
}

func TestCommitUserRejectsUnknownCode(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	err = r.CommitUser(context.Background(), "1", map[string]bool{"NOT_A_CODE": true})
	require.Error(t, err)
	assert.Empty(t, gw.updates)
}

func TestCommitBatch(t *testing.T) {
	gw := newFakeGateway()
	session := &recordingSession{id: "1"}
	r := NewReconciler(gw, session)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	err = r.CommitBatch(context.Background(), map[string]map[string]bool{
		"1": {"SEARCH_DOCS": true},
		"2": {"ADD_DOCS": true},
	})
	require.NoError(t, err)

	require.Len(t, gw.batches, 1)
	batch := gw.batches[0]
	assert.Equal(t, []string{"ADD_DOCS", "MANAGE_CATEGORIES", "MANAGE_SYSTEM_PERM", "SEARCH_DOCS"}, batch["1"])
	assert.Equal(t, []string{"ADD_DOCS", "SEARCH_DOCS"}, batch["2"])

	// The acting user was in the batch: exactly one session refresh.
	assert.Equal(t, 1, session.refreshes)
}

func TestCommitBatchWithoutSelf(t *testing.T) {
	gw := newFakeGateway()
	session := &recordingSession{id: "99"}
	r := NewReconciler(gw, session)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	err = r.CommitBatch(context.Background(), map[string]map[string]bool{
		"2": {"ADD_DOCS": true},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, session.refreshes)
}

func TestUserTableSchema(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	schema, err := r.UserTable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "users", schema.Domain())
	// Identity columns plus one boolean column per domain code.
	assert.Len(t, schema.Columns(), 4+len(gw.domain))

	col, ok := schema.Column("SEARCH_DOCS")
	require.True(t, ok)
	assert.Equal(t, descriptor.ValueBoolean, col.Type)
	assert.True(t, col.Editable)
	assert.Equal(t, "Search and download documents", col.Header)

	for _, kind := range []descriptor.ActionKind{
		descriptor.ActionAdd, descriptor.ActionEdit, descriptor.ActionBatchEdit,
		descriptor.ActionDelete, descriptor.ActionFilter,
	} {
		action, ok := schema.Action(kind)
		require.True(t, ok, "action %s", kind)
		assert.True(t, action.Enabled, "action %s", kind)
	}
}

// End-to-end over the engine: toggling a permission checkbox and committing
// sends the merged full set through the gateway, and a self-edit refreshes
// the session exactly once.
func TestEngineIntegration(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	session := &recordingSession{id: "1"}
	r := NewReconciler(gw, session)

	schema, err := r.UserTable(ctx)
	require.NoError(t, err)

	engine, err := tabular.NewEngine(tabular.Options{
		Schema:  schema,
		Load:    r.Load,
		Session: session,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Reload(ctx))

	require.NoError(t, engine.BeginEdit("1"))
	require.NoError(t, engine.UpdateField("1", "ADD_DOCS", false))
	require.NoError(t, engine.UpdateField("1", "SEARCH_DOCS", true))
	require.NoError(t, engine.CommitEdit(ctx, "1"))

	assert.Equal(t, []string{"MANAGE_CATEGORIES", "MANAGE_SYSTEM_PERM", "SEARCH_DOCS"}, gw.updates["1"])
	assert.Equal(t, 1, session.refreshes)
}

func TestAddCommitCreatesUserWithPermissions(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	schema, err := r.UserTable(ctx)
	require.NoError(t, err)

	engine, err := tabular.NewEngine(tabular.Options{Schema: schema, Load: r.Load})
	require.NoError(t, err)
	require.NoError(t, engine.Reload(ctx))

	err = engine.AddRow(ctx, descriptor.FieldEdits{
		"email":       "carol@example.com",
		"fullName":    "Carol",
		"password":    "secret",
		"SEARCH_DOCS": true,
	})
	require.NoError(t, err)

	require.Len(t, gw.users, 3)
	assert.Equal(t, "carol@example.com", gw.users[2].Email)
	assert.Equal(t, []string{"SEARCH_DOCS"}, gw.updates["3"])
}

func TestDeleteCommit(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	r := NewReconciler(gw, nil)

	schema, err := r.UserTable(ctx)
	require.NoError(t, err)

	engine, err := tabular.NewEngine(tabular.Options{Schema: schema, Load: r.Load})
	require.NoError(t, err)
	require.NoError(t, engine.Reload(ctx))

	require.NoError(t, engine.DeleteRow(ctx, "2"))
	assert.Equal(t, []string{"2"}, gw.deleted)
}
