package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/loopdocs/docdesk/internal/descriptor"
	"github.com/loopdocs/docdesk/internal/gateway"
	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/permissions"
	"github.com/loopdocs/docdesk/internal/tabular"
)

// Reconciler binds the gateway's user listing to the table engine: it loads
// rows, projects permission sets onto per-code boolean columns, and turns
// row edits back into full permission sets via Merge.
//
// The reconciler snapshots each user's full permission set on every load.
// Commits merge against that snapshot, so the last load is the baseline for
// the next write (last-write-wins, consistent with pessimistic refresh).
type Reconciler struct {
	gateway gateway.Gateway
	session tabular.Session

	mu       sync.Mutex
	domain   []string
	fullSets map[string][]string
}

func NewReconciler(gw gateway.Gateway, session tabular.Session) *Reconciler {
	return &Reconciler{
		gateway:  gw,
		session:  session,
		fullSets: map[string][]string{},
	}
}

// ProjectRow flattens a user into a table row: identity fields plus one
// boolean field per domain code.
func ProjectRow(user gateway.User, domain []string) tabular.Row {
	fields := map[descriptor.ColumnKey]any{
		"email":    user.Email,
		"fullName": user.FullName,
		"active":   user.Active,
	}

	has := make(map[string]bool, len(user.Permissions))
	for _, code := range user.Permissions {
		has[code] = true
	}

	for _, code := range domain {
		fields[descriptor.ColumnKey(code)] = has[code]
	}

	return tabular.Row{ID: user.ID, Fields: fields}
}

// Load fetches the user listing and the visible permission domain, and
// refreshes the merge baseline. It satisfies tabular.Loader.
func (r *Reconciler) Load(ctx context.Context) ([]tabular.Row, error) {
	users, err := r.gateway.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	domain, err := r.gateway.PermissionDomain(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission domain: %w", err)
	}

	fullSets := make(map[string][]string, len(users))
	for _, user := range users {
		fullSets[user.ID] = user.Permissions
	}

	r.mu.Lock()
	r.domain = domain
	r.fullSets = fullSets
	r.mu.Unlock()

	return lo.Map(users, func(u gateway.User, _ int) tabular.Row {
		return ProjectRow(u, domain)
	}), nil
}

// Domain returns the visible permission domain from the last load,
// fetching it when no load has happened yet.
func (r *Reconciler) Domain(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	domain := r.domain
	r.mu.Unlock()

	if domain != nil {
		return domain, nil
	}

	domain, err := r.gateway.PermissionDomain(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission domain: %w", err)
	}

	r.mu.Lock()
	r.domain = domain
	r.mu.Unlock()

	return domain, nil
}

// CommitUser merges a single user's partial edit and writes the resulting
// full set. A self-edit refreshes the session afterwards.
func (r *Reconciler) CommitUser(ctx context.Context, userID string, edit map[string]bool) error {
	update, err := r.mergeFor(ctx, userID, edit)
	if err != nil {
		return err
	}

	if err := r.gateway.UpdateUserPermissions(ctx, userID, update); err != nil {
		return fmt.Errorf("failed to update permissions for user %s: %w", userID, err)
	}

	r.refreshSessionIfSelf(ctx, []string{userID})

	return nil
}

// CommitBatch merges each user's partial edit independently and submits all
// resulting sets as one atomic bulk write. If the acting user is among the
// edited users, the session is refreshed exactly once after success.
func (r *Reconciler) CommitBatch(ctx context.Context, edits map[string]map[string]bool) error {
	updates := make(map[string][]string, len(edits))

	for userID, edit := range edits {
		update, err := r.mergeFor(ctx, userID, edit)
		if err != nil {
			return err
		}

		updates[userID] = update
	}

	if err := r.gateway.BatchUpdateUserPermissions(ctx, updates); err != nil {
		return fmt.Errorf("failed to batch update permissions: %w", err)
	}

	r.refreshSessionIfSelf(ctx, lo.Keys(edits))

	return nil
}

func (r *Reconciler) mergeFor(ctx context.Context, userID string, edit map[string]bool) ([]string, error) {
	domain, err := r.Domain(ctx)
	if err != nil {
		return nil, err
	}

	current, err := r.currentSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	for code := range edit {
		if !permissions.IsValid(code) {
			return nil, fmt.Errorf("unknown permission code %q", code)
		}
	}

	return Merge(current, domain, edit), nil
}

func (r *Reconciler) currentSet(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	current, ok := r.fullSets[userID]
	r.mu.Unlock()

	if ok {
		return current, nil
	}

	// No snapshot for this user; fall back to a fresh listing.
	users, err := r.gateway.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		if user.ID == userID {
			r.mu.Lock()
			r.fullSets[userID] = user.Permissions
			r.mu.Unlock()

			return user.Permissions, nil
		}
	}

	return nil, fmt.Errorf("unknown user %q", userID)
}

func (r *Reconciler) refreshSessionIfSelf(ctx context.Context, ids []string) {
	if r.session == nil || !lo.Contains(ids, r.session.CurrentUserID()) {
		return
	}

	if err := r.session.Refresh(ctx); err != nil {
		log.Warn(ctx, "session refresh after permission change failed", log.Cause(err))
	}
}
