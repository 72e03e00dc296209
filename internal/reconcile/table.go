package reconcile

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/loopdocs/docdesk/internal/descriptor"
	"github.com/loopdocs/docdesk/internal/gateway"
	"github.com/loopdocs/docdesk/internal/permissions"
)

// identityColumns are user fields that are not permission codes. Edits to
// them are handled by the add flow; permission commits skip them.
var identityColumns = map[descriptor.ColumnKey]bool{
	"email":    true,
	"fullName": true,
	"password": true,
	"active":   true,
}

// UserTable builds the users management schema over the currently visible
// permission domain: identity columns plus one boolean column per code,
// with all actions wired to the reconciler.
//
// The engine performs the self-edit session refresh for these actions, so
// the commit callbacks deliberately do not.
func (r *Reconciler) UserTable(ctx context.Context) (*descriptor.Schema, error) {
	domain, err := r.Domain(ctx)
	if err != nil {
		return nil, err
	}

	columns := []descriptor.Column{
		{Key: "email", Header: "Email", Type: descriptor.ValueText, Editable: true, Filterable: true, Sortable: true, RequiredOnAdd: true, Width: "220px"},
		{Key: "fullName", Header: "Name", Type: descriptor.ValueText, Editable: true, Filterable: true, Sortable: true, RequiredOnAdd: true},
		{Key: "password", Header: "Password", Type: descriptor.ValueText, Editable: true, RequiredOnAdd: true},
		{
			Key: "active", Header: "Status", Type: descriptor.ValueBoolean, Filterable: true,
			Display: map[string]string{"true": "active", "false": "disabled"},
		},
	}

	for _, code := range domain {
		columns = append(columns, descriptor.Column{
			Key:        descriptor.ColumnKey(code),
			Header:     permissionHeader(code),
			Type:       descriptor.ValueBoolean,
			Editable:   true,
			Filterable: true,
		})
	}

	actions := []descriptor.Action{
		{Kind: descriptor.ActionAdd, Enabled: true, Commit: r.addCommit, Icon: "user-plus"},
		{Kind: descriptor.ActionEdit, Enabled: true, Commit: r.editCommit, Icon: "pencil"},
		{Kind: descriptor.ActionBatchEdit, Enabled: true, Commit: r.batchCommit, Icon: "pencil-multi"},
		{Kind: descriptor.ActionDelete, Enabled: true, Commit: r.deleteCommit, Icon: "trash"},
		{Kind: descriptor.ActionFilter, Enabled: true, Icon: "funnel"},
	}

	return descriptor.NewSchema("users", columns, actions)
}

func permissionHeader(code string) string {
	for _, perm := range permissions.All(nil) {
		if string(perm.Code) == code {
			return perm.Description
		}
	}

	return code
}

// permissionEdit extracts the per-code booleans from a row's field edits.
func permissionEdit(fields descriptor.FieldEdits) (map[string]bool, error) {
	edit := make(map[string]bool, len(fields))

	for key, value := range fields {
		if identityColumns[key] {
			continue
		}

		if !permissions.IsValid(string(key)) {
			return nil, fmt.Errorf("unknown permission code %q", key)
		}

		edit[string(key)] = cast.ToBool(value)
	}

	return edit, nil
}

func (r *Reconciler) editCommit(ctx context.Context, ids []string, edits map[string]descriptor.FieldEdits) error {
	for _, id := range ids {
		edit, err := permissionEdit(edits[id])
		if err != nil {
			return err
		}

		update, err := r.mergeFor(ctx, id, edit)
		if err != nil {
			return err
		}

		if err := r.gateway.UpdateUserPermissions(ctx, id, update); err != nil {
			return fmt.Errorf("failed to update permissions for user %s: %w", id, err)
		}
	}

	return nil
}

func (r *Reconciler) batchCommit(ctx context.Context, ids []string, edits map[string]descriptor.FieldEdits) error {
	updates := make(map[string][]string, len(ids))

	for _, id := range ids {
		edit, err := permissionEdit(edits[id])
		if err != nil {
			return err
		}

		update, err := r.mergeFor(ctx, id, edit)
		if err != nil {
			return err
		}

		updates[id] = update
	}

	if err := r.gateway.BatchUpdateUserPermissions(ctx, updates); err != nil {
		return fmt.Errorf("failed to batch update permissions: %w", err)
	}

	return nil
}

func (r *Reconciler) addCommit(ctx context.Context, _ []string, edits map[string]descriptor.FieldEdits) error {
	fields := edits[""]

	draft := gateway.UserDraft{
		Email:    cast.ToString(fields["email"]),
		FullName: cast.ToString(fields["fullName"]),
		Password: cast.ToString(fields["password"]),
	}

	user, err := r.gateway.CreateUser(ctx, draft)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	edit, err := permissionEdit(fields)
	if err != nil {
		return err
	}

	granted := false

	for _, v := range edit {
		if v {
			granted = true
			break
		}
	}

	if !granted {
		return nil
	}

	domain, err := r.Domain(ctx)
	if err != nil {
		return err
	}

	if err := r.gateway.UpdateUserPermissions(ctx, user.ID, Merge(nil, domain, edit)); err != nil {
		return fmt.Errorf("failed to set initial permissions for user %s: %w", user.ID, err)
	}

	return nil
}

func (r *Reconciler) deleteCommit(ctx context.Context, ids []string, _ map[string]descriptor.FieldEdits) error {
	for _, id := range ids {
		if err := r.gateway.DeleteUser(ctx, id); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", id, err)
		}
	}

	return nil
}
