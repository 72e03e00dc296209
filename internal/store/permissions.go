package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/loopdocs/docdesk/internal/permissions"
)

// systemScope is the department value of system-scoped grant rows.
const systemScope = ""

// UserPermissions returns a user's full permission set as seen from the
// given department: the department's grants plus all system grants.
func (s *Store) UserPermissions(ctx context.Context, userID int64, department string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT code FROM user_permissions
		 WHERE user_id = ? AND department IN (?, ?)
		 ORDER BY code`,
		userID, department, systemScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var codes []string

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}

		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return codes, nil
}

// ReplaceUserPermissions replaces a user's grants for the given department
// view with the provided full set. Codes valid in the department scope are
// written as department grants, the rest as system grants; grants of other
// departments are left untouched.
func (s *Store) ReplaceUserPermissions(ctx context.Context, userID int64, department string, codes []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return replacePermissionsTx(ctx, tx, userID, department, codes)
	})
}

// BatchReplaceUserPermissions applies several users' replacements in one
// transaction. Either all of them apply or none does.
func (s *Store) BatchReplaceUserPermissions(ctx context.Context, department string, updates map[int64][]string) error {
	ids := make([]int64, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}

	// Deterministic order keeps lock acquisition stable.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if err := replacePermissionsTx(ctx, tx, id, department, updates[id]); err != nil {
				return err
			}
		}

		return nil
	})
}

func replacePermissionsTx(ctx context.Context, tx *sql.Tx, userID int64, department string, codes []string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_permissions WHERE user_id = ? AND department IN (?, ?)`,
		userID, department, systemScope); err != nil {
		return fmt.Errorf("failed to clear permissions for user %d: %w", userID, err)
	}

	for _, code := range codes {
		if !permissions.IsValid(code) {
			return fmt.Errorf("unknown permission code %q", code)
		}

		scope := systemScope
		if permissions.InScope(permissions.Code(code), permissions.ScopeDepartment) && department != "" {
			scope = department
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_permissions (user_id, department, code) VALUES (?, ?, ?)`,
			userID, scope, code); err != nil {
			return fmt.Errorf("failed to grant %q to user %d: %w", code, userID, err)
		}
	}

	return nil
}
