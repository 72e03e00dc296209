// Package gateway is the console's client for the document-management API.
// It exposes the handful of remote operations the table engine and the
// permission reconciler need; everything else about the wire protocol stays
// behind this interface.
package gateway

import (
	"context"
	"fmt"
)

// User is the gateway's projection of a managed user account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Active   bool   `json:"active"`

	// Permissions holds every permission code the user has, across all
	// scopes, not just the codes visible in the active department.
	Permissions []string `json:"permissions"`
}

// UserDraft carries the fields needed to create a user.
type UserDraft struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

// Gateway is the remote side of the console. The table engine never calls
// it directly; descriptor commit callbacks and the reconciler do.
type Gateway interface {
	// ListUsers returns the users visible in the active department.
	ListUsers(ctx context.Context) ([]User, error)

	// PermissionDomain returns the permission codes manageable in the
	// current view: department-scoped codes for the active department
	// plus system-scoped codes when the acting user may manage those.
	PermissionDomain(ctx context.Context) ([]string, error)

	// CreateUser registers a new user account.
	CreateUser(ctx context.Context, draft UserDraft) (*User, error)

	// UpdateUserPermissions replaces the user's full permission set.
	UpdateUserPermissions(ctx context.Context, userID string, codes []string) error

	// BatchUpdateUserPermissions replaces several users' permission sets
	// in one atomic call. Either every update applies or none does.
	BatchUpdateUserPermissions(ctx context.Context, updates map[string][]string) error

	// DeleteUser removes a user account.
	DeleteUser(ctx context.Context, userID string) error
}

// Error is a remote rejection: the server answered, and said no.
type Error struct {
	Op         string
	StatusCode int
	Reason     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s failed with status %d: %s", e.Op, e.StatusCode, e.Reason)
}
