package permissions

import "slices"

// Code represents a single grantable capability of the console. Every user
// holds a set of codes; what a user may see or do is decided by membership
// checks against that set.
type Code string

// Available permission codes.
const (
	// CodeAddDocs upload new documents to the active department.
	CodeAddDocs Code = "ADD_DOCS"
	// CodeSearchDocs search and download documents of the active department.
	CodeSearchDocs Code = "SEARCH_DOCS"
	// CodeDeleteDocs remove documents from the active department.
	CodeDeleteDocs Code = "DELETE_DOCS"

	// CodeManageCategories manage the document categories of the active department.
	CodeManageCategories Code = "MANAGE_CATEGORIES"

	// CodeInviteUsers invite new users.
	CodeInviteUsers Code = "INVITE_USERS"
	// CodeDeleteUsers remove users.
	CodeDeleteUsers Code = "DELETE_USERS"
	// CodeManageDeptPerm manage department-scoped permissions of other users.
	CodeManageDeptPerm Code = "MANAGE_DEPT_PERM"

	// CodeManageDepartments create, edit and delete departments.
	CodeManageDepartments Code = "MANAGE_DEPARTMENTS"
	// CodeManageSystemPerm manage system-scoped permissions of other users.
	CodeManageSystemPerm Code = "MANAGE_SYSTEM_PERM"
)

// Scope is the namespace a permission code belongs to. Department-scoped
// codes are granted per department; system-scoped codes are global. The two
// namespaces are disjoint per code: reconciling one never touches the other.
type Scope string

const (
	// ScopeDepartment is the scope of codes granted within a single department.
	ScopeDepartment Scope = "department"

	// ScopeSystem is the scope of codes granted globally.
	ScopeSystem Scope = "system"
)

type Permission struct {
	Code        Code
	Description string
	Scopes      []Scope
}

// registry defines all available permission codes with their configurations.
var registry = []Permission{
	{
		Code:        CodeAddDocs,
		Description: "Upload new documents",
		Scopes:      []Scope{ScopeDepartment},
	},
	{
		Code:        CodeSearchDocs,
		Description: "Search and download documents",
		Scopes:      []Scope{ScopeDepartment},
	},
	{
		Code:        CodeDeleteDocs,
		Description: "Delete documents",
		Scopes:      []Scope{ScopeDepartment},
	},
	{
		Code:        CodeManageCategories,
		Description: "Manage document categories",
		Scopes:      []Scope{ScopeDepartment},
	},
	{
		Code:        CodeInviteUsers,
		Description: "Invite new users",
		Scopes:      []Scope{ScopeDepartment, ScopeSystem},
	},
	{
		Code:        CodeDeleteUsers,
		Description: "Remove users",
		Scopes:      []Scope{ScopeDepartment, ScopeSystem},
	},
	{
		Code:        CodeManageDeptPerm,
		Description: "Manage department permissions of users",
		Scopes:      []Scope{ScopeDepartment},
	},
	{
		Code:        CodeManageDepartments,
		Description: "Manage departments (create, edit, delete)",
		Scopes:      []Scope{ScopeSystem},
	},
	{
		Code:        CodeManageSystemPerm,
		Description: "Manage system permissions of users",
		Scopes:      []Scope{ScopeSystem},
	},
}

// All returns all registered permissions, optionally filtered by scope.
func All(scope *Scope) []Permission {
	if scope == nil {
		return registry
	}

	filtered := make([]Permission, 0)

	for _, perm := range registry {
		if slices.Contains(perm.Scopes, *scope) {
			filtered = append(filtered, perm)
		}
	}

	return filtered
}

// DomainCodes returns the permission codes valid for the given scope.
// This is the "visible domain" of a management view over that scope.
func DomainCodes(scope Scope) []Code {
	perms := All(&scope)

	codes := make([]Code, len(perms))
	for i, perm := range perms {
		codes[i] = perm.Code
	}

	return codes
}

// AllCodesAsStrings returns all registered permission codes as strings.
func AllCodesAsStrings() []string {
	result := make([]string, len(registry))
	for i, perm := range registry {
		result[i] = string(perm.Code)
	}

	return result
}

// IsValid checks whether a code is registered.
func IsValid(code string) bool {
	for _, perm := range registry {
		if string(perm.Code) == code {
			return true
		}
	}

	return false
}

// InScope checks whether a code is valid for the given scope.
func InScope(code Code, scope Scope) bool {
	for _, perm := range registry {
		if perm.Code == code {
			return slices.Contains(perm.Scopes, scope)
		}
	}

	return false
}
