package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopdocs/docdesk/internal/contexts"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Token = "test-token"

	return NewClient(cfg)
}

func TestListUsers(t *testing.T) {
	var gotAuth, gotTrace, gotDept string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTrace = r.Header.Get("X-Trace-Id")
		gotDept = r.Header.Get("X-Department")

		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/users", r.URL.Path)

		_ = json.NewEncoder(w).Encode(listUsersResponse{Users: []User{
			{ID: "7", Email: "ana@example.com", FullName: "Ana", Active: true, Permissions: []string{"SEARCH_DOCS"}},
		}})
	})

	ctx := contexts.WithTraceID(context.Background(), "dd-test-trace")
	ctx = contexts.WithDepartment(ctx, &contexts.Department{ID: "1", Acronym: "ENG", Name: "Engineering"})

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "7", users[0].ID)
	assert.Equal(t, []string{"SEARCH_DOCS"}, users[0].Permissions)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "dd-test-trace", gotTrace)
	assert.Equal(t, "ENG", gotDept)
}

func TestPermissionDomain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/permissions/domain", r.URL.Path)
		_ = json.NewEncoder(w).Encode(permissionDomainResponse{Codes: []string{"ADD_DOCS", "SEARCH_DOCS"}})
	})

	codes, err := client.PermissionDomain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ADD_DOCS", "SEARCH_DOCS"}, codes)
}

func TestCreateUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var draft UserDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, "new@example.com", draft.Email)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(User{ID: "9", Email: draft.Email, FullName: draft.FullName, Active: true})
	})

	user, err := client.CreateUser(context.Background(), UserDraft{
		Email:    "new@example.com",
		FullName: "New User",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "9", user.ID)
}

func TestUpdateUserPermissions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/users/7/permissions", r.URL.Path)

		var req updatePermissionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"SEARCH_DOCS", "MANAGE_CATEGORIES"}, req.Permissions)

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateUserPermissions(context.Background(), "7", []string{"SEARCH_DOCS", "MANAGE_CATEGORIES"})
	require.NoError(t, err)
}

func TestBatchUpdateUserPermissions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/permissions", r.URL.Path)

		var req batchUpdatePermissionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Updates, 2)

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.BatchUpdateUserPermissions(context.Background(), map[string][]string{
		"7": {"SEARCH_DOCS"},
		"8": {"ADD_DOCS", "SEARCH_DOCS"},
	})
	require.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/users/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteUser(context.Background(), "7"))
}

func TestErrorMapping(t *testing.T) {
	t.Run("structured error body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: "permission denied"})
		})

		err := client.DeleteUser(context.Background(), "7")
		require.Error(t, err)

		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, http.StatusForbidden, gerr.StatusCode)
		assert.Equal(t, "permission denied", gerr.Reason)
		assert.Equal(t, "delete user", gerr.Op)
	})

	t.Run("opaque error body falls back to status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := client.ListUsers(context.Background())
		require.Error(t, err)

		var gerr *Error
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, http.StatusInternalServerError, gerr.StatusCode)
		assert.Contains(t, gerr.Reason, "500")
	})
}
