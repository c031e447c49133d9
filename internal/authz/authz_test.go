package authz

import (
	"context"
	"errors"
	"testing"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	active []string
	roles  map[uuid.UUID][]model.Role
	err    error
}

func (f *fakeStore) ListActiveCodes(ctx context.Context) ([]string, error) {
	return f.active, f.err
}

func (f *fakeStore) ListRolesForUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	return f.roles[userID], f.err
}

func perm(code string, active bool) model.Permission {
	return model.Permission{ID: uuid.New(), Code: code, IsActive: active}
}

func role(active bool, perms ...model.Permission) model.Role {
	return model.Role{ID: uuid.New(), IsActive: active, Permissions: perms}
}

func TestAuthorize_ReportsMissing(t *testing.T) {
	d := Authorize(NewPermissionSet("user:list"), Require("user:list", "user:create"))
	assert.False(t, d.Allowed())
	assert.Equal(t, []string{"user:create"}, d.Missing)

	err := d.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, []string{"user:create"}, denied.Missing)
}

func TestAuthorize_EmptyRequirementAlwaysGranted(t *testing.T) {
	d := Authorize(nil, Require())
	assert.True(t, d.Allowed())
	assert.NoError(t, d.Err())
}

func TestAuthorize_ModuleGrant(t *testing.T) {
	granted := NewPermissionSet("user")
	assert.True(t, Authorize(granted, Require("user:create", "user:delete")).Allowed())
	assert.False(t, Authorize(granted, Require("role:list")).Allowed())

	// an action code never implies the module or a sibling action
	narrow := NewPermissionSet("user:list")
	assert.False(t, narrow.Satisfies("user"))
	assert.False(t, narrow.Satisfies("user:create"))
}

func TestRequire_DedupAndSort(t *testing.T) {
	req := Require("b:x", " a:y ", "b:x", "")
	assert.Equal(t, []string{"a:y", "b:x"}, req.Codes())
	assert.Equal(t, "a:y,b:x", req.String())
	assert.True(t, Require().IsEmpty())

	codes := req.Codes()
	codes[0] = "mutated"
	assert.Equal(t, []string{"a:y", "b:x"}, req.Codes(), "codes are copied out")
}

func TestResolver_SuperuserGetsAllActiveCodes(t *testing.T) {
	store := &fakeStore{active: []string{"user:list", "role:list", "audit:list"}}
	r := NewResolver(store, store)

	admin := &model.User{ID: uuid.New(), IsSuperuser: true, IsActive: true}
	set, err := r.Resolve(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit:list", "role:list", "user:list"}, set.Codes())

	// roles are ignored entirely for a superuser
	store.roles = map[uuid.UUID][]model.Role{admin.ID: {role(true, perm("other:thing", true))}}
	set, err = r.Resolve(context.Background(), admin)
	require.NoError(t, err)
	assert.False(t, set.Contains("other:thing"))
}

func TestResolver_UnionOverActiveRoles(t *testing.T) {
	user := &model.User{ID: uuid.New(), IsActive: true}
	store := &fakeStore{roles: map[uuid.UUID][]model.Role{
		user.ID: {
			role(true, perm("user:list", true), perm("user:create", false)),
			role(true, perm("user:list", true), perm("role:list", true)),
			role(false, perm("audit:list", true)),
		},
	}}
	r := NewResolver(store, store)

	set, err := r.Resolve(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"role:list", "user:list"}, set.Codes())
}

func TestResolver_NoRolesIsEmpty(t *testing.T) {
	user := &model.User{ID: uuid.New(), IsActive: true}
	store := &fakeStore{roles: map[uuid.UUID][]model.Role{user.ID: {role(true, perm("user:list", true))}}}
	r := NewResolver(store, store)

	set, err := r.Resolve(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())

	delete(store.roles, user.ID)
	set, err = r.Resolve(context.Background(), user)
	require.NoError(t, err)
	assert.Zero(t, set.Len())

	d, err := r.Authorize(context.Background(), user, Require("user:list", "user:create"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user:create", "user:list"}, d.Missing)
}

func TestResolver_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	store := &fakeStore{err: boom}
	r := NewResolver(store, store)

	_, err := r.Resolve(context.Background(), &model.User{ID: uuid.New()})
	assert.ErrorIs(t, err, boom)

	_, err = r.Authorize(context.Background(), &model.User{ID: uuid.New(), IsSuperuser: true}, Require("x"))
	assert.ErrorIs(t, err, boom)
}
