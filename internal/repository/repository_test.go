package repository_test

import (
	"context"
	"errors"
	"testing"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type repos struct {
	db    *gorm.DB
	users repository.UserRepository
	roles repository.RoleRepository
	perms repository.PermissionRepository
	depts repository.DepartmentRepository
	pos   repository.PositionRepository
	audit repository.AuditRepository
	tx    repository.TransactionManager
}

func setup(t *testing.T) repos {
	db := testutil.NewDB(t)
	return repos{
		db:    db,
		users: repository.NewUserRepository(db),
		roles: repository.NewRoleRepository(db),
		perms: repository.NewPermissionRepository(db),
		depts: repository.NewDepartmentRepository(db),
		pos:   repository.NewPositionRepository(db),
		audit: repository.NewAuditRepository(db),
		tx:    repository.NewTransactionManager(db),
	}
}

func newUser(t *testing.T, r repos, username string, active bool) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: active}
	require.NoError(t, r.users.Create(context.Background(), u))
	return u
}

func newPermission(t *testing.T, r repos, code string, active bool) *model.Permission {
	t.Helper()
	p := &model.Permission{Code: code, Name: code, Type: model.PermissionTypeAPI, IsActive: active}
	require.NoError(t, r.perms.Create(context.Background(), p))
	return p
}

func newRole(t *testing.T, r repos, code string, active bool) *model.Role {
	t.Helper()
	role := &model.Role{Code: code, Name: code, IsActive: active}
	require.NoError(t, r.roles.Create(context.Background(), role))
	return role
}

func TestUserRepository_FindByLoginAndActive(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	alice := newUser(t, r, "alice", true)
	bob := newUser(t, r, "bob", false)

	byName, err := r.users.FindByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := r.users.FindByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = r.users.FindByLogin(ctx, "carol")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = r.users.FindActiveByID(ctx, alice.ID)
	assert.NoError(t, err)
	_, err = r.users.FindActiveByID(ctx, bob.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRoleRepository_ReplacePermissionsAndListForUser(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	list := newPermission(t, r, "user:list", true)
	create := newPermission(t, r, "user:create", true)
	role := newRole(t, r, "editor", true)
	user := newUser(t, r, "alice", true)

	require.NoError(t, r.roles.ReplacePermissions(ctx, role.ID, []uuid.UUID{list.ID, create.ID}))
	require.NoError(t, r.users.ReplaceRoles(ctx, user.ID, []uuid.UUID{role.ID}))

	roles, err := r.roles.ListRolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Len(t, roles[0].Permissions, 2)

	// replace is a full set-replace, not an append
	require.NoError(t, r.roles.ReplacePermissions(ctx, role.ID, []uuid.UUID{list.ID}))
	roles, err = r.roles.ListRolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, roles[0].Permissions, 1)
	assert.Equal(t, "user:list", roles[0].Permissions[0].Code)

	require.NoError(t, r.users.ReplaceRoles(ctx, user.ID, nil))
	roles, err = r.roles.ListRolesForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUserRepository_DeleteRemovesLinksOnly(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	role := newRole(t, r, "editor", true)
	user := newUser(t, r, "alice", true)
	require.NoError(t, r.users.ReplaceRoles(ctx, user.ID, []uuid.UUID{role.ID}))
	dept := &model.Department{Code: "ops", Name: "Ops", IsActive: true, LeaderID: &user.ID}
	require.NoError(t, r.depts.Create(ctx, dept))

	require.NoError(t, r.users.Delete(ctx, user.ID))

	got, err := r.depts.FindByID(ctx, dept.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LeaderID)

	var links int64
	require.NoError(t, r.db.Model(&model.UserRole{}).Where("user_id = ?", user.ID).Count(&links).Error)
	assert.Zero(t, links)

	_, err = r.roles.FindByID(ctx, role.ID)
	assert.NoError(t, err, "role survives")

	assert.ErrorIs(t, r.users.Delete(ctx, user.ID), gorm.ErrRecordNotFound)
}

func TestPermissionRepository_ListActiveCodes(t *testing.T) {
	r := setup(t)
	newPermission(t, r, "user:list", true)
	newPermission(t, r, "user", true)
	newPermission(t, r, "role:list", false)

	codes, err := r.perms.ListActiveCodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "user:list"}, codes)
}

func TestUserRepository_Counts(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	dept := &model.Department{Code: "ops", Name: "Ops", IsActive: true}
	require.NoError(t, r.depts.Create(ctx, dept))
	pos := &model.Position{Code: "eng", Name: "Engineer", DepartmentID: dept.ID, IsActive: true}
	require.NoError(t, r.pos.Create(ctx, pos))

	for _, u := range []struct {
		name   string
		active bool
	}{{"a", true}, {"b", true}, {"c", false}} {
		user := &model.User{Username: u.name, Email: u.name + "@x.io", Password: "x", IsActive: u.active, DepartmentID: &dept.ID, PositionID: &pos.ID}
		require.NoError(t, r.users.Create(ctx, user))
	}

	byDept, err := r.users.CountActiveByDepartment(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byDept[dept.ID])

	byPos, err := r.users.CountByPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byPos[pos.ID])

	n, err := r.users.CountInDepartment(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = r.pos.CountInDepartment(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_ListFilters(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	newUser(t, r, "alice", true)
	newUser(t, r, "alfred", false)
	newUser(t, r, "bob", true)

	users, total, err := r.users.List(ctx, repository.UserFilter{Search: "AL"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	active := true
	users, total, err = r.users.List(ctx, repository.UserFilter{Search: "al", IsActive: &active}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	users, total, err = r.users.List(ctx, repository.UserFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 1)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u := &model.User{Username: "ghost", Email: "ghost@example.com", Password: "x", IsActive: true}
		if err := r.users.Create(txCtx, u); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = r.users.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAuditRepository_LogAndList(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	actor := newUser(t, r, "admin", true)

	require.NoError(t, r.audit.Log(ctx, &model.AuditLog{UserID: &actor.ID, Action: model.ActionCreateRole, EntityID: "r1", EntityName: "Editor", Details: "{}"}))
	require.NoError(t, r.audit.Log(ctx, &model.AuditLog{Action: model.ActionDeleteRole, EntityID: "r2", EntityName: "Viewer", Details: "{}"}))

	logs, total, err := r.audit.List(ctx, repository.AuditFilter{Action: model.ActionCreateRole}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].User)
	assert.Equal(t, "admin", logs[0].User.Username)

	_, total, err = r.audit.List(ctx, repository.AuditFilter{EntityName: "view"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
