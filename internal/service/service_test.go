package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"backoffice/internal/authz"
	"backoffice/internal/hierarchy"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/security"
	"backoffice/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type notification struct {
	users []uuid.UUID
	event string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyUsers(userIDs []uuid.UUID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{users: userIDs, event: event})
}

func (n *recordingNotifier) last() (notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return notification{}, false
	}
	return n.sent[len(n.sent)-1], true
}

type harness struct {
	db       *gorm.DB
	notifier *recordingNotifier
	resolver *authz.Resolver
	codec    *security.TokenCodec

	users     repository.UserRepository
	roleRepo  repository.RoleRepository
	permRepo  repository.PermissionRepository
	deptRepo  repository.DepartmentRepository
	posRepo   repository.PositionRepository
	auditRepo repository.AuditRepository

	auth    AuthService
	userSvc UserService
	roles   RoleService
	perms   PermissionService
	depts   DepartmentService
	pos     PositionService
	profile ProfileService
	audit   AuditService
	seeder  *Seeder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)

	h := &harness{db: db, notifier: &recordingNotifier{}}
	h.users = repository.NewUserRepository(db)
	h.roleRepo = repository.NewRoleRepository(db)
	h.permRepo = repository.NewPermissionRepository(db)
	h.deptRepo = repository.NewDepartmentRepository(db)
	h.posRepo = repository.NewPositionRepository(db)
	h.auditRepo = repository.NewAuditRepository(db)
	tx := repository.NewTransactionManager(db)

	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	codec, err := security.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), "HS256", 15*time.Minute)
	require.NoError(t, err)
	h.codec = codec
	h.resolver = authz.NewResolver(h.permRepo, h.roleRepo)

	h.auth = NewAuthService(h.users, hasher, codec, h.resolver, nil, nil, nil)
	h.userSvc = NewUserService(h.users, h.roleRepo, h.deptRepo, h.posRepo, h.auditRepo, tx, hasher, h.notifier)
	h.roles = NewRoleService(h.roleRepo, h.permRepo, h.users, h.auditRepo, tx, h.notifier)
	h.perms = NewPermissionService(h.permRepo, h.auditRepo, tx)
	h.depts = NewDepartmentService(h.deptRepo, h.posRepo, h.users, h.auditRepo, tx)
	h.pos = NewPositionService(h.posRepo, h.deptRepo, h.users, h.auditRepo, tx)
	h.profile = NewProfileService(h.users, h.auditRepo, tx, hasher)
	h.audit = NewAuditService(h.auditRepo)
	h.seeder = NewSeeder(h.permRepo, h.roleRepo, h.deptRepo, h.posRepo, h.users, tx, hasher, nil)
	return h
}

func (h *harness) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, h.seeder.Seed(context.Background(), AdminAccount{
		Username: "admin", Email: "admin@example.com", Password: "admin-password",
	}))
}

func (h *harness) permID(t *testing.T, code string) string {
	t.Helper()
	p, err := h.permRepo.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return p.ID.String()
}

func (h *harness) deptID(t *testing.T, code string) string {
	t.Helper()
	d, err := h.deptRepo.FindByCode(context.Background(), code)
	require.NoError(t, err)
	return d.ID.String()
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestRegisterLoginThenAuthorize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	registered, err := h.auth.Register(ctx, RegisterRequest{Username: "alice", Email: "Alice@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.Email)
	assert.False(t, registered.IsSuperuser)

	tok, err := h.auth.Login(ctx, LoginRequest{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Empty(t, tok.Permissions)
	assert.NotNil(t, tok.User.LastLoginAt)

	sess, err := h.codec.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, sess.PrincipalID.String())

	user, err := h.users.FindActiveByID(ctx, sess.PrincipalID)
	require.NoError(t, err)
	decision, err := h.resolver.Authorize(ctx, user, authz.Require("user:list", "user:create"))
	require.NoError(t, err)
	assert.False(t, decision.Allowed())
	assert.Equal(t, []string{"user:create", "user:list"}, decision.Missing)
}

func TestLogin_MixedCaseEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, RegisterRequest{Username: "carol", Email: "Carol@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	for _, login := range []string{"Carol@Example.com", "carol@example.com", "  CAROL@EXAMPLE.COM "} {
		tok, err := h.auth.Login(ctx, LoginRequest{Username: login, Password: "s3cret-pass"})
		require.NoError(t, err, login)
		assert.Equal(t, "carol", tok.User.Username)
	}

	// usernames stay case-sensitive
	_, err = h.auth.Login(ctx, LoginRequest{Username: "Carol", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_EveryRejectionLooksTheSame(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, LoginRequest{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.auth.Login(ctx, LoginRequest{Username: "bob", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// email works as the login too
	_, err = h.auth.Login(ctx, LoginRequest{Username: "bob@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	bob, err := h.users.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, h.db.Model(&model.User{}).Where("id = ?", bob.ID).Update("is_active", false).Error)

	_, err = h.auth.Login(ctx, LoginRequest{Username: "bob", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Conflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = h.auth.Register(ctx, RegisterRequest{Username: "carol", Email: "other@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = h.auth.Register(ctx, RegisterRequest{Username: "carol2", Email: "CAROL@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSeed_IdempotentAndAdminHoldsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)
	h.seed(t)

	perms, err := h.perms.ListPermissions(ctx)
	require.NoError(t, err)
	assert.Len(t, perms, len(baseCatalog))

	var roles int64
	require.NoError(t, h.db.Model(&model.Role{}).Count(&roles).Error)
	assert.EqualValues(t, len(baseRoles), roles)

	var depts, positions int64
	require.NoError(t, h.db.Model(&model.Department{}).Count(&depts).Error)
	require.NoError(t, h.db.Model(&model.Position{}).Count(&positions).Error)
	assert.EqualValues(t, len(baseDepartments), depts)
	assert.EqualValues(t, len(basePositions), positions)

	tok, err := h.auth.Login(ctx, LoginRequest{Username: "admin", Password: "admin-password"})
	require.NoError(t, err)
	assert.Len(t, tok.Permissions, len(baseCatalog))
	assert.True(t, tok.User.IsSuperuser)
}

func TestSeededRoleGrantsWholeModules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	member, err := h.roleRepo.FindByCode(ctx, "user")
	require.NoError(t, err)

	created, err := h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "dave", Email: "dave@example.com", Password: "password1", RoleIDs: []string{member.ID.String()},
	})
	require.NoError(t, err)

	uid := uuid.MustParse(created.ID)
	user, err := h.users.FindByID(ctx, uid)
	require.NoError(t, err)

	d, err := h.resolver.Authorize(ctx, user, authz.Require("profile:update"))
	require.NoError(t, err)
	assert.True(t, d.Allowed())

	d, err = h.resolver.Authorize(ctx, user, authz.Require("user:list"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user:list"}, d.Missing)
}

func TestRolePermissionReplaceNotifiesHolders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	role, err := h.roles.CreateRole(ctx, uuid.Nil, CreateRoleRequest{
		Code: "auditor", Name: "Auditor", PermissionIDs: []string{h.permID(t, "audit:list")},
	})
	require.NoError(t, err)
	require.Len(t, role.Permissions, 1)

	user, err := h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "erin", Email: "erin@example.com", Password: "password1", RoleIDs: []string{role.ID},
	})
	require.NoError(t, err)

	updated, err := h.roles.UpdateRolePermissions(ctx, uuid.Nil, role.ID, UpdateRolePermissionsRequest{
		PermissionIDs: []string{h.permID(t, "user:list"), h.permID(t, "role:list")},
	})
	require.NoError(t, err)
	codes := []string{}
	for _, p := range updated.Permissions {
		codes = append(codes, p.Code)
	}
	assert.ElementsMatch(t, []string{"user:list", "role:list"}, codes)

	n, ok := h.notifier.last()
	require.True(t, ok)
	assert.Equal(t, EventPermissionsChanged, n.event)
	assert.Equal(t, []uuid.UUID{uuid.MustParse(user.ID)}, n.users)

	_, err = h.roles.UpdateRolePermissions(ctx, uuid.Nil, role.ID, UpdateRolePermissionsRequest{
		PermissionIDs: []string{uuid.NewString()},
	})
	assert.ErrorIs(t, err, ErrValidation)

	logs, total, err := h.audit.GetAuditLogs(ctx, repository.AuditFilter{Action: model.ActionReplaceRolePermissions}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, logs, 1)
}

func TestDeleteRole_SystemRoleRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	sa, err := h.roleRepo.FindByCode(ctx, "super_admin")
	require.NoError(t, err)
	err = h.roles.DeleteRole(ctx, uuid.Nil, sa.ID.String())
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	custom, err := h.roles.CreateRole(ctx, uuid.Nil, CreateRoleRequest{Code: "temp", Name: "Temp"})
	require.NoError(t, err)
	require.NoError(t, h.roles.DeleteRole(ctx, uuid.Nil, custom.ID))

	_, err = h.roles.GetRole(ctx, custom.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.roles.CreateRole(ctx, uuid.Nil, CreateRoleRequest{Code: "admin", Name: "Dup"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPermissionTree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	tree, err := h.perms.GetPermissionTree(ctx)
	require.NoError(t, err)

	roots := map[string]PermissionTreeNode{}
	for _, n := range tree {
		roots[n.Code] = n
	}
	assert.Len(t, roots, 8)
	require.Contains(t, roots, "user")
	children := []string{}
	for _, c := range roots["user"].Children {
		children = append(children, c.Code)
	}
	assert.Equal(t, []string{"user:list", "user:create", "user:update", "user:delete"}, children)
	assert.Empty(t, roots["system"].Children)
}

func TestPermissionDeleteAndReparent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	err := h.perms.DeletePermission(ctx, uuid.Nil, h.permID(t, "user"))
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// moving a module under its own child would close a loop
	_, err = h.perms.UpdatePermission(ctx, uuid.Nil, h.permID(t, "user"), UpdatePermissionRequest{ParentID: strPtr(h.permID(t, "user:list"))})
	assert.ErrorIs(t, err, ErrValidation)

	moved, err := h.perms.UpdatePermission(ctx, uuid.Nil, h.permID(t, "user"), UpdatePermissionRequest{ParentID: strPtr(h.permID(t, "system"))})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)

	created, err := h.perms.CreatePermission(ctx, uuid.Nil, CreatePermissionRequest{Code: "user:export", Name: "Export users", ParentID: strPtr(h.permID(t, "user"))})
	require.NoError(t, err)
	assert.Equal(t, "user", created.Resource)
	assert.Equal(t, "export", created.Action)
	assert.Equal(t, model.PermissionTypeAPI, created.Type)
	assert.True(t, created.IsActive)

	_, err = h.perms.CreatePermission(ctx, uuid.Nil, CreatePermissionRequest{Code: "user:export", Name: "again"})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, h.perms.DeletePermission(ctx, uuid.Nil, created.ID))
}

func TestDepartmentTreeCountsAndLeader(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	tech := h.deptID(t, "tech")
	lead, err := h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "frank", Email: "frank@example.com", Password: "password1", Nickname: "Frank", DepartmentID: &tech,
	})
	require.NoError(t, err)
	_, err = h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "grace", Email: "grace@example.com", Password: "password1", DepartmentID: &tech, IsActive: boolPtr(false),
	})
	require.NoError(t, err)

	_, err = h.depts.UpdateDepartment(ctx, uuid.Nil, tech, UpdateDepartmentRequest{LeaderID: &lead.ID})
	require.NoError(t, err)

	tree, err := h.depts.GetDepartmentTree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	company := tree[0]
	assert.Equal(t, "company", company.Code)
	assert.Len(t, company.Children, 3)
	assert.EqualValues(t, 0, company.UserCount)
	assert.EqualValues(t, 1, company.TotalUserCount)

	var techNode DepartmentTreeNode
	for _, c := range company.Children {
		if c.Code == "tech" {
			techNode = c
		}
	}
	assert.EqualValues(t, 1, techNode.UserCount, "inactive members are not counted")
	require.NotNil(t, techNode.LeaderName)
	assert.Equal(t, "Frank", *techNode.LeaderName)
}

func TestDepartmentReparentCycleRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	company, tech := h.deptID(t, "company"), h.deptID(t, "tech")

	_, err := h.depts.UpdateDepartment(ctx, uuid.Nil, company, UpdateDepartmentRequest{ParentID: &tech})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.depts.UpdateDepartment(ctx, uuid.Nil, tech, UpdateDepartmentRequest{ParentID: &tech})
	assert.ErrorIs(t, err, ErrValidation)

	// detaching to the top level is always fine
	detached, err := h.depts.UpdateDepartment(ctx, uuid.Nil, tech, UpdateDepartmentRequest{ParentID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, detached.ParentID)
}

func TestDepartmentTreeReportsCorruptParents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := &model.Department{Code: "loop-a", Name: "Loop A", IsActive: true}
	b := &model.Department{Code: "loop-b", Name: "Loop B", IsActive: true}
	require.NoError(t, h.deptRepo.Create(ctx, a))
	require.NoError(t, h.deptRepo.Create(ctx, b))

	// written behind the service's back, which refuses cycles
	require.NoError(t, h.db.Model(&model.Department{}).Where("id = ?", a.ID).Update("parent_id", b.ID).Error)
	require.NoError(t, h.db.Model(&model.Department{}).Where("id = ?", b.ID).Update("parent_id", a.ID).Error)

	tree, err := h.depts.GetDepartmentTree(ctx)
	assert.ErrorIs(t, err, hierarchy.ErrIntegrity)
	assert.Nil(t, tree)
}

func TestDepartmentDeleteGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	err := h.depts.DeleteDepartment(ctx, uuid.Nil, h.deptID(t, "company"))
	assert.ErrorIs(t, err, ErrForbiddenOperation, "has sub-departments")

	err = h.depts.DeleteDepartment(ctx, uuid.Nil, h.deptID(t, "tech"))
	assert.ErrorIs(t, err, ErrForbiddenOperation, "has positions")

	empty, err := h.depts.CreateDepartment(ctx, uuid.Nil, CreateDepartmentRequest{Code: "lab", Name: "Lab", ParentID: strPtr(h.deptID(t, "tech"))})
	require.NoError(t, err)
	_, err = h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "heidi", Email: "heidi@example.com", Password: "password1", DepartmentID: &empty.ID,
	})
	require.NoError(t, err)
	err = h.depts.DeleteDepartment(ctx, uuid.Nil, empty.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation, "has users")

	spare, err := h.depts.CreateDepartment(ctx, uuid.Nil, CreateDepartmentRequest{Code: "spare", Name: "Spare"})
	require.NoError(t, err)
	require.NoError(t, h.depts.DeleteDepartment(ctx, uuid.Nil, spare.ID))
}

func TestPositionsCountAndDeleteGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	tech := h.deptID(t, "tech")
	pos, err := h.pos.CreatePosition(ctx, uuid.Nil, CreatePositionRequest{Code: "intern", Name: "Intern", DepartmentID: tech})
	require.NoError(t, err)
	assert.Equal(t, "Engineering", pos.DepartmentName)

	_, err = h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "ivan", Email: "ivan@example.com", Password: "password1", DepartmentID: &tech, PositionID: &pos.ID,
	})
	require.NoError(t, err)

	deptID := uuid.MustParse(tech)
	list, total, err := h.pos.ListPositions(ctx, repository.PositionFilter{DepartmentID: &deptID}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	for _, p := range list {
		if p.Code == "intern" {
			assert.EqualValues(t, 1, p.UserCount)
		}
	}

	err = h.pos.DeletePosition(ctx, uuid.Nil, pos.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// a position from another department is rejected for the user
	market := h.deptID(t, "market")
	_, err = h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{
		Username: "judy", Email: "judy@example.com", Password: "password1", DepartmentID: &market, PositionID: &pos.ID,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserSelfProtection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	admin, err := h.users.FindByUsername(ctx, "admin")
	require.NoError(t, err)

	_, err = h.userSvc.UpdateUser(ctx, admin.ID, admin.ID.String(), UpdateUserRequest{IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	_, err = h.userSvc.UpdateUser(ctx, admin.ID, admin.ID.String(), UpdateUserRequest{IsSuperuser: boolPtr(false)})
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	assert.ErrorIs(t, h.userSvc.DeleteUser(ctx, admin.ID, admin.ID.String()), ErrForbiddenOperation)

	other, err := h.userSvc.CreateUser(ctx, admin.ID, CreateUserRequest{Username: "kate", Email: "kate@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = h.userSvc.UpdateUser(ctx, admin.ID, other.ID, UpdateUserRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	n, ok := h.notifier.last()
	require.True(t, ok)
	assert.Equal(t, EventAccountDisabled, n.event)

	require.NoError(t, h.userSvc.DeleteUser(ctx, admin.ID, other.ID))
	_, err = h.userSvc.GetUser(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignRolesSkipsInactive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	active, err := h.roles.CreateRole(ctx, uuid.Nil, CreateRoleRequest{Code: "viewer", Name: "Viewer"})
	require.NoError(t, err)
	inactive, err := h.roles.CreateRole(ctx, uuid.Nil, CreateRoleRequest{Code: "retired", Name: "Retired", IsActive: boolPtr(false)})
	require.NoError(t, err)

	user, err := h.userSvc.CreateUser(ctx, uuid.Nil, CreateUserRequest{Username: "leo", Email: "leo@example.com", Password: "password1"})
	require.NoError(t, err)

	updated, err := h.userSvc.AssignRoles(ctx, uuid.Nil, user.ID, AssignRolesRequest{RoleIDs: []string{active.ID, inactive.ID}})
	require.NoError(t, err)
	require.Len(t, updated.Roles, 1)
	assert.Equal(t, "viewer", updated.Roles[0].Code)

	_, err = h.userSvc.AssignRoles(ctx, uuid.Nil, user.ID, AssignRolesRequest{RoleIDs: []string{"not-a-uuid"}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg, err := h.auth.Register(ctx, RegisterRequest{Username: "mallory", Email: "mallory@example.com", Password: "first-pass"})
	require.NoError(t, err)
	_, err = h.auth.Register(ctx, RegisterRequest{Username: "niaj", Email: "niaj@example.com", Password: "first-pass"})
	require.NoError(t, err)
	uid := uuid.MustParse(reg.ID)

	updated, err := h.profile.UpdateProfile(ctx, uid, UpdateProfileRequest{Nickname: strPtr("Mal")})
	require.NoError(t, err)
	assert.Equal(t, "Mal", updated.Nickname)

	_, err = h.profile.UpdateProfile(ctx, uid, UpdateProfileRequest{Email: strPtr("niaj@example.com")})
	assert.ErrorIs(t, err, ErrConflict)

	err = h.profile.ChangePassword(ctx, uid, ChangePasswordRequest{OldPassword: "wrong", NewPassword: "second-pass"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrInvalidCredentials, "a wrong current password must not look like an expired session")

	require.NoError(t, h.profile.ChangePassword(ctx, uid, ChangePasswordRequest{OldPassword: "first-pass", NewPassword: "second-pass"}))
	_, err = h.auth.Login(ctx, LoginRequest{Username: "mallory", Password: "first-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.auth.Login(ctx, LoginRequest{Username: "mallory", Password: "second-pass"})
	require.NoError(t, err)

	_, total, err := h.audit.GetAuditLogs(ctx, repository.AuditFilter{Action: model.ActionChangePassword}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestMeListsActiveRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed(t)

	admin, err := h.users.FindByUsername(ctx, "admin")
	require.NoError(t, err)

	me, err := h.auth.Me(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"super_admin"}, me.Roles)
	assert.Len(t, me.Permissions, len(baseCatalog))
}
