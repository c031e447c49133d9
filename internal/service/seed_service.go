package service

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/logger"
	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/security"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type catalogEntry struct {
	Code   string
	Name   string
	Type   string
	Parent string
}

func catalogModule(code, name string) catalogEntry {
	return catalogEntry{Code: code, Name: name, Type: model.PermissionTypeMenu}
}

func catalogAction(parent, act, name string) catalogEntry {
	return catalogEntry{Code: parent + ":" + act, Name: name, Type: model.PermissionTypeAPI, Parent: parent}
}

// baseCatalog lists modules before their actions so parents always exist first
var baseCatalog = []catalogEntry{
	catalogModule("system", "System management"),
	catalogModule("user", "User management"),
	catalogAction("user", "list", "View users"),
	catalogAction("user", "create", "Create users"),
	catalogAction("user", "update", "Update users"),
	catalogAction("user", "delete", "Delete users"),
	catalogModule("role", "Role management"),
	catalogAction("role", "list", "View roles"),
	catalogAction("role", "create", "Create roles"),
	catalogAction("role", "update", "Update roles"),
	catalogAction("role", "delete", "Delete roles"),
	catalogAction("role", "assign", "Assign roles and permissions"),
	catalogModule("permission", "Permission management"),
	catalogAction("permission", "list", "View permissions"),
	catalogAction("permission", "create", "Create permissions"),
	catalogAction("permission", "update", "Update permissions"),
	catalogAction("permission", "delete", "Delete permissions"),
	catalogModule("department", "Department management"),
	catalogAction("department", "list", "View departments"),
	catalogAction("department", "create", "Create departments"),
	catalogAction("department", "update", "Update departments"),
	catalogAction("department", "delete", "Delete departments"),
	catalogModule("position", "Position management"),
	catalogAction("position", "list", "View positions"),
	catalogAction("position", "create", "Create positions"),
	catalogAction("position", "update", "Update positions"),
	catalogAction("position", "delete", "Delete positions"),
	catalogModule("profile", "Profile"),
	catalogAction("profile", "view", "View own profile"),
	catalogAction("profile", "update", "Update own profile"),
	catalogAction("profile", "password", "Change own password"),
	catalogModule("audit", "Audit trail"),
	catalogAction("audit", "list", "View audit logs"),
}

type seedRole struct {
	Code        string
	Name        string
	Description string
	Grants      []string
}

// Roles are granted whole modules; grants apply only when the role is first created
var baseRoles = []seedRole{
	{"super_admin", "Super administrator", "Holds every module", []string{"system", "user", "role", "permission", "department", "position", "profile", "audit"}},
	{"admin", "Administrator", "Manages users, roles and the organization", []string{"user", "role", "department", "position", "profile", "audit"}},
	{"user", "User", "Own profile only", []string{"profile"}},
}

type seedDepartment struct {
	Code, Name, Description, Parent string
}

var baseDepartments = []seedDepartment{
	{"company", "Head office", "Head office", ""},
	{"tech", "Engineering", "Research and development", "company"},
	{"market", "Marketing", "Marketing and sales", "company"},
	{"admin_dept", "Administration", "General administration", "company"},
}

type seedPosition struct {
	Code, Name, Description, Department string
}

var basePositions = []seedPosition{
	{"ceo", "CEO", "Chief executive officer", "company"},
	{"cto", "CTO", "Chief technology officer", "tech"},
	{"senior_dev", "Senior developer", "Senior software engineer", "tech"},
	{"marketing_director", "Marketing director", "Head of marketing", "market"},
	{"admin_specialist", "Administrative specialist", "Office administration", "admin_dept"},
}

// AdminAccount is the optional initial superuser; an empty Password skips it
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// Seeder installs the base catalog, roles and organization. Running it again changes nothing.
type Seeder struct {
	perms     repository.PermissionRepository
	roles     repository.RoleRepository
	depts     repository.DepartmentRepository
	positions repository.PositionRepository
	users     repository.UserRepository
	tx        repository.TransactionManager
	hasher    *security.PasswordHasher
	log       logrus.FieldLogger
}

func NewSeeder(
	perms repository.PermissionRepository,
	roles repository.RoleRepository,
	depts repository.DepartmentRepository,
	positions repository.PositionRepository,
	users repository.UserRepository,
	tx repository.TransactionManager,
	hasher *security.PasswordHasher,
	log logrus.FieldLogger,
) *Seeder {
	if log == nil {
		log = logger.Discard()
	}
	return &Seeder{perms: perms, roles: roles, depts: depts, positions: positions, users: users, tx: tx, hasher: hasher, log: log}
}

func (s *Seeder) Seed(ctx context.Context, admin AdminAccount) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		catalog, err := s.seedPermissions(txCtx)
		if err != nil {
			return fmt.Errorf("seed permissions: %w", err)
		}
		if err := s.seedRoles(txCtx, catalog); err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		if err := s.seedOrganization(txCtx); err != nil {
			return fmt.Errorf("seed organization: %w", err)
		}
		if err := s.seedAdmin(txCtx, admin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		return nil
	})
}

func (s *Seeder) seedPermissions(ctx context.Context) (map[string]model.Permission, error) {
	byCode := make(map[string]model.Permission, len(baseCatalog))
	for i, e := range baseCatalog {
		resource, act := splitCode(e.Code)
		perm := model.Permission{
			Code:      e.Code,
			Name:      e.Name,
			Resource:  resource,
			Action:    act,
			Type:      e.Type,
			SortOrder: i,
			IsActive:  true,
		}
		if e.Parent != "" {
			parent, ok := byCode[e.Parent]
			if !ok {
				return nil, fmt.Errorf("catalog entry %q precedes its parent %q", e.Code, e.Parent)
			}
			perm.ParentID = &parent.ID
		}
		if err := s.perms.FindOrCreate(ctx, &perm); err != nil {
			return nil, err
		}
		byCode[e.Code] = perm
	}
	s.log.WithField("entries", len(byCode)).Debug("permission catalog ensured")
	return byCode, nil
}

func (s *Seeder) seedRoles(ctx context.Context, perms map[string]model.Permission) error {
	for i, r := range baseRoles {
		if _, err := s.roles.FindByCode(ctx, r.Code); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		role := &model.Role{
			Code:        r.Code,
			Name:        r.Name,
			Description: r.Description,
			IsActive:    true,
			IsSystem:    true,
			SortOrder:   i,
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
		grantIDs := make([]uuid.UUID, 0, len(r.Grants))
		for _, code := range r.Grants {
			p, ok := perms[code]
			if !ok {
				return fmt.Errorf("role %q grants unknown permission %q", r.Code, code)
			}
			grantIDs = append(grantIDs, p.ID)
		}
		if err := s.roles.ReplacePermissions(ctx, role.ID, grantIDs); err != nil {
			return err
		}
		s.log.WithField("role", r.Code).Info("seeded role")
	}
	return nil
}

func (s *Seeder) seedOrganization(ctx context.Context) error {
	deptByCode := make(map[string]model.Department, len(baseDepartments))
	for i, d := range baseDepartments {
		existing, err := s.depts.FindByCode(ctx, d.Code)
		if err == nil {
			deptByCode[d.Code] = *existing
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		dept := model.Department{Code: d.Code, Name: d.Name, Description: d.Description, SortOrder: i, IsActive: true}
		if d.Parent != "" {
			parent, ok := deptByCode[d.Parent]
			if !ok {
				return fmt.Errorf("department %q precedes its parent %q", d.Code, d.Parent)
			}
			dept.ParentID = &parent.ID
		}
		if err := s.depts.Create(ctx, &dept); err != nil {
			return err
		}
		deptByCode[d.Code] = dept
	}

	for i, p := range basePositions {
		if _, err := s.positions.FindByCode(ctx, p.Code); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		dept, ok := deptByCode[p.Department]
		if !ok {
			return fmt.Errorf("position %q references unknown department %q", p.Code, p.Department)
		}
		pos := model.Position{Code: p.Code, Name: p.Name, Description: p.Description, SortOrder: i, DepartmentID: dept.ID, IsActive: true}
		if err := s.positions.Create(ctx, &pos); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedAdmin(ctx context.Context, admin AdminAccount) error {
	if admin.Password == "" {
		return nil
	}
	if _, err := s.users.FindByUsername(ctx, admin.Username); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	digest, err := s.hasher.Hash(admin.Password)
	if err != nil {
		return err
	}
	user := &model.User{
		Username:    admin.Username,
		Email:       admin.Email,
		Password:    digest,
		Nickname:    "Administrator",
		IsSuperuser: true,
		IsActive:    true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	if role, err := s.roles.FindByCode(ctx, "super_admin"); err == nil {
		if err := s.users.ReplaceRoles(ctx, user.ID, []uuid.UUID{role.ID}); err != nil {
			return err
		}
	}
	s.log.WithField("username", admin.Username).Info("seeded superuser")
	return nil
}
