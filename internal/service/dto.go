package service

import (
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
)

const timeLayout = time.RFC3339

type RoleBrief struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// UserResponse is a User without sensitive data (password digest)
type UserResponse struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Nickname       string      `json:"nickname"`
	Avatar         string      `json:"avatar"`
	Phone          string      `json:"phone"`
	IsSuperuser    bool        `json:"is_superuser"`
	IsActive       bool        `json:"is_active"`
	DepartmentID   *string     `json:"department_id"`
	DepartmentName string      `json:"department_name,omitempty"`
	PositionID     *string     `json:"position_id"`
	PositionName   string      `json:"position_name,omitempty"`
	Roles          []RoleBrief `json:"roles"`
	LastLoginAt    *string     `json:"last_login_at"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toUserResponse(u *model.User) UserResponse {
	res := UserResponse{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		Nickname:     u.Nickname,
		Avatar:       u.Avatar,
		Phone:        u.Phone,
		IsSuperuser:  u.IsSuperuser,
		IsActive:     u.IsActive,
		DepartmentID: optionalID(u.DepartmentID),
		PositionID:   optionalID(u.PositionID),
		Roles:        make([]RoleBrief, 0, len(u.Roles)),
		CreatedAt:    u.CreatedAt.Format(timeLayout),
		UpdatedAt:    u.UpdatedAt.Format(timeLayout),
	}
	if u.Department != nil {
		res.DepartmentName = u.Department.Name
	}
	if u.Position != nil {
		res.PositionName = u.Position.Name
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.Format(timeLayout)
		res.LastLoginAt = &s
	}
	for _, r := range u.Roles {
		res.Roles = append(res.Roles, RoleBrief{ID: r.ID.String(), Code: r.Code, Name: r.Name, IsActive: r.IsActive})
	}
	return res
}

type PermissionResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Resource    string  `json:"resource"`
	Action      string  `json:"action"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	SortOrder   int     `json:"sort_order"`
	ParentID    *string `json:"parent_id"`
	IsActive    bool    `json:"is_active"`
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Type:        p.Type,
		Description: p.Description,
		SortOrder:   p.SortOrder,
		ParentID:    optionalID(p.ParentID),
		IsActive:    p.IsActive,
	}
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsActive    bool                 `json:"is_active"`
	IsSystem    bool                 `json:"is_system"`
	SortOrder   int                  `json:"sort_order"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		IsSystem:    r.IsSystem,
		SortOrder:   r.SortOrder,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format(timeLayout),
	}
}

type DepartmentResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SortOrder   int     `json:"sort_order"`
	ParentID    *string `json:"parent_id"`
	LeaderID    *string `json:"leader_id"`
	IsActive    bool    `json:"is_active"`
}

func toDepartmentResponse(d model.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID.String(),
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		SortOrder:   d.SortOrder,
		ParentID:    optionalID(d.ParentID),
		LeaderID:    optionalID(d.LeaderID),
		IsActive:    d.IsActive,
	}
}

type PositionResponse struct {
	ID             string `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	SortOrder      int    `json:"sort_order"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name,omitempty"`
	IsActive       bool   `json:"is_active"`
	UserCount      int64  `json:"user_count"`
}

func toPositionResponse(p model.Position, userCount int64) PositionResponse {
	res := PositionResponse{
		ID:           p.ID.String(),
		Code:         p.Code,
		Name:         p.Name,
		Description:  p.Description,
		SortOrder:    p.SortOrder,
		DepartmentID: p.DepartmentID.String(),
		IsActive:     p.IsActive,
		UserCount:    userCount,
	}
	if p.Department != nil {
		res.DepartmentName = p.Department.Name
	}
	return res
}

// parseID parses a path or body identifier, reporting ErrValidation on garbage
func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("malformed %s id %q", what, raw)
	}
	return id, nil
}

func parseOptionalID(raw *string, what string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(raw []string, what string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(r, what)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
