package authz

import (
	"context"
	"errors"
	"fmt"

	"backoffice/internal/model"

	"github.com/google/uuid"
)

// ErrPermissionDenied is returned (wrapped in *DeniedError) when required codes are missing
var ErrPermissionDenied = errors.New("insufficient permission")

// PermissionCodeLister lists the codes of every active permission (superuser bypass)
type PermissionCodeLister interface {
	ListActiveCodes(ctx context.Context) ([]string, error)
}

// UserRoleLister loads the roles assigned to a user with their permissions preloaded
type UserRoleLister interface {
	ListRolesForUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
}

// Resolver computes effective permission sets. It holds no state between calls.
type Resolver struct {
	permissions PermissionCodeLister
	roles       UserRoleLister
}

// NewResolver wires the resolver to its two lookups
func NewResolver(permissions PermissionCodeLister, roles UserRoleLister) *Resolver {
	return &Resolver{permissions: permissions, roles: roles}
}

// Resolve returns the effective permission codes of user.
// Superusers get every active permission regardless of role assignments; everyone else gets
// the union of active permissions over their active roles. No roles resolves to the empty set.
func (r *Resolver) Resolve(ctx context.Context, user *model.User) (PermissionSet, error) {
	if user == nil {
		return NewPermissionSet(), nil
	}

	if user.IsSuperuser {
		codes, err := r.permissions.ListActiveCodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active permissions: %w", err)
		}
		return NewPermissionSet(codes...), nil
	}

	roles, err := r.roles.ListRolesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles for user %s: %w", user.ID, err)
	}

	set := NewPermissionSet()
	for _, role := range roles {
		if !role.IsActive {
			continue
		}
		for _, perm := range role.Permissions {
			if perm.IsActive && perm.Code != "" {
				set[perm.Code] = struct{}{}
			}
		}
	}
	return set, nil
}

// Authorize resolves user and checks it against req
func (r *Resolver) Authorize(ctx context.Context, user *model.User, req Requirement) (Decision, error) {
	granted, err := r.Resolve(ctx, user)
	if err != nil {
		return Decision{}, err
	}
	return Authorize(granted, req), nil
}
