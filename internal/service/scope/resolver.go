// Package scope resolves the personal-or-family boundary of a request.
package scope

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
)

// Caller is the authenticated identity handed over by the auth layer.
type Caller struct {
	UserID        primitive.ObjectID
	FamilyGroupID *primitive.ObjectID
}

// CallerOf builds a Caller from a stored user.
func CallerOf(u models.User) Caller {
	return Caller{UserID: u.ID, FamilyGroupID: u.FamilyGroupID}
}

// Resolver turns a caller and a view flag into a models.Scope.
type Resolver struct {
	households repository.HouseholdStore
	logger     *zap.Logger
}

// NewResolver wires a resolver.
func NewResolver(households repository.HouseholdStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{households: households, logger: logger}
}

// Resolve returns the personal scope, or the family scope after checking the
// caller belongs to their group.
func (r *Resolver) Resolve(ctx context.Context, caller Caller, wantsFamilyView bool) (models.Scope, error) {
	if !wantsFamilyView {
		return models.PersonalScope(caller.UserID), nil
	}
	group, _, err := r.membership(ctx, caller)
	if err != nil {
		return models.Scope{}, err
	}
	return models.FamilyScope(group.ID), nil
}

// RequireOwner checks the caller may perform owner-only actions in scope.
// Personal scopes always pass.
func (r *Resolver) RequireOwner(ctx context.Context, caller Caller, scope models.Scope) error {
	if !scope.IsFamily() {
		return nil
	}
	group, member, err := r.membership(ctx, caller)
	if err != nil {
		return err
	}
	if group.ID != scope.GroupID {
		return fmt.Errorf("%w: not a member of this family", models.ErrPermissionDenied)
	}
	if member.Role != models.RoleOwner {
		return fmt.Errorf("%w: family owner role required", models.ErrPermissionDenied)
	}
	return nil
}

// Recipients lists the users who receive alerts for a document in scope.
func (r *Resolver) Recipients(ctx context.Context, scope models.Scope) ([]primitive.ObjectID, error) {
	switch scope.Kind {
	case models.ScopePersonal:
		return []primitive.ObjectID{scope.UserID}, nil
	case models.ScopeFamily:
		group, err := r.households.FindFamilyGroup(ctx, scope.GroupID)
		if err != nil {
			return nil, err
		}
		return group.MemberIDs(), nil
	default:
		return nil, fmt.Errorf("%w: document has no owner", models.ErrValidation)
	}
}

func (r *Resolver) membership(ctx context.Context, caller Caller) (*models.FamilyGroup, models.FamilyMember, error) {
	if caller.FamilyGroupID == nil {
		return nil, models.FamilyMember{}, fmt.Errorf("%w: user has no family group", models.ErrPermissionDenied)
	}

	group, err := r.households.FindFamilyGroup(ctx, *caller.FamilyGroupID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.FamilyMember{}, fmt.Errorf("%w: family group does not exist", models.ErrPermissionDenied)
		}
		return nil, models.FamilyMember{}, fmt.Errorf("load family group: %w", err)
	}

	member, ok := group.Member(caller.UserID)
	if !ok {
		r.logger.Warn("family view refused for non-member",
			zap.Stringer("user_id", caller.UserID),
			zap.Stringer("group_id", group.ID))
		return nil, models.FamilyMember{}, fmt.Errorf("%w: not a member of this family", models.ErrPermissionDenied)
	}
	return group, member, nil
}
