package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScopeKind tags which ownership mode a Scope selects.
type ScopeKind string

const (
	ScopePersonal ScopeKind = "personal"
	ScopeFamily   ScopeKind = "family"
)

// Scope is the resolved personal-or-family boundary every query and mutation
// runs in. Exactly one of UserID (personal) or GroupID (family) is meaningful.
type Scope struct {
	Kind    ScopeKind
	UserID  primitive.ObjectID
	GroupID primitive.ObjectID
}

// PersonalScope selects documents owned by userID with no group.
func PersonalScope(userID primitive.ObjectID) Scope {
	return Scope{Kind: ScopePersonal, UserID: userID}
}

// FamilyScope selects documents owned by the family group.
func FamilyScope(groupID primitive.ObjectID) Scope {
	return Scope{Kind: ScopeFamily, GroupID: groupID}
}

// IsFamily reports whether the scope is the family variant.
func (s Scope) IsFamily() bool { return s.Kind == ScopeFamily }

// Owner returns the ownership fields a new document created in this scope
// must carry.
func (s Scope) Owner() (ownerUserID, groupID *primitive.ObjectID) {
	if s.IsFamily() {
		gid := s.GroupID
		return nil, &gid
	}
	uid := s.UserID
	return &uid, nil
}

// Matches reports whether a document with the given ownership fields belongs
// to the scope. Family scopes never match personal documents and vice versa.
func (s Scope) Matches(ownerUserID, groupID *primitive.ObjectID) bool {
	switch s.Kind {
	case ScopeFamily:
		return groupID != nil && *groupID == s.GroupID
	case ScopePersonal:
		return groupID == nil && ownerUserID != nil && *ownerUserID == s.UserID
	default:
		return false
	}
}

// Visibility maps the scope onto the notification scope label.
func (s Scope) Visibility() Visibility {
	if s.IsFamily() {
		return VisibilityFamily
	}
	return VisibilityPersonal
}

func (s Scope) String() string {
	if s.IsFamily() {
		return fmt.Sprintf("family:%s", s.GroupID.Hex())
	}
	return fmt.Sprintf("personal:%s", s.UserID.Hex())
}

// ScopeOf rebuilds the scope a stored document belongs to.
func ScopeOf(ownerUserID, groupID *primitive.ObjectID) Scope {
	if groupID != nil {
		return FamilyScope(*groupID)
	}
	if ownerUserID != nil {
		return PersonalScope(*ownerUserID)
	}
	return Scope{}
}
