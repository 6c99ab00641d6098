package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// FamilyRole is a member's role inside a family group.
type FamilyRole string

const (
	RoleOwner  FamilyRole = "owner"
	RoleMember FamilyRole = "member"
)

// User is the subset of the account record the core needs.
type User struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name          string              `bson:"name" json:"name"`
	Email         string              `bson:"email" json:"email"`
	FamilyGroupID *primitive.ObjectID `bson:"familyGroupId,omitempty" json:"familyGroupId,omitempty"`
}

// FamilyMember links a user to a group with a role.
type FamilyMember struct {
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Role   FamilyRole         `bson:"role" json:"role"`
}

// FamilyGroup is a set of users sharing inventory and shopping lists.
type FamilyGroup struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Members []FamilyMember     `bson:"members" json:"members"`
}

// Member returns the membership record of userID, if any.
func (g FamilyGroup) Member(userID primitive.ObjectID) (FamilyMember, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return FamilyMember{}, false
}

// MemberIDs lists the user ids of every member.
func (g FamilyGroup) MemberIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
