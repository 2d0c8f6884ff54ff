// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, ObjectID and a found
// flag. A missing user or a malformed id yields "visitor", "", NilObjectID,
// false, so ok=true always means a valid signed-in user.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session; fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// ActorFrom converts the current user into a domain Actor.
func ActorFrom(r *http.Request) (models.Actor, bool) {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: role, GroupID: UserGroupID(r)}, true
}

// HasAnyRole reports whether the current user has any of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

func IsSuperAdmin(r *http.Request) bool { return HasAnyRole(r, models.RoleSuperAdmin) }

// IsAdmin is true for group admins and superadmins.
func IsAdmin(r *http.Request) bool { return HasAnyRole(r, models.RoleAdmin, models.RoleSuperAdmin) }

func IsIssuer(r *http.Request) bool   { return HasAnyRole(r, models.RoleIssuer) }
func IsInvestor(r *http.Request) bool { return HasAnyRole(r, models.RoleInvestor) }

// UserGroupID returns the current user's home group, or NilObjectID.
func UserGroupID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok || user.GroupID == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(user.GroupID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// CanAdministerGroup reports whether the current user may manage groupID.
func CanAdministerGroup(r *http.Request, groupID primitive.ObjectID) bool {
	a, ok := ActorFrom(r)
	return ok && a.CanAdminister(groupID)
}

// CanSeeProject applies the visibility rules for reading a project:
// public projects are open to everyone; restricted ones to any signed-in
// user; private ones to the issuer, members of the owning group and admins
// of that group.
func CanSeeProject(r *http.Request, p models.Project) bool {
	if p.Visibility == models.VisibilityPublic {
		return true
	}
	a, ok := ActorFrom(r)
	if !ok {
		return false
	}
	if p.Visibility == models.VisibilityRestricted {
		return true
	}
	return a.ID == p.IssuerID || a.GroupID == p.GroupID || a.CanAdminister(p.GroupID)
}
