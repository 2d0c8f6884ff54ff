package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/investwest/internal/app/system/auth"
	"github.com/dalemusser/investwest/internal/app/system/authz"
	"github.com/dalemusser/investwest/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reqAs(role string, groupID primitive.ObjectID) (*http.Request, primitive.ObjectID) {
	id := primitive.NewObjectID()
	u := &auth.SessionUser{ID: id.Hex(), Role: role}
	if !groupID.IsZero() {
		u.GroupID = groupID.Hex()
	}
	return auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), u), id
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "nope", Role: "admin"})
	role, _, _, ok := authz.UserCtx(req)
	if ok || role != "visitor" {
		t.Errorf("expected visitor/false for malformed id, got %q/%v", role, ok)
	}
}

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		role                           string
		admin, superAdmin, issuer, inv bool
	}{
		{"superadmin", true, true, false, false},
		{"admin", true, false, false, false},
		{"issuer", false, false, true, false},
		{"investor", false, false, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req, _ := reqAs(tc.role, primitive.NilObjectID)
			if got := authz.IsAdmin(req); got != tc.admin {
				t.Errorf("IsAdmin: got %v", got)
			}
			if got := authz.IsSuperAdmin(req); got != tc.superAdmin {
				t.Errorf("IsSuperAdmin: got %v", got)
			}
			if got := authz.IsIssuer(req); got != tc.issuer {
				t.Errorf("IsIssuer: got %v", got)
			}
			if got := authz.IsInvestor(req); got != tc.inv {
				t.Errorf("IsInvestor: got %v", got)
			}
		})
	}
}

func TestCanAdministerGroup(t *testing.T) {
	g1 := primitive.NewObjectID()
	g2 := primitive.NewObjectID()

	admin, _ := reqAs("admin", g1)
	if !authz.CanAdministerGroup(admin, g1) {
		t.Error("admin should administer own group")
	}
	if authz.CanAdministerGroup(admin, g2) {
		t.Error("admin should not administer another group")
	}

	super, _ := reqAs("superadmin", primitive.NilObjectID)
	if !authz.CanAdministerGroup(super, g2) {
		t.Error("superadmin should administer every group")
	}

	anon := httptest.NewRequest("GET", "/", nil)
	if authz.CanAdministerGroup(anon, g1) {
		t.Error("anonymous should administer nothing")
	}
}

func TestCanSeeProject(t *testing.T) {
	group := primitive.NewObjectID()
	other := primitive.NewObjectID()

	anon := httptest.NewRequest("GET", "/", nil)
	outsider, _ := reqAs("investor", other)
	member, _ := reqAs("investor", group)
	issuerReq, issuerID := reqAs("issuer", other)

	p := models.Project{GroupID: group, IssuerID: issuerID}

	p.Visibility = models.VisibilityPublic
	if !authz.CanSeeProject(anon, p) {
		t.Error("public project should be visible anonymously")
	}

	p.Visibility = models.VisibilityRestricted
	if authz.CanSeeProject(anon, p) {
		t.Error("restricted project should need sign-in")
	}
	if !authz.CanSeeProject(outsider, p) {
		t.Error("restricted project should be visible to signed-in users")
	}

	p.Visibility = models.VisibilityPrivate
	if authz.CanSeeProject(outsider, p) {
		t.Error("private project should be hidden from outsiders")
	}
	if !authz.CanSeeProject(member, p) {
		t.Error("private project should be visible to group members")
	}
	if !authz.CanSeeProject(issuerReq, p) {
		t.Error("private project should be visible to its issuer")
	}
}
