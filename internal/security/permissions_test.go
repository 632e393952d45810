package security

import (
	"context"
	"testing"

	"github.com/IntelliTect/Coalesce-sub010/internal/model"
)

func typeWith(sec model.SecurityInfo) *model.Type {
	return &model.Type{Name: "Widget", Security: sec}
}

func TestMutationPermissions(t *testing.T) {
	anon := Anonymous()
	user := Principal{Subject: "u1", Authenticated: true}
	admin := Principal{Subject: "a1", Authenticated: true, Roles: []string{"Admin"}}

	cases := []struct {
		name string
		perm *model.Permission
		p    Principal
		want bool
	}{
		{"undeclared anonymous", nil, anon, false},
		{"undeclared authenticated", nil, user, true},
		{"deny all beats roles", &model.Permission{DenyAll: true, Roles: []string{"Admin"}}, admin, false},
		{"deny all beats trusted", &model.Permission{DenyAll: true}, TrustedPrincipal(), false},
		{"allow anonymous", &model.Permission{AllowAnonymous: true}, anon, true},
		{"roles match", &model.Permission{Roles: []string{"Admin", "Support"}}, admin, true},
		{"roles mismatch", &model.Permission{Roles: []string{"Admin"}}, user, false},
		{"roles trusted", &model.Permission{Roles: []string{"Admin"}}, TrustedPrincipal(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ty := typeWith(model.SecurityInfo{Create: tc.perm, Edit: tc.perm, Delete: tc.perm})
			if got := IsCreateAllowed(ty, tc.p); got != tc.want {
				t.Errorf("create: got %v, want %v", got, tc.want)
			}
			if got := IsEditAllowed(ty, tc.p); got != tc.want {
				t.Errorf("edit: got %v, want %v", got, tc.want)
			}
			if got := IsDeleteAllowed(ty, tc.p); got != tc.want {
				t.Errorf("delete: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReadPermission(t *testing.T) {
	anon := Anonymous()

	if IsReadAllowed(typeWith(model.SecurityInfo{}), anon) {
		t.Fatalf("undeclared read must require authentication")
	}
	if !IsReadAllowed(typeWith(model.SecurityInfo{Create: &model.Permission{AllowAnonymous: true}}), anon) {
		t.Fatalf("an anonymous action must open reads")
	}
	if IsReadAllowed(typeWith(model.SecurityInfo{
		Read:   &model.Permission{DenyAll: true},
		Create: &model.Permission{AllowAnonymous: true},
	}), TrustedPrincipal()) {
		t.Fatalf("deny_all read must win")
	}
	reader := Principal{Authenticated: true, Roles: []string{"Reader"}}
	if !IsReadAllowed(typeWith(model.SecurityInfo{Read: &model.Permission{Roles: []string{"Reader"}}}), reader) {
		t.Fatalf("reader role must be allowed")
	}
}

func TestPrincipalContext(t *testing.T) {
	if p := FromContext(context.Background()); p.Authenticated {
		t.Fatalf("empty context must yield anonymous principal")
	}
	ctx := WithPrincipal(context.Background(), Principal{Subject: "u1", Authenticated: true})
	if p := FromContext(ctx); p.Subject != "u1" || !p.Authenticated {
		t.Fatalf("unexpected principal: %#v", p)
	}
}
