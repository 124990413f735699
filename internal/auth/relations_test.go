package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestClientAddUserLinksBothSides(t *testing.T) {
	c := NewClient("Acme Fleet", "acme")
	c.ID = uuid.New()
	u := &User{ID: uuid.New(), Email: "ops@acme.test"}

	c.AddUser(u)
	if len(c.Users) != 1 || u.Client != c || u.ClientID != c.ID {
		t.Fatalf("user not linked: %+v", u)
	}

	c.AddUser(u)
	if len(c.Users) != 1 {
		t.Fatalf("duplicate add must be a no-op, got %d users", len(c.Users))
	}

	c.RemoveUser(u)
	if len(c.Users) != 0 || u.Client != nil || u.ClientID != uuid.Nil {
		t.Fatalf("user not unlinked: %+v", u)
	}
}

func TestRoleAddPermissionLinksBothSides(t *testing.T) {
	r := &Role{ID: uuid.New(), Name: "admin"}
	p := &Permission{ID: uuid.New(), Name: "vehicles:read"}

	r.AddPermission(p)
	if !r.HasPermission("vehicles:read") {
		t.Fatalf("role missing granted permission")
	}
	if !p.AssignedToRole("admin") {
		t.Fatalf("permission missing reverse link to role")
	}

	p.AddRole(r)
	if len(r.Permissions) != 1 || len(p.Roles) != 1 {
		t.Fatalf("inverse add must not duplicate the edge: %d/%d", len(r.Permissions), len(p.Roles))
	}

	r.RemovePermission(p)
	if r.HasPermission("vehicles:read") || p.AssignedToRole("admin") {
		t.Fatalf("edge not removed on both sides")
	}
}

func TestRoleAddUserBothSides(t *testing.T) {
	r := &Role{ID: uuid.New(), Name: "dispatcher"}
	u := &User{ID: uuid.New(), Email: "d@acme.test"}

	r.AddUser(u)
	if len(r.Users) != 1 || len(u.Roles) != 1 {
		t.Fatalf("assignment must appear on both sides")
	}
	r.RemoveUser(u)
	if len(r.Users) != 0 || len(u.Roles) != 0 {
		t.Fatalf("removal must clear both sides")
	}
}

func TestNilArgumentsAreNoOps(t *testing.T) {
	c := NewClient("Acme Fleet", "acme")
	c.AddUser(nil)
	c.RemoveUser(nil)
	r := &Role{ID: uuid.New()}
	r.AddPermission(nil)
	r.RemoveUser(nil)
	if len(c.Users) != 0 || len(r.Permissions) != 0 {
		t.Fatalf("nil arguments must not mutate anything")
	}
}

// End-to-end wiring of a tenant graph in memory: a client with an admin
// role whose members can read vehicles.
func TestTenantGraphScenario(t *testing.T) {
	acme := NewClient("Acme Fleet", "acme")
	acme.ID = uuid.New()

	admin := NewSystemRole(acme, "admin", "Full tenant access")
	admin.ID = uuid.New()
	acme.AddRole(admin)

	read := NewPermission("vehicles:read", "Read vehicle records")
	read.ID = uuid.New()
	admin.AddPermission(read)

	alice := NewUser(acme, "alice@acme.test", "Alice")
	alice.ID = uuid.New()
	acme.AddUser(alice)
	admin.AddUser(alice)

	if alice.ClientID != acme.ID {
		t.Fatalf("user not scoped to client")
	}
	if len(alice.Roles) != 1 || !alice.Roles[0].HasPermission("vehicles:read") {
		t.Fatalf("permission not reachable through the user's role")
	}
	if !read.AssignedToRole("admin") {
		t.Fatalf("permission missing its role link")
	}
}
