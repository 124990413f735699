package auth

import "github.com/google/uuid"

// Relationship helpers keep both sides of an association in step within a
// single process. They mutate in-memory fields only; the store persists the
// corresponding rows and join-table edges separately. Membership checks use
// identity equality, so adding the same record twice is a no-op.

// AddUser attaches u to the client and points u back at it.
func (c *Client) AddUser(u *User) {
	if u == nil || containsUser(c.Users, u) {
		return
	}
	c.Users = append(c.Users, u)
	u.Client = c
	u.ClientID = c.ID
}

// RemoveUser detaches u from the client and clears its back-reference.
func (c *Client) RemoveUser(u *User) {
	if u == nil {
		return
	}
	c.Users = withoutUser(c.Users, u)
	u.Client = nil
	u.ClientID = uuid.Nil
}

// AddRole attaches r to the client and points r back at it.
func (c *Client) AddRole(r *Role) {
	if r == nil || containsRole(c.Roles, r) {
		return
	}
	c.Roles = append(c.Roles, r)
	r.Client = c
	r.ClientID = c.ID
}

// RemoveRole detaches r from the client and clears its back-reference.
func (c *Client) RemoveRole(r *Role) {
	if r == nil {
		return
	}
	c.Roles = withoutRole(c.Roles, r)
	r.Client = nil
	r.ClientID = uuid.Nil
}

// AddUser assigns the role to u, updating both sides of the relation.
func (r *Role) AddUser(u *User) {
	if u == nil || containsUser(r.Users, u) {
		return
	}
	r.Users = append(r.Users, u)
	if !containsRole(u.Roles, r) {
		u.Roles = append(u.Roles, r)
	}
}

// RemoveUser withdraws the role from u on both sides.
func (r *Role) RemoveUser(u *User) {
	if u == nil {
		return
	}
	r.Users = withoutUser(r.Users, u)
	u.Roles = withoutRole(u.Roles, r)
}

// AddPermission grants p to the role, updating both sides of the relation.
func (r *Role) AddPermission(p *Permission) {
	if p == nil || containsPermission(r.Permissions, p) {
		return
	}
	r.Permissions = append(r.Permissions, p)
	if !containsRole(p.Roles, r) {
		p.Roles = append(p.Roles, r)
	}
}

// RemovePermission withdraws p from the role on both sides.
func (r *Role) RemovePermission(p *Permission) {
	if p == nil {
		return
	}
	r.Permissions = withoutPermission(r.Permissions, p)
	p.Roles = withoutRole(p.Roles, r)
}

// HasPermission reports whether the role carries a permission by name.
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// AddRole grants the permission to r; inverse of Role.AddPermission.
func (p *Permission) AddRole(r *Role) {
	if r == nil {
		return
	}
	r.AddPermission(p)
}

// RemoveRole withdraws the permission from r.
func (p *Permission) RemoveRole(r *Role) {
	if r == nil {
		return
	}
	r.RemovePermission(p)
}

// AssignedToRole reports whether the permission is granted to a role by name.
func (p *Permission) AssignedToRole(name string) bool {
	for _, r := range p.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func containsUser(list []*User, u *User) bool {
	for _, x := range list {
		if x.Equal(u) {
			return true
		}
	}
	return false
}

func withoutUser(list []*User, u *User) []*User {
	for i, x := range list {
		if x.Equal(u) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func containsRole(list []*Role, r *Role) bool {
	for _, x := range list {
		if x.Equal(r) {
			return true
		}
	}
	return false
}

func withoutRole(list []*Role, r *Role) []*Role {
	for i, x := range list {
		if x.Equal(r) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func containsPermission(list []*Permission, p *Permission) bool {
	for _, x := range list {
		if x.Equal(p) {
			return true
		}
	}
	return false
}

func withoutPermission(list []*Permission, p *Permission) []*Permission {
	for i, x := range list {
		if x.Equal(p) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
