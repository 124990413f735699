package auth

import "github.com/google/uuid"

// Record equality is identity-based: two records are equal iff both carry
// an assigned id and the ids match. Records without an id are equal only to
// themselves by reference, never to each other. Field values play no part.

func (c *Client) Equal(o *Client) bool {
	if c == nil || o == nil {
		return false
	}
	if c == o {
		return true
	}
	return c.ID != uuid.Nil && c.ID == o.ID
}

func (u *User) Equal(o *User) bool {
	if u == nil || o == nil {
		return false
	}
	if u == o {
		return true
	}
	return u.ID != uuid.Nil && u.ID == o.ID
}

func (r *Role) Equal(o *Role) bool {
	if r == nil || o == nil {
		return false
	}
	if r == o {
		return true
	}
	return r.ID != uuid.Nil && r.ID == o.ID
}

func (p *Permission) Equal(o *Permission) bool {
	if p == nil || o == nil {
		return false
	}
	if p == o {
		return true
	}
	return p.ID != uuid.Nil && p.ID == o.ID
}

func (t *JwtToken) Equal(o *JwtToken) bool {
	if t == nil || o == nil {
		return false
	}
	if t == o {
		return true
	}
	return t.ID != uuid.Nil && t.ID == o.ID
}
