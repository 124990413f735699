package auth

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Client is a tenant. Every other record in the auth schema belongs to
// exactly one client, and deleting a client cascades to its users, roles
// and tokens. Metadata is an opaque JSON blob; this layer never parses it.
type Client struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`

	Users  []*User     `json:"-"`
	Roles  []*Role     `json:"-"`
	Tokens []*JwtToken `json:"-"`
}

// User is a member of a single client. PasswordHash is carried opaquely;
// hashing and verification happen outside this layer.
type User struct {
	ID              uuid.UUID  `json:"id"`
	ClientID        uuid.UUID  `json:"client_id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name,omitempty"`
	PasswordHash    string     `json:"-"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	Client *Client     `json:"-"`
	Roles  []*Role     `json:"-"`
	Tokens []*JwtToken `json:"-"`
}

// Role groups permissions within a client. System roles are predefined and
// not deletable by tenant administrators.
type Role struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`

	Client      *Client       `json:"-"`
	Users       []*User       `json:"-"`
	Permissions []*Permission `json:"-"`
}

// Permission is a named capability shared across all tenants.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Roles []*Role `json:"-"`
}

// JwtToken records the lifecycle of one issued token, keyed naturally by
// its JTI. The client reference is denormalized from the owning user so
// tenant-wide token queries need no join.
type JwtToken struct {
	ID            uuid.UUID       `json:"id"`
	JTI           string          `json:"jti"`
	TokenType     string          `json:"token_type"`
	UserID        uuid.UUID       `json:"user_id"`
	ClientID      uuid.UUID       `json:"client_id,omitempty"`
	IssuedAt      time.Time       `json:"issued_at"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	RevokedAt     *time.Time      `json:"revoked_at,omitempty"`
	RevokedBy     *uuid.UUID      `json:"revoked_by,omitempty"`
	ReplacedByJTI string          `json:"replaced_by_jti,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`

	User   *User   `json:"-"`
	Client *Client `json:"-"`
}

// NewClient returns an active client without an assigned id; the store
// assigns one on create.
func NewClient(name, slug string) *Client {
	return &Client{Name: name, Slug: slug, IsActive: true}
}

// NewUser returns an active, unverified user belonging to client.
func NewUser(client *Client, email, fullName string) *User {
	u := &User{Email: email, FullName: fullName, IsActive: true, Client: client}
	if client != nil {
		u.ClientID = client.ID
	}
	return u
}

// NewRole returns a custom role belonging to client.
func NewRole(client *Client, name, description string) *Role {
	r := &Role{Name: name, Description: description, Client: client}
	if client != nil {
		r.ClientID = client.ID
	}
	return r
}

// NewSystemRole returns a predefined role belonging to client.
func NewSystemRole(client *Client, name, description string) *Role {
	r := NewRole(client, name, description)
	r.IsSystem = true
	return r
}

// NewPermission returns a permission without an assigned id.
func NewPermission(name, description string) *Permission {
	return &Permission{Name: name, Description: description}
}

// NewJwtToken builds a token record for user, denormalizing its client
// reference. A nil expiresAt means the token never expires on its own.
func NewJwtToken(jti, tokenType string, user *User, expiresAt *time.Time) *JwtToken {
	t := &JwtToken{JTI: jti, TokenType: tokenType, User: user, ExpiresAt: expiresAt}
	if user != nil {
		t.UserID = user.ID
		t.Client = user.Client
		t.ClientID = user.ClientID
	}
	return t
}
