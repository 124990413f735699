package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Store bundles the per-entity repositories backed by shared storage.
// Single-record lookups return ErrNotFound when nothing matches; collection
// queries return an empty slice and counts return zero. Any other error is
// a storage fault and is never retried here.
type Store interface {
	Clients() ClientStore
	Users() UserStore
	Roles() RoleStore
	Permissions() PermissionStore
	Tokens() TokenStore
}

// ClientUpdate describes a partial update; nil fields are left unchanged.
type ClientUpdate struct {
	Name     *string
	Slug     *string
	Metadata json.RawMessage
	IsActive *bool
}

// ClientStore manages tenants.
type ClientStore interface {
	Create(ctx context.Context, c *Client) error
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindBySlug(ctx context.Context, slug string) (*Client, error)
	FindByName(ctx context.Context, name string) (*Client, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*Client, error)
	ListActive(ctx context.Context) ([]*Client, error)
	ListByActive(ctx context.Context, active bool) ([]*Client, error)
	Search(ctx context.Context, text string) ([]*Client, error)
	SearchActive(ctx context.Context, text string) ([]*Client, error)
	CountActive(ctx context.Context) (int64, error)
	Update(ctx context.Context, id uuid.UUID, upd ClientUpdate) (*Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserStore manages users within their clients.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailAndClient(ctx context.Context, email string, clientID uuid.UUID) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailAndClient(ctx context.Context, email string, clientID uuid.UUID) (bool, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*User, error)
	ListActiveByClient(ctx context.Context, clientID uuid.UUID) ([]*User, error)
	ListActive(ctx context.Context) ([]*User, error)
	ListEmailVerifiedByClient(ctx context.Context, clientID uuid.UUID) ([]*User, error)
	ListByRoleName(ctx context.Context, roleName string, clientID uuid.UUID) ([]*User, error)
	ListByPermissionName(ctx context.Context, permissionName string, clientID uuid.UUID) ([]*User, error)
	Search(ctx context.Context, text string, clientID uuid.UUID) ([]*User, error)
	ListByLastLoginSince(ctx context.Context, since time.Time, clientID uuid.UUID) ([]*User, error)
	ListNeverLoggedIn(ctx context.Context, clientID uuid.UUID) ([]*User, error)
	ListByClientNewestFirst(ctx context.Context, clientID uuid.UUID) ([]*User, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountActiveByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RoleStore manages roles and their user assignments.
type RoleStore interface {
	Create(ctx context.Context, r *Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)
	FindByNameAndClient(ctx context.Context, name string, clientID uuid.UUID) (*Role, error)
	ExistsByNameAndClient(ctx context.Context, name string, clientID uuid.UUID) (bool, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Role, error)
	ListByClientOrderedByName(ctx context.Context, clientID uuid.UUID) ([]*Role, error)
	ListSystemByClient(ctx context.Context, clientID uuid.UUID) ([]*Role, error)
	ListCustomByClient(ctx context.Context, clientID uuid.UUID) ([]*Role, error)
	ListByNamesAndClient(ctx context.Context, names []string, clientID uuid.UUID) ([]*Role, error)
	ListByPermissionNameAndClient(ctx context.Context, permissionName string, clientID uuid.UUID) ([]*Role, error)
	ListByUserAndClient(ctx context.Context, userID, clientID uuid.UUID) ([]*Role, error)
	ListUnassignedByClient(ctx context.Context, clientID uuid.UUID) ([]*Role, error)
	Search(ctx context.Context, text string, clientID uuid.UUID) ([]*Role, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountSystemByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	CountUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error)
	AssignUser(ctx context.Context, roleID, userID uuid.UUID) error
	RemoveUser(ctx context.Context, roleID, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PermissionStore manages the global permission catalog and its role edges.
type PermissionStore interface {
	Create(ctx context.Context, p *Permission) error
	FindByID(ctx context.Context, id uuid.UUID) (*Permission, error)
	FindByName(ctx context.Context, name string) (*Permission, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*Permission, error)
	ListByNames(ctx context.Context, names []string) ([]*Permission, error)
	ListByPrefix(ctx context.Context, prefix string) ([]*Permission, error)
	ListByRole(ctx context.Context, roleID uuid.UUID) ([]*Permission, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Permission, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Permission, error)
	ListByUserAndClient(ctx context.Context, userID, clientID uuid.UUID) ([]*Permission, error)
	ListUnassigned(ctx context.Context) ([]*Permission, error)
	ListUnassignedByClient(ctx context.Context, clientID uuid.UUID) ([]*Permission, error)
	MostUsed(ctx context.Context, limit int) ([]*Permission, error)
	Search(ctx context.Context, text string) ([]*Permission, error)
	Count(ctx context.Context) (int64, error)
	CountRolesByPermission(ctx context.Context, permissionID uuid.UUID) (int64, error)
	AssignToRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	RemoveFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	SetForRole(ctx context.Context, roleID uuid.UUID, names []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenStore manages issued token records. "Active" means not revoked and
// not past its expiry; before-queries compare inclusively.
type TokenStore interface {
	Create(ctx context.Context, t *JwtToken) error
	FindByJTI(ctx context.Context, jti string) (*JwtToken, error)
	ExistsByJTI(ctx context.Context, jti string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*JwtToken, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*JwtToken, error)
	ListByType(ctx context.Context, tokenType string) ([]*JwtToken, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*JwtToken, error)
	ListActiveByUserAndType(ctx context.Context, userID uuid.UUID, tokenType string) ([]*JwtToken, error)
	ListRevokedByUser(ctx context.Context, userID uuid.UUID) ([]*JwtToken, error)
	ListExpired(ctx context.Context) ([]*JwtToken, error)
	ListExpiredByClient(ctx context.Context, clientID uuid.UUID) ([]*JwtToken, error)
	ListExpiringBefore(ctx context.Context, before time.Time) ([]*JwtToken, error)
	ListIssuedSince(ctx context.Context, since time.Time, clientID uuid.UUID) ([]*JwtToken, error)
	ListReplacedByClient(ctx context.Context, clientID uuid.UUID) ([]*JwtToken, error)
	FindReplaced(ctx context.Context, newJTI string) (*JwtToken, error)
	ListByUserNewestFirst(ctx context.Context, userID uuid.UUID) ([]*JwtToken, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	MarkRevoked(ctx context.Context, jti string, by uuid.UUID) error
	MarkReplaced(ctx context.Context, jti, newJTI string) error
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
	DeleteRevokedBefore(ctx context.Context, before time.Time) (int64, error)
}
