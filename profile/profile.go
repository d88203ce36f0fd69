package profile

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Role is a CommunityLearn role. Stored profiles may carry a role this
// build does not know; see [Role.Valid].
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Roles lists the known roles in display order.
func Roles() []Role {
	return []Role{RoleStudent, RoleTeacher, RoleAdmin}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Profile is the document keyed by identity id that gives an identity a
// name and a role.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields every stored profile must carry.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if !p.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// Store is the profile document store consumed by the resolver.
type Store interface {
	// Get returns the profile for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Profile, error)
	// Put creates or replaces the profile keyed by p.ID.
	Put(ctx context.Context, p Profile) error
}

// ListOptions filters Directory.List. A zero Role lists every profile.
type ListOptions struct {
	Role  Role
	Limit int
}

// Directory is the admin view over the profile store.
type Directory interface {
	Store
	// List returns profiles newest first.
	List(ctx context.Context, opts ListOptions) ([]Profile, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context) (map[Role]int, error)
}
