package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired   = errors.New("user: id is required")
	ErrInvalidRole  = errors.New("user: invalid role")
	ErrNotFound     = errors.New("user: not found")
	ErrNameRequired = errors.New("user: name is required")
)

type ID string

type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID        ID
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID        ID
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	switch params.Role {
	case RoleTenant, RoleLandlord, RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}
	now := params.CreatedAt.UTC()
	return &User{
		ID:        ID(id),
		Email:     strings.ToLower(strings.TrimSpace(params.Email)),
		Name:      strings.TrimSpace(params.Name),
		Role:      params.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
