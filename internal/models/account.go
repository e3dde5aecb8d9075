package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents account roles in the system
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
)

// Account is a sign-in account held by the identity service
type Account struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Identity is the signed-in principal. It is immutable for the lifetime of a session.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role claim.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Credentials is a sign-in or sign-up request
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// Identity converts the claims into the identity they describe.
func (c *Claims) Identity() *Identity {
	return &Identity{UID: c.UserID, Email: c.Email, Role: c.Role}
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleDriver:
		return true
	default:
		return false
	}
}
