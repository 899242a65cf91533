package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrDuplicateEmail is returned when creating a user whose email is taken.
var ErrDuplicateEmail = errors.New("email already in use")

// User is a crew member or staff account.
// swagger:model User
type User struct {
	Key            UserKey             `json:"key"`
	Email          string              `json:"email"`
	FirstName      string              `json:"firstName"`
	LastName       string              `json:"lastName"`
	Roles          []Role              `json:"roles"`
	Qualifications []UserQualification `json:"qualifications"`
	PasswordHash   string              `json:"-"`
	Salt           string              `json:"-"`
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// RoleCodes returns the user's roles as plain strings (for token claims).
func (u *User) RoleCodes() []string {
	out := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		out[i] = string(r)
	}
	return out
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userKey UserKey, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the signed-in user it was issued for.
type TokenVerifier interface {
	Verify(token string) (SignedInUser, error)
}

// UserRepository defines the interface for user storage.
type UserRepository interface {
	FindByKey(ctx context.Context, key UserKey) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) error
}
