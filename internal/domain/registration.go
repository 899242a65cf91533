package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Registration is one person's claim on a position within an event. It is
// either a signed-up member (User) or a guest identified by Name, never both.
// swagger:model Registration
type Registration struct {
	Key       RegistrationKey `json:"key"`
	Position  PositionKey     `json:"positionKey"`
	User      *UserKey        `json:"userKey,omitempty"`
	Name      *string         `json:"name,omitempty"`
	Note      *string         `json:"note,omitempty"`
	AccessKey string          `json:"-"`
	Confirmed *time.Time      `json:"confirmedAt,omitempty"`
}

// IsConfirmed reports whether participation has been confirmed.
func (r Registration) IsConfirmed() bool {
	return r.Confirmed != nil
}

// CreateRegistrationSpec describes a new registration.
type CreateRegistrationSpec struct {
	Position PositionKey `json:"positionKey"`
	User     *UserKey    `json:"userKey"`
	Name     *string     `json:"name"`
	Note     *string     `json:"note"`
}

// Validate enforces the user XOR name rule.
func (s CreateRegistrationSpec) Validate() error {
	return validateRegistrant(s.Position, s.User, s.Name)
}

// UpdateRegistrationSpec replaces the mutable fields of a registration.
// Confirmed keeps an existing confirmation instant, sets a new one to the
// current time, or clears it when false.
type UpdateRegistrationSpec struct {
	Position  PositionKey `json:"positionKey"`
	User      *UserKey    `json:"userKey"`
	Name      *string     `json:"name"`
	Note      *string     `json:"note"`
	Confirmed bool        `json:"confirmed"`
}

// Validate enforces the user XOR name rule.
func (s UpdateRegistrationSpec) Validate() error {
	return validateRegistrant(s.Position, s.User, s.Name)
}

func validateRegistrant(position PositionKey, user *UserKey, name *string) error {
	if err := validateKey("position", string(position)); err != nil {
		return err
	}
	hasUser := user != nil && *user != ""
	hasName := name != nil && strings.TrimSpace(*name) != ""
	switch {
	case hasUser && hasName:
		return fmt.Errorf("%w: registration must not have both user and name", ErrInvalidInput)
	case !hasUser && !hasName:
		return fmt.Errorf("%w: registration needs either a user or a name", ErrInvalidInput)
	}
	if hasUser {
		return validateKey("user", string(*user))
	}
	return nil
}

func newRegistration(spec CreateRegistrationSpec) Registration {
	return Registration{
		Key:       NewRegistrationKey(),
		Position:  spec.Position,
		User:      normalizeUser(spec.User),
		Name:      normalizeText(spec.Name),
		Note:      normalizeText(spec.Note),
		AccessKey: uuid.NewString(),
	}
}

func normalizeUser(u *UserKey) *UserKey {
	if u == nil || *u == "" {
		return nil
	}
	v := *u
	return &v
}

func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (r Registration) clone() Registration {
	out := r
	if r.User != nil {
		u := *r.User
		out.User = &u
	}
	if r.Name != nil {
		n := *r.Name
		out.Name = &n
	}
	if r.Note != nil {
		n := *r.Note
		out.Note = &n
	}
	if r.Confirmed != nil {
		c := *r.Confirmed
		out.Confirmed = &c
	}
	return out
}
