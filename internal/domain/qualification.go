package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Qualification is a certification a user may hold. When Expires is set the
// holder's copy carries an expiry date.
// swagger:model Qualification
type Qualification struct {
	Key             QualificationKey `json:"key"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Expires         bool             `json:"expires"`
	GrantsPositions []PositionKey    `json:"grantsPositions"`
}

// Validate checks the fields required for storing a qualification.
func (q Qualification) Validate() error {
	if strings.TrimSpace(q.Name) == "" {
		return fmt.Errorf("%w: qualification name is required", ErrInvalidInput)
	}
	return validateKey("qualification", string(q.Key))
}

// UserQualification links a user to a qualification.
type UserQualification struct {
	QualificationKey QualificationKey `json:"qualificationKey"`
	ExpiresAt        *time.Time       `json:"expiresAt,omitempty"`
}

// ExpiresOn reports whether the qualification expires on the calendar day of day.
func (uq UserQualification) ExpiresOn(day time.Time) bool {
	if uq.ExpiresAt == nil {
		return false
	}
	y1, m1, d1 := uq.ExpiresAt.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// QualificationRepository stores qualifications.
type QualificationRepository interface {
	FindAll(ctx context.Context) ([]*Qualification, error)
	FindByKey(ctx context.Context, key QualificationKey) (*Qualification, error)
	Create(ctx context.Context, q *Qualification) error
}
