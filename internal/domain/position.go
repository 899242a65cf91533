package domain

import (
	"context"
	"fmt"
	"strings"
)

// Position is a crew role (e.g. skipper, deckhand) referenced by key from
// slots, registrations and qualifications.
// swagger:model Position
type Position struct {
	Key      PositionKey `json:"key"`
	Name     string      `json:"name"`
	Color    string      `json:"color"`
	Priority int         `json:"prio"`
	Rank     string      `json:"rank"`
}

// Validate checks the fields required for storing a position.
func (p Position) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: position name is required", ErrInvalidInput)
	}
	return validateKey("position", string(p.Key))
}

// PositionRepository is the read-mostly position catalog.
type PositionRepository interface {
	FindByKey(ctx context.Context, key PositionKey) (*Position, error)
	FindAll(ctx context.Context) ([]*Position, error)
	Create(ctx context.Context, p *Position) error
	Update(ctx context.Context, p *Position) error
	DeleteByKey(ctx context.Context, key PositionKey) error
}
