package domain

// Slot is a seat in an event's crew roster. AssignedRegistration is a lookup
// into the same event's registrations, not an ownership link.
// swagger:model Slot
type Slot struct {
	Key                  SlotKey          `json:"key"`
	Order                int              `json:"order"`
	Required             bool             `json:"required"`
	Positions            []PositionKey    `json:"positionKeys"`
	Name                 *string          `json:"name,omitempty"`
	AssignedRegistration *RegistrationKey `json:"assignedRegistrationKey,omitempty"`
}

// IsAssigned reports whether a registration fills the slot.
func (s Slot) IsAssigned() bool {
	return s.AssignedRegistration != nil
}

// Accepts reports whether the slot can be filled by the given position.
func (s Slot) Accepts(p PositionKey) bool {
	for _, k := range s.Positions {
		if k == p {
			return true
		}
	}
	return false
}

func (s Slot) clone() Slot {
	out := s
	out.Positions = append([]PositionKey(nil), s.Positions...)
	if s.Name != nil {
		n := *s.Name
		out.Name = &n
	}
	if s.AssignedRegistration != nil {
		k := *s.AssignedRegistration
		out.AssignedRegistration = &k
	}
	return out
}
