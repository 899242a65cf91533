package domain

import "context"

// EventService manages event aggregates on behalf of a signed-in user.
type EventService interface {
	CreateEvent(ctx context.Context, user SignedInUser, spec CreateEventSpec) (*Event, error)
	GetEvent(ctx context.Context, user SignedInUser, key EventKey) (*Event, error)
	ListEventsByYear(ctx context.Context, user SignedInUser, year int) ([]*Event, error)
	UpdateEvent(ctx context.Context, user SignedInUser, key EventKey, spec UpdateEventSpec) (*Event, error)
	DeleteEvent(ctx context.Context, user SignedInUser, key EventKey) error
}

// RegistrationService manages registrations within an event. ConfirmByToken
// and DeclineByToken need no session; possession of the access key is the
// authorization.
type RegistrationService interface {
	AddRegistration(ctx context.Context, user SignedInUser, eventKey EventKey, spec CreateRegistrationSpec) (*Registration, error)
	UpdateRegistration(ctx context.Context, user SignedInUser, eventKey EventKey, key RegistrationKey, spec UpdateRegistrationSpec) (*Registration, error)
	RemoveRegistration(ctx context.Context, user SignedInUser, eventKey EventKey, key RegistrationKey) error
	ConfirmByToken(ctx context.Context, eventKey EventKey, key RegistrationKey, accessKey string) error
	DeclineByToken(ctx context.Context, eventKey EventKey, key RegistrationKey, accessKey string) error
}

// PositionService manages the position catalog.
type PositionService interface {
	ListPositions(ctx context.Context, user SignedInUser) ([]*Position, error)
	CreatePosition(ctx context.Context, user SignedInUser, p *Position) error
	UpdatePosition(ctx context.Context, user SignedInUser, p *Position) error
	DeletePosition(ctx context.Context, user SignedInUser, key PositionKey) error
}

// QualificationService manages qualifications.
type QualificationService interface {
	ListQualifications(ctx context.Context, user SignedInUser) ([]*Qualification, error)
	CreateQualification(ctx context.Context, user SignedInUser, q *Qualification) error
}

// UserService covers login and user lookup.
type UserService interface {
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	GetUser(ctx context.Context, caller SignedInUser, key UserKey) (*User, error)
	ListUsers(ctx context.Context, caller SignedInUser) ([]*User, error)
}
