package domain

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// keyRegexp is the character set accepted for externally supplied keys.
var keyRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// EventKey identifies an Event.
type EventKey string

// RegistrationKey identifies a Registration within an Event.
type RegistrationKey string

// SlotKey identifies a Slot within an Event.
type SlotKey string

// PositionKey identifies a Position.
type PositionKey string

// UserKey identifies a User.
type UserKey string

// QualificationKey identifies a Qualification.
type QualificationKey string

func NewEventKey() EventKey               { return EventKey(uuid.NewString()) }
func NewRegistrationKey() RegistrationKey { return RegistrationKey(uuid.NewString()) }
func NewSlotKey() SlotKey                 { return SlotKey(uuid.NewString()) }
func NewPositionKey() PositionKey         { return PositionKey(uuid.NewString()) }
func NewUserKey() UserKey                 { return UserKey(uuid.NewString()) }
func NewQualificationKey() QualificationKey {
	return QualificationKey(uuid.NewString())
}

func validateKey(kind, raw string) error {
	if !keyRegexp.MatchString(raw) {
		return fmt.Errorf("%w: invalid %s key %q", ErrInvalidInput, kind, raw)
	}
	return nil
}

// ParseEventKey validates raw and returns it as an EventKey.
func ParseEventKey(raw string) (EventKey, error) {
	if err := validateKey("event", raw); err != nil {
		return "", err
	}
	return EventKey(raw), nil
}

// ParseRegistrationKey validates raw and returns it as a RegistrationKey.
func ParseRegistrationKey(raw string) (RegistrationKey, error) {
	if err := validateKey("registration", raw); err != nil {
		return "", err
	}
	return RegistrationKey(raw), nil
}

// ParseSlotKey validates raw and returns it as a SlotKey.
func ParseSlotKey(raw string) (SlotKey, error) {
	if err := validateKey("slot", raw); err != nil {
		return "", err
	}
	return SlotKey(raw), nil
}

// ParsePositionKey validates raw and returns it as a PositionKey.
func ParsePositionKey(raw string) (PositionKey, error) {
	if err := validateKey("position", raw); err != nil {
		return "", err
	}
	return PositionKey(raw), nil
}

// ParseUserKey validates raw and returns it as a UserKey.
func ParseUserKey(raw string) (UserKey, error) {
	if err := validateKey("user", raw); err != nil {
		return "", err
	}
	return UserKey(raw), nil
}

// ParseQualificationKey validates raw and returns it as a QualificationKey.
func ParseQualificationKey(raw string) (QualificationKey, error) {
	if err := validateKey("qualification", raw); err != nil {
		return "", err
	}
	return QualificationKey(raw), nil
}
