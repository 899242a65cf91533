package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	EventStateDraft         EventState = "draft"
	EventStateOpenForSignup EventState = "open_for_signup"
	EventStatePlanned       EventState = "planned"
	EventStateCanceled      EventState = "canceled"
)

// Valid reports whether s is a known state.
func (s EventState) Valid() bool {
	switch s {
	case EventStateDraft, EventStateOpenForSignup, EventStatePlanned, EventStateCanceled:
		return true
	}
	return false
}

const (
	firstConfirmationWindow  = 14 * 24 * time.Hour
	secondConfirmationWindow = 7 * 24 * time.Hour
)

// Location is a stop on the event's route. Rendering only.
type Location struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Address     string `json:"address,omitempty"`
	Information string `json:"information,omitempty"`
}

// Event is the aggregate root owning the crew roster (Slots) and the
// Registrations for one planned voyage. Its methods never mutate the
// receiver; they return the next value of the aggregate.
// swagger:model Event
type Event struct {
	Key                      EventKey       `json:"key"`
	Name                     string         `json:"name"`
	State                    EventState     `json:"state"`
	Note                     string         `json:"note"`
	Description              string         `json:"description"`
	Start                    time.Time      `json:"start"`
	End                      time.Time      `json:"end"`
	Locations                []Location     `json:"locations"`
	Slots                    []Slot         `json:"slots"`
	Registrations            []Registration `json:"registrations"`
	ConfirmationRequestsSent int            `json:"participationConfirmationsRequestsSent"`
	Version                  int64          `json:"version"`
}

// CreateEventSpec describes a new event. State always starts as draft.
type CreateEventSpec struct {
	Name        string     `json:"name"`
	Note        string     `json:"note"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Locations   []Location `json:"locations"`
	Slots       []Slot     `json:"slots"`
}

// UpdateEventSpec is a partial update: absent fields keep their value.
type UpdateEventSpec struct {
	Name                     Optional[string]     `json:"name"`
	State                    Optional[EventState] `json:"state"`
	Note                     Optional[string]     `json:"note"`
	Description              Optional[string]     `json:"description"`
	Start                    Optional[time.Time]  `json:"start"`
	End                      Optional[time.Time]  `json:"end"`
	Locations                Optional[[]Location] `json:"locations"`
	Slots                    Optional[[]Slot]     `json:"slots"`
	ConfirmationRequestsSent Optional[int]        `json:"participationConfirmationsRequestsSent"`
}

// CrewChanges lists registrations that gained or lost a slot between two
// versions of an event.
type CrewChanges struct {
	Added   []RegistrationKey
	Removed []RegistrationKey
}

// NewEvent builds a draft event from spec. Slot assignments are dropped since
// a new event has no registrations yet.
func NewEvent(spec CreateEventSpec) (Event, error) {
	e := Event{
		Key:         NewEventKey(),
		Name:        strings.TrimSpace(spec.Name),
		State:       EventStateDraft,
		Note:        spec.Note,
		Description: spec.Description,
		Start:       spec.Start,
		End:         spec.End,
		Locations:   append([]Location(nil), spec.Locations...),
	}
	slots, err := normalizeSlots(spec.Slots)
	if err != nil {
		return Event{}, err
	}
	for i := range slots {
		slots[i].AssignedRegistration = nil
	}
	e.Slots = slots
	if err := e.validateHeader(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// MergeEvent overlays every present field of patch onto a copy of base.
func MergeEvent(base Event, patch UpdateEventSpec) Event {
	out := base.clone()
	out.Name = patch.Name.OrElse(out.Name)
	out.State = patch.State.OrElse(out.State)
	out.Note = patch.Note.OrElse(out.Note)
	out.Description = patch.Description.OrElse(out.Description)
	out.Start = patch.Start.OrElse(out.Start)
	out.End = patch.End.OrElse(out.End)
	if locations, ok := patch.Locations.Get(); ok {
		out.Locations = append([]Location(nil), locations...)
	}
	if slots, ok := patch.Slots.Get(); ok {
		out.Slots = make([]Slot, len(slots))
		for i, s := range slots {
			out.Slots[i] = s.clone()
		}
	}
	out.ConfirmationRequestsSent = patch.ConfirmationRequestsSent.OrElse(out.ConfirmationRequestsSent)
	return out
}

// ApplyUpdate merges spec into the event, validates the result and purges
// slot assignments that no longer resolve to a registration.
func (e Event) ApplyUpdate(spec UpdateEventSpec) (Event, error) {
	if next, ok := spec.State.Get(); ok {
		if !next.Valid() {
			return Event{}, fmt.Errorf("%w: unknown event state %q", ErrInvalidInput, next)
		}
		if e.State == EventStateCanceled && next != EventStateCanceled {
			return Event{}, fmt.Errorf("%w: canceled events cannot change state", ErrInvalidInput)
		}
	}
	merged := MergeEvent(e, spec)
	merged.Name = strings.TrimSpace(merged.Name)
	if err := merged.validateHeader(); err != nil {
		return Event{}, err
	}
	if spec.Slots.IsSet() {
		slots, err := normalizeSlots(merged.Slots)
		if err != nil {
			return Event{}, err
		}
		merged.Slots = slots
	}
	merged.purgeDanglingAssignments()
	return merged, nil
}

// AddRegistration appends a new registration with a fresh key and access key.
// The registration is not assigned to any slot.
func (e Event) AddRegistration(spec CreateRegistrationSpec) (Event, Registration, error) {
	if err := spec.Validate(); err != nil {
		return Event{}, Registration{}, err
	}
	reg := newRegistration(spec)
	out := e.clone()
	out.Registrations = append(out.Registrations, reg)
	return out, reg.clone(), nil
}

// RemoveRegistration drops the registration and clears every slot that
// referenced it.
func (e Event) RemoveRegistration(key RegistrationKey) (Event, Registration, error) {
	idx := e.registrationIndex(key)
	if idx < 0 {
		return Event{}, Registration{}, fmt.Errorf("%w: registration %s", ErrNotFound, key)
	}
	out := e.clone()
	removed := out.Registrations[idx]
	out.Registrations = append(out.Registrations[:idx], out.Registrations[idx+1:]...)
	for i := range out.Slots {
		if a := out.Slots[i].AssignedRegistration; a != nil && *a == key {
			out.Slots[i].AssignedRegistration = nil
		}
	}
	return out, removed, nil
}

// UpdateRegistration replaces the mutable fields of a registration, keeping
// its key, access key and slot assignment.
func (e Event) UpdateRegistration(key RegistrationKey, spec UpdateRegistrationSpec, now time.Time) (Event, error) {
	if err := spec.Validate(); err != nil {
		return Event{}, err
	}
	idx := e.registrationIndex(key)
	if idx < 0 {
		return Event{}, fmt.Errorf("%w: registration %s", ErrNotFound, key)
	}
	out := e.clone()
	reg := &out.Registrations[idx]
	reg.Position = spec.Position
	reg.User = normalizeUser(spec.User)
	reg.Name = normalizeText(spec.Name)
	reg.Note = normalizeText(spec.Note)
	switch {
	case !spec.Confirmed:
		reg.Confirmed = nil
	case reg.Confirmed == nil:
		t := now
		reg.Confirmed = &t
	}
	return out, nil
}

// ConfirmRegistration records participation confirmation at now. An existing
// confirmation instant is kept.
func (e Event) ConfirmRegistration(key RegistrationKey, now time.Time) (Event, error) {
	idx := e.registrationIndex(key)
	if idx < 0 {
		return Event{}, fmt.Errorf("%w: registration %s", ErrNotFound, key)
	}
	out := e.clone()
	if out.Registrations[idx].Confirmed == nil {
		t := now
		out.Registrations[idx].Confirmed = &t
	}
	return out, nil
}

// FindRegistration returns the registration with the given key.
func (e Event) FindRegistration(key RegistrationKey) (Registration, bool) {
	idx := e.registrationIndex(key)
	if idx < 0 {
		return Registration{}, false
	}
	return e.Registrations[idx].clone(), true
}

// SlotOf returns the slot the registration is assigned to.
func (e Event) SlotOf(key RegistrationKey) (Slot, bool) {
	for _, s := range e.Slots {
		if s.AssignedRegistration != nil && *s.AssignedRegistration == key {
			return s.clone(), true
		}
	}
	return Slot{}, false
}

// AssignedRegistrationKeys returns the crew in slot order. A registration
// holding several slots is listed once.
func (e Event) AssignedRegistrationKeys() []RegistrationKey {
	var out []RegistrationKey
	seen := make(map[RegistrationKey]struct{}, len(e.Slots))
	for _, s := range e.Slots {
		if s.AssignedRegistration == nil {
			continue
		}
		if _, dup := seen[*s.AssignedRegistration]; dup {
			continue
		}
		seen[*s.AssignedRegistration] = struct{}{}
		out = append(out, *s.AssignedRegistration)
	}
	return out
}

// CrewChangesSince compares the crew of e against before.
func (e Event) CrewChangesSince(before Event) CrewChanges {
	wasKeys, isKeys := before.AssignedRegistrationKeys(), e.AssignedRegistrationKeys()
	was, is := keySet(wasKeys), keySet(isKeys)
	var changes CrewChanges
	for _, k := range isKeys {
		if _, ok := was[k]; !ok {
			changes.Added = append(changes.Added, k)
		}
	}
	for _, k := range wasKeys {
		if _, ok := is[k]; !ok {
			changes.Removed = append(changes.Removed, k)
		}
	}
	return changes
}

// IsUpForFirstConfirmationRequest reports whether the first wave of
// participation confirmation requests is due.
func (e Event) IsUpForFirstConfirmationRequest(now time.Time) bool {
	return e.State == EventStatePlanned &&
		e.ConfirmationRequestsSent <= 0 &&
		startsWithin(e.Start, now, firstConfirmationWindow)
}

// IsUpForSecondConfirmationRequest reports whether the reminder wave is due.
func (e Event) IsUpForSecondConfirmationRequest(now time.Time) bool {
	return e.State == EventStatePlanned &&
		e.ConfirmationRequestsSent <= 1 &&
		startsWithin(e.Start, now, secondConfirmationWindow)
}

func startsWithin(start, now time.Time, window time.Duration) bool {
	return start.After(now) && !start.After(now.Add(window))
}

// CheckInvariants verifies the aggregate's consistency rules.
func (e Event) CheckInvariants() error {
	if err := e.validateHeader(); err != nil {
		return err
	}
	seen := make(map[RegistrationKey]struct{}, len(e.Registrations))
	for _, r := range e.Registrations {
		if _, dup := seen[r.Key]; dup {
			return fmt.Errorf("%w: duplicate registration %s", ErrInvalidInput, r.Key)
		}
		seen[r.Key] = struct{}{}
	}
	for _, s := range e.Slots {
		if s.AssignedRegistration == nil {
			continue
		}
		if _, ok := seen[*s.AssignedRegistration]; !ok {
			return fmt.Errorf("%w: slot %s references unknown registration %s", ErrInvalidInput, s.Key, *s.AssignedRegistration)
		}
	}
	return nil
}

func (e Event) validateHeader() error {
	if e.Name == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if !e.State.Valid() {
		return fmt.Errorf("%w: unknown event state %q", ErrInvalidInput, e.State)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: event start and end are required", ErrInvalidInput)
	}
	if e.Start.After(e.End) {
		return fmt.Errorf("%w: event start must not be after end", ErrInvalidInput)
	}
	return nil
}

// purgeDanglingAssignments clears slot assignments that point at a
// registration not present in the event.
func (e *Event) purgeDanglingAssignments() {
	live := make(map[RegistrationKey]struct{}, len(e.Registrations))
	for _, r := range e.Registrations {
		live[r.Key] = struct{}{}
	}
	for i := range e.Slots {
		a := e.Slots[i].AssignedRegistration
		if a == nil {
			continue
		}
		if _, ok := live[*a]; !ok {
			e.Slots[i].AssignedRegistration = nil
		}
	}
}

func (e Event) registrationIndex(key RegistrationKey) int {
	for i, r := range e.Registrations {
		if r.Key == key {
			return i
		}
	}
	return -1
}

func (e Event) clone() Event {
	out := e
	out.Locations = append([]Location(nil), e.Locations...)
	if e.Slots != nil {
		out.Slots = make([]Slot, len(e.Slots))
		for i, s := range e.Slots {
			out.Slots[i] = s.clone()
		}
	}
	if e.Registrations != nil {
		out.Registrations = make([]Registration, len(e.Registrations))
		for i, r := range e.Registrations {
			out.Registrations[i] = r.clone()
		}
	}
	return out
}

// normalizeSlots fills missing keys, rejects duplicates and orders by Order.
func normalizeSlots(in []Slot) ([]Slot, error) {
	out := make([]Slot, len(in))
	seen := make(map[SlotKey]struct{}, len(in))
	for i, s := range in {
		s = s.clone()
		if s.Key == "" {
			s.Key = NewSlotKey()
		} else if err := validateKey("slot", string(s.Key)); err != nil {
			return nil, err
		}
		if _, dup := seen[s.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate slot %s", ErrInvalidInput, s.Key)
		}
		seen[s.Key] = struct{}{}
		out[i] = s
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func keySet(keys []RegistrationKey) map[RegistrationKey]struct{} {
	set := make(map[RegistrationKey]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// EventRepository stores whole Event aggregates. Update succeeds only when
// the stored version equals e.Version and bumps it, otherwise ErrConflict.
type EventRepository interface {
	FindByKey(ctx context.Context, key EventKey) (*Event, error)
	FindAllByYear(ctx context.Context, year int) ([]*Event, error)
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	DeleteByKey(ctx context.Context, key EventKey) error
}
