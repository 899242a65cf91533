package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"crewplanner/internal/domain"
)

var testNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time { return testNow }

// fakeEventRepo is an in-memory EventRepository with the same version check as the real store.
type fakeEventRepo struct {
	byKey     map[domain.EventKey]domain.Event
	updates   int
	updateErr error
}

func newFakeEventRepo(events ...domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{byKey: make(map[domain.EventKey]domain.Event)}
	for _, e := range events {
		f.byKey[e.Key] = e
	}
	return f
}

func (f *fakeEventRepo) FindByKey(ctx context.Context, key domain.EventKey) (*domain.Event, error) {
	e, ok := f.byKey[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEventRepo) FindAllByYear(ctx context.Context, year int) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.byKey {
		if e.Start.Year() == year {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if _, ok := f.byKey[e.Key]; ok {
		return domain.ErrConflict
	}
	e.Version = 1
	f.byKey[e.Key] = *e
	return nil
}

func (f *fakeEventRepo) Update(ctx context.Context, e *domain.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.byKey[e.Key]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != e.Version {
		return domain.ErrConflict
	}
	e.Version++
	f.byKey[e.Key] = *e
	f.updates++
	return nil
}

func (f *fakeEventRepo) DeleteByKey(ctx context.Context, key domain.EventKey) error {
	if _, ok := f.byKey[key]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byKey, key)
	return nil
}

// fakePositionRepo implements domain.PositionRepository for tests.
type fakePositionRepo struct {
	byKey map[domain.PositionKey]*domain.Position
}

func newFakePositionRepo(keys ...domain.PositionKey) *fakePositionRepo {
	f := &fakePositionRepo{byKey: make(map[domain.PositionKey]*domain.Position)}
	for i, k := range keys {
		f.byKey[k] = &domain.Position{Key: k, Name: string(k), Priority: i}
	}
	return f
}

func (f *fakePositionRepo) FindByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	if p, ok := f.byKey[key]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePositionRepo) FindAll(ctx context.Context) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range f.byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (f *fakePositionRepo) Create(ctx context.Context, p *domain.Position) error {
	if _, ok := f.byKey[p.Key]; ok {
		return domain.ErrConflict
	}
	f.byKey[p.Key] = p
	return nil
}

func (f *fakePositionRepo) Update(ctx context.Context, p *domain.Position) error {
	if _, ok := f.byKey[p.Key]; !ok {
		return domain.ErrNotFound
	}
	f.byKey[p.Key] = p
	return nil
}

func (f *fakePositionRepo) DeleteByKey(ctx context.Context, key domain.PositionKey) error {
	if _, ok := f.byKey[key]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byKey, key)
	return nil
}

// fakeQualificationRepo implements domain.QualificationRepository for tests.
type fakeQualificationRepo struct {
	items []*domain.Qualification
}

func (f *fakeQualificationRepo) FindAll(ctx context.Context) ([]*domain.Qualification, error) {
	return f.items, nil
}

func (f *fakeQualificationRepo) FindByKey(ctx context.Context, key domain.QualificationKey) (*domain.Qualification, error) {
	for _, q := range f.items {
		if q.Key == key {
			return q, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeQualificationRepo) Create(ctx context.Context, q *domain.Qualification) error {
	f.items = append(f.items, q)
	return nil
}

// fakeUserRepo implements domain.UserRepository for tests.
type fakeUserRepo struct {
	byKey  map[domain.UserKey]*domain.User
	getErr error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{byKey: make(map[domain.UserKey]*domain.User)}
	for _, u := range users {
		f.byKey[u.Key] = u
	}
	return f
}

func (f *fakeUserRepo) FindByKey(ctx context.Context, key domain.UserKey) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byKey[key]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byKey {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) FindAll(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range f.byKey {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range f.byKey {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	f.byKey[u.Key] = u
	return nil
}

// fakeQueue records queued notifications.
type fakeQueue struct {
	queued []domain.NotificationRequest
	err    error
}

func (f *fakeQueue) Queue(ctx context.Context, req domain.NotificationRequest) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, req)
	return nil
}

func (f *fakeQueue) types() []domain.NotificationType {
	out := make([]domain.NotificationType, len(f.queued))
	for i, r := range f.queued {
		out[i] = r.Type
	}
	return out
}

func (f *fakeQueue) recipients(t domain.NotificationType) []domain.UserKey {
	var out []domain.UserKey
	for _, r := range f.queued {
		if r.Type == t {
			out = append(out, r.UserKey)
		}
	}
	return out
}

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct{}

func (fakePasswordHasher) GenerateSalt() (string, error) { return "salt", nil }
func (fakePasswordHasher) Hash(salt, password string) (string, error) {
	return "hash-" + salt + "-" + password, nil
}
func (fakePasswordHasher) Compare(hash, salt, password string) error {
	if hash != "hash-"+salt+"-"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	err   error
	roles []string
}

func (f *fakeTokenIssuer) Issue(userKey domain.UserKey, email string, roles []string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.roles = roles
	return fmt.Sprintf("token-%s", userKey), nil
}

func testUsers() *fakeUserRepo {
	return newFakeUserRepo(
		&domain.User{Key: "u1", Email: "anna@example.com", FirstName: "Anna", Roles: []domain.Role{domain.RoleTeamMember}},
		&domain.User{Key: "u2", Email: "ben@example.com", FirstName: "Ben", Roles: []domain.Role{domain.RoleTeamMember}},
		&domain.User{Key: "planner", Email: "pia@example.com", FirstName: "Pia", Roles: []domain.Role{domain.RoleEventPlanner}},
	)
}

var (
	planner    = domain.SignedInUser{Key: "planner", Roles: []domain.Role{domain.RoleEventPlanner}}
	teamMember = domain.SignedInUser{Key: "u1", Roles: []domain.Role{domain.RoleTeamMember}}
	outsider   = domain.SignedInUser{Key: "x"}
)

func strPtr(s string) *string { return &s }

func userPtr(k domain.UserKey) *domain.UserKey { return &k }

func regPtr(k domain.RegistrationKey) *domain.RegistrationKey { return &k }

// crewEvent is a planned event ten days out with u1 (r1) in slot s1 and u2 (r2) waiting.
func crewEvent() domain.Event {
	return domain.Event{
		Key:     "ev1",
		Name:    "Sommertoern",
		State:   domain.EventStatePlanned,
		Start:   testNow.AddDate(0, 0, 10),
		End:     testNow.AddDate(0, 0, 12),
		Version: 1,
		Slots: []domain.Slot{
			{Key: "s1", Order: 1, Positions: []domain.PositionKey{"deckhand"}, AssignedRegistration: regPtr("r1")},
			{Key: "s2", Order: 2, Positions: []domain.PositionKey{"deckhand"}},
		},
		Registrations: []domain.Registration{
			{Key: "r1", Position: "deckhand", User: userPtr("u1"), AccessKey: "secret-1"},
			{Key: "r2", Position: "deckhand", User: userPtr("u2"), AccessKey: "secret-2"},
		},
	}
}
