package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crewplanner/internal/domain"

	"github.com/lib/pq"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository stores the event aggregate across the events,
// event_registrations and event_slots tables. Writes replace the child rows
// inside one transaction.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `key, name, state, note, description, start_at, end_at, locations, confirmation_requests_sent, version`

func (r *eventRepository) FindByKey(ctx context.Context, key domain.EventKey) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE key = $1`
	rows, err := r.DB.QueryContext(ctx, query, string(key))
	if err != nil {
		return nil, err
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	if err := loadEventChildren(ctx, r.DB, events); err != nil {
		return nil, err
	}
	return events[0], nil
}

func (r *eventRepository) FindAllByYear(ctx context.Context, year int) ([]*domain.Event, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	query := `SELECT ` + eventColumns + ` FROM events WHERE start_at >= $1 AND start_at < $2 ORDER BY start_at, key`
	rows, err := r.DB.QueryContext(ctx, query, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if err := loadEventChildren(ctx, r.DB, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	locations, err := json.Marshal(nonNilLocations(e.Locations))
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (key, name, state, note, description, start_at, end_at, locations, confirmation_requests_sent, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
	`
	if _, err := tx.ExecContext(ctx, query, string(e.Key), e.Name, string(e.State), e.Note, e.Description,
		e.Start, e.End, locations, e.ConfirmationRequestsSent); err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return fmt.Errorf("%w: event %s exists", domain.ErrConflict, e.Key)
		}
		return err
	}
	if err := insertEventChildren(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Version = 1
	return nil
}

// Update writes e if the stored version still equals e.Version and bumps it.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	locations, err := json.Marshal(nonNilLocations(e.Locations))
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE events
		SET name = $3, state = $4, note = $5, description = $6, start_at = $7, end_at = $8,
		    locations = $9, confirmation_requests_sent = $10, version = version + 1
		WHERE key = $1 AND version = $2
		RETURNING version
	`
	var version int64
	err = tx.QueryRowContext(ctx, query, string(e.Key), e.Version, e.Name, string(e.State), e.Note, e.Description,
		e.Start, e.End, locations, e.ConfirmationRequestsSent).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE key = $1)`, string(e.Key)).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: event %s was modified concurrently", domain.ErrConflict, e.Key)
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_slots WHERE event_key = $1`, string(e.Key)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_registrations WHERE event_key = $1`, string(e.Key)); err != nil {
		return err
	}
	if err := insertEventChildren(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Version = version
	return nil
}

func (r *eventRepository) DeleteByKey(ctx context.Context, key domain.EventKey) error {
	query := `DELETE FROM events WHERE key = $1`
	result, err := r.DB.ExecContext(ctx, query, string(key))
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// insertEventChildren writes registrations before slots so the slot
// assignment foreign key resolves.
func insertEventChildren(ctx context.Context, tx *sql.Tx, e *domain.Event) error {
	for _, reg := range e.Registrations {
		query := `
			INSERT INTO event_registrations (event_key, key, position_key, user_key, name, note, access_key, confirmed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		var user *string
		if reg.User != nil {
			u := string(*reg.User)
			user = &u
		}
		if _, err := tx.ExecContext(ctx, query, string(e.Key), string(reg.Key), string(reg.Position),
			user, reg.Name, reg.Note, reg.AccessKey, reg.Confirmed); err != nil {
			return fmt.Errorf("insert registration %s: %w", reg.Key, err)
		}
	}
	for _, slot := range e.Slots {
		query := `
			INSERT INTO event_slots (event_key, key, sort_order, required, position_keys, name, assigned_registration_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		var assigned *string
		if slot.AssignedRegistration != nil {
			a := string(*slot.AssignedRegistration)
			assigned = &a
		}
		if _, err := tx.ExecContext(ctx, query, string(e.Key), string(slot.Key), slot.Order, slot.Required,
			pq.Array(positionKeyStrings(slot.Positions)), slot.Name, assigned); err != nil {
			return fmt.Errorf("insert slot %s: %w", slot.Key, err)
		}
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e := &domain.Event{}
		var locations []byte
		if err := rows.Scan(&e.Key, &e.Name, &e.State, &e.Note, &e.Description, &e.Start, &e.End,
			&locations, &e.ConfirmationRequestsSent, &e.Version); err != nil {
			return nil, err
		}
		if len(locations) > 0 {
			if err := json.Unmarshal(locations, &e.Locations); err != nil {
				return nil, fmt.Errorf("decode locations of %s: %w", e.Key, err)
			}
		}
		e.Slots = []domain.Slot{}
		e.Registrations = []domain.Registration{}
		events = append(events, e)
	}
	return events, rows.Err()
}

// loadEventChildren fills slots and registrations of events with one query each.
func loadEventChildren(ctx context.Context, q queryer, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	byKey := make(map[domain.EventKey]*domain.Event, len(events))
	keys := make([]string, len(events))
	for i, e := range events {
		byKey[e.Key] = e
		keys[i] = string(e.Key)
	}

	regRows, err := q.QueryContext(ctx, `
		SELECT event_key, key, position_key, user_key, name, note, access_key, confirmed_at
		FROM event_registrations
		WHERE event_key = ANY($1)
		ORDER BY event_key, key
	`, pq.Array(keys))
	if err != nil {
		return err
	}
	defer regRows.Close()
	for regRows.Next() {
		var (
			eventKey  domain.EventKey
			reg       domain.Registration
			user      sql.NullString
			name      sql.NullString
			note      sql.NullString
			confirmed sql.NullTime
		)
		if err := regRows.Scan(&eventKey, &reg.Key, &reg.Position, &user, &name, &note, &reg.AccessKey, &confirmed); err != nil {
			return err
		}
		if user.Valid {
			u := domain.UserKey(user.String)
			reg.User = &u
		}
		if name.Valid {
			reg.Name = &name.String
		}
		if note.Valid {
			reg.Note = &note.String
		}
		if confirmed.Valid {
			reg.Confirmed = &confirmed.Time
		}
		if e, ok := byKey[eventKey]; ok {
			e.Registrations = append(e.Registrations, reg)
		}
	}
	if err := regRows.Err(); err != nil {
		return err
	}

	slotRows, err := q.QueryContext(ctx, `
		SELECT event_key, key, sort_order, required, position_keys, name, assigned_registration_key
		FROM event_slots
		WHERE event_key = ANY($1)
		ORDER BY event_key, sort_order, key
	`, pq.Array(keys))
	if err != nil {
		return err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var (
			eventKey  domain.EventKey
			slot      domain.Slot
			positions pq.StringArray
			name      sql.NullString
			assigned  sql.NullString
		)
		if err := slotRows.Scan(&eventKey, &slot.Key, &slot.Order, &slot.Required, &positions, &name, &assigned); err != nil {
			return err
		}
		slot.Positions = toPositionKeys(positions)
		if name.Valid {
			slot.Name = &name.String
		}
		if assigned.Valid {
			k := domain.RegistrationKey(assigned.String)
			slot.AssignedRegistration = &k
		}
		if e, ok := byKey[eventKey]; ok {
			e.Slots = append(e.Slots, slot)
		}
	}
	return slotRows.Err()
}

func nonNilLocations(l []domain.Location) []domain.Location {
	if l == nil {
		return []domain.Location{}
	}
	return l
}

func positionKeyStrings(keys []domain.PositionKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func toPositionKeys(raw []string) []domain.PositionKey {
	out := make([]domain.PositionKey, len(raw))
	for i, s := range raw {
		out[i] = domain.PositionKey(s)
	}
	return out
}
