package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crewplanner/internal/domain"

	"github.com/lib/pq"
)

type qualificationRepository struct {
	DB *sql.DB
}

func NewQualificationRepository(db *sql.DB) domain.QualificationRepository {
	return &qualificationRepository{DB: db}
}

func (r *qualificationRepository) FindAll(ctx context.Context) ([]*domain.Qualification, error) {
	query := `SELECT key, name, description, expires, grants_positions FROM qualifications ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	qualifications := make([]*domain.Qualification, 0)
	for rows.Next() {
		q, err := scanQualification(rows)
		if err != nil {
			return nil, err
		}
		qualifications = append(qualifications, q)
	}
	return qualifications, rows.Err()
}

func (r *qualificationRepository) FindByKey(ctx context.Context, key domain.QualificationKey) (*domain.Qualification, error) {
	query := `SELECT key, name, description, expires, grants_positions FROM qualifications WHERE key = $1`
	q, err := scanQualification(r.DB.QueryRowContext(ctx, query, string(key)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

func (r *qualificationRepository) Create(ctx context.Context, q *domain.Qualification) error {
	query := `
		INSERT INTO qualifications (key, name, description, expires, grants_positions)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query, string(q.Key), q.Name, q.Description, q.Expires, pq.Array(positionKeyStrings(q.GrantsPositions)))
	if err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return fmt.Errorf("%w: qualification %s exists", domain.ErrConflict, q.Key)
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQualification(row rowScanner) (*domain.Qualification, error) {
	q := &domain.Qualification{}
	var grants pq.StringArray
	if err := row.Scan(&q.Key, &q.Name, &q.Description, &q.Expires, &grants); err != nil {
		return nil, err
	}
	q.GrantsPositions = toPositionKeys(grants)
	return q, nil
}
