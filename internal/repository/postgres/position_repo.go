package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crewplanner/internal/domain"

	"github.com/lib/pq"
)

type positionRepository struct {
	DB *sql.DB
}

func NewPositionRepository(db *sql.DB) domain.PositionRepository {
	return &positionRepository{DB: db}
}

func (r *positionRepository) FindByKey(ctx context.Context, key domain.PositionKey) (*domain.Position, error) {
	query := `SELECT key, name, color, prio, rank FROM positions WHERE key = $1`
	p := &domain.Position{}
	err := r.DB.QueryRowContext(ctx, query, string(key)).Scan(&p.Key, &p.Name, &p.Color, &p.Priority, &p.Rank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *positionRepository) FindAll(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT key, name, color, prio, rank FROM positions ORDER BY prio, name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	positions := make([]*domain.Position, 0)
	for rows.Next() {
		p := &domain.Position{}
		if err := rows.Scan(&p.Key, &p.Name, &p.Color, &p.Priority, &p.Rank); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (r *positionRepository) Create(ctx context.Context, p *domain.Position) error {
	query := `INSERT INTO positions (key, name, color, prio, rank) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.DB.ExecContext(ctx, query, string(p.Key), p.Name, p.Color, p.Priority, p.Rank); err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return fmt.Errorf("%w: position %s exists", domain.ErrConflict, p.Key)
		}
		return err
	}
	return nil
}

func (r *positionRepository) Update(ctx context.Context, p *domain.Position) error {
	query := `UPDATE positions SET name = $2, color = $3, prio = $4, rank = $5 WHERE key = $1`
	result, err := r.DB.ExecContext(ctx, query, string(p.Key), p.Name, p.Color, p.Priority, p.Rank)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *positionRepository) DeleteByKey(ctx context.Context, key domain.PositionKey) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM positions WHERE key = $1`, string(key))
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
