package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"crewplanner/internal/domain"

	"github.com/lib/pq"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `key, email, first_name, last_name, roles, password_hash, salt`

func (r *userRepository) FindByKey(ctx context.Context, key domain.UserKey) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE key = $1`, string(key))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *userRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY last_name, first_name, key`)
	if err != nil {
		return nil, err
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadQualifications(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (key, email, first_name, last_name, roles, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, query, string(u.Key), strings.ToLower(u.Email), u.FirstName, u.LastName,
		pq.Array(u.RoleCodes()), u.PasswordHash, u.Salt); err != nil {
		var perr *pq.Error
		if errors.As(err, &perr) && perr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	for _, uq := range u.Qualifications {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_qualifications (user_key, qualification_key, expires_at) VALUES ($1, $2, $3)`,
			string(u.Key), string(uq.QualificationKey), uq.ExpiresAt); err != nil {
			return fmt.Errorf("insert qualification %s: %w", uq.QualificationKey, err)
		}
	}
	return tx.Commit()
}

func (r *userRepository) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}
	if err := r.loadQualifications(ctx, users); err != nil {
		return nil, err
	}
	return users[0], nil
}

func (r *userRepository) loadQualifications(ctx context.Context, users []*domain.User) error {
	if len(users) == 0 {
		return nil
	}
	byKey := make(map[domain.UserKey]*domain.User, len(users))
	keys := make([]string, len(users))
	for i, u := range users {
		byKey[u.Key] = u
		keys[i] = string(u.Key)
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_key, qualification_key, expires_at
		FROM user_qualifications
		WHERE user_key = ANY($1)
		ORDER BY user_key, qualification_key
	`, pq.Array(keys))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			userKey domain.UserKey
			uq      domain.UserQualification
			expires sql.NullTime
		)
		if err := rows.Scan(&userKey, &uq.QualificationKey, &expires); err != nil {
			return err
		}
		if expires.Valid {
			uq.ExpiresAt = &expires.Time
		}
		if u, ok := byKey[userKey]; ok {
			u.Qualifications = append(u.Qualifications, uq)
		}
	}
	return rows.Err()
}

func scanUsers(rows *sql.Rows) ([]*domain.User, error) {
	defer rows.Close()
	users := make([]*domain.User, 0)
	for rows.Next() {
		u := &domain.User{}
		var roles pq.StringArray
		if err := rows.Scan(&u.Key, &u.Email, &u.FirstName, &u.LastName, &roles, &u.PasswordHash, &u.Salt); err != nil {
			return nil, err
		}
		u.Roles = make([]domain.Role, len(roles))
		for i, code := range roles {
			u.Roles[i] = domain.Role(code)
		}
		u.Qualifications = []domain.UserQualification{}
		users = append(users, u)
	}
	return users, rows.Err()
}
