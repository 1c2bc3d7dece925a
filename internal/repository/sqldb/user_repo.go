package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"festregistration/internal/domain"
)

const userColumns = `id, name, email, password_hash, salt, roll_number, college, phone, department, study_year, role, pid, is_active, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Salt, &u.RollNumber, &u.College,
		&u.Phone, &u.Department, &u.Year, &u.Role, &u.PID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	pids, err := listIdentifiers(ctx, r.DB,
		`SELECT pid FROM users WHERE pid LIKE $1`,
		domain.PIDYearPrefix(u.CreatedAt.Year())+"%",
	)
	if err != nil {
		return fmt.Errorf("list pids: %w", err)
	}
	u.PID = domain.NextPID(u.CreatedAt.Year(), pids)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.DB.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Salt, u.RollNumber, u.College,
		u.Phone, u.Department, u.Year, u.Role, u.PID, u.IsActive, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return userUniqueError(err)
	}
	return nil
}

func userUniqueError(err error) error {
	detail, ok := uniqueViolation(err)
	if !ok {
		return storageError(err)
	}
	switch {
	case strings.Contains(detail, "roll_number"):
		return domain.ErrDuplicateRollNumber
	case strings.Contains(detail, "email"):
		return domain.ErrDuplicateEmail
	case strings.Contains(detail, "pid"):
		return domain.ErrDuplicatePID
	}
	return domain.WrapError(domain.KindDuplicate, err, "account already exists")
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError(err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *userRepository) GetByPID(ctx context.Context, pid string) (*domain.User, error) {
	return r.getOne(ctx, "pid = $1", pid)
}

func (r *userRepository) ListByPIDs(ctx context.Context, pids []string) ([]*domain.User, error) {
	if len(pids) == 0 {
		return []*domain.User{}, nil
	}
	args := make([]any, len(pids))
	for i, p := range pids {
		args[i] = p
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE pid IN (` + placeholders(1, len(pids)) + `) ORDER BY pid`
	return r.list(ctx, query, args...)
}

func (r *userRepository) ListByRole(ctx context.Context, role string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, role)
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err)
	}
	defer rows.Close()
	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n); err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, phone = $3, college = $4, department = $5, study_year = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, u.ID, u.Name, u.Phone, u.College, u.Department, u.Year, u.UpdatedAt.UTC())
	if err != nil {
		return storageError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storageError(err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
