package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"festregistration/internal/domain"
)

const registrationColumns = `r.id, r.user_id, r.event_id, r.pid, r.status, r.team_name, r.tid, r.created_at, r.updated_at`

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func scanRegistration(row scanner) (*domain.Registration, error) {
	reg := &domain.Registration{TeamMembers: []domain.TeamMember{}}
	var tid sql.NullString
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.PID, &reg.Status, &reg.TeamName, &tid, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.TID = tid.String
	return reg, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func registrationUniqueError(err error) error {
	detail, ok := uniqueViolation(err)
	if !ok {
		return storageError(err)
	}
	if strings.Contains(detail, "tid") {
		return domain.ErrDuplicateTID
	}
	return domain.ErrAlreadyRegistered
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		now := reg.UpdatedAt.UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE events SET registered_count = registered_count + 1, updated_at = $2 WHERE id = $1`,
			reg.EventID, now,
		)
		if err := expectOneRow(res, err); err != nil {
			return err
		}

		// The counter update above holds the event row lock, so the count
		// below sees every registration committed before this one.
		var maxParticipants, active int
		err = tx.QueryRowContext(ctx, `
			SELECT max_participants,
				(SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'cancelled')
			FROM events WHERE id = $1
		`, reg.EventID).Scan(&maxParticipants, &active)
		if err != nil {
			return storageError(err)
		}
		if active+1 > maxParticipants {
			return domain.NewCapacityError(maxParticipants - active)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO registrations (id, user_id, event_id, pid, status, team_name, tid, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, reg.ID, reg.UserID, reg.EventID, reg.PID, reg.Status, reg.TeamName, nullableString(reg.TID),
			reg.CreatedAt.UTC(), now)
		if err != nil {
			return registrationUniqueError(err)
		}
		if err := insertMembers(ctx, tx, reg.ID, reg.TeamMembers); err != nil {
			return err
		}
		if reg.TeamName != "" && reg.TID == "" {
			tid, err := assignTID(ctx, tx, reg.ID, reg.CreatedAt.Year())
			if err != nil {
				return err
			}
			reg.TID = tid
		}
		return nil
	})
}

func insertMembers(ctx context.Context, q querier, registrationID string, members []domain.TeamMember) error {
	for i, m := range members {
		_, err := q.ExecContext(ctx, `
			INSERT INTO registration_team_members (registration_id, position, pid, name, college)
			VALUES ($1, $2, $3, $4, $5)
		`, registrationID, i, m.PID, m.Name, m.College)
		if err != nil {
			return storageError(fmt.Errorf("insert team member: %w", err))
		}
	}
	return nil
}

// assignTID gives the registration the next team id if it has none yet.
func assignTID(ctx context.Context, q querier, registrationID string, year int) (string, error) {
	tids, err := listIdentifiers(ctx, q, `SELECT tid FROM registrations WHERE tid LIKE $1`, domain.TIDPrefix+"%")
	if err != nil {
		return "", fmt.Errorf("list tids: %w", err)
	}
	tid := domain.NextTID(year, tids)
	if _, err := q.ExecContext(ctx,
		`UPDATE registrations SET tid = $2 WHERE id = $1 AND tid IS NULL`,
		registrationID, tid,
	); err != nil {
		return "", registrationUniqueError(err)
	}
	return tid, nil
}

func loadMembers(ctx context.Context, q querier, regs ...*domain.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Registration, len(regs))
	args := make([]any, 0, len(regs))
	for _, reg := range regs {
		byID[reg.ID] = reg
		args = append(args, reg.ID)
	}
	rows, err := q.QueryContext(ctx, `
		SELECT registration_id, pid, name, college FROM registration_team_members
		WHERE registration_id IN (`+placeholders(1, len(args))+`)
		ORDER BY registration_id, position
	`, args...)
	if err != nil {
		return storageError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			regID string
			m     domain.TeamMember
		)
		if err := rows.Scan(&regID, &m.PID, &m.Name, &m.College); err != nil {
			return err
		}
		if reg, ok := byID[regID]; ok {
			reg.TeamMembers = append(reg.TeamMembers, m)
		}
	}
	return rows.Err()
}

func getRegistration(ctx context.Context, q querier, query string, args ...any) (*domain.Registration, error) {
	reg, err := scanRegistration(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError(err)
	}
	if err := loadMembers(ctx, q, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func listRegistrations(ctx context.Context, q querier, query string, args ...any) ([]*domain.Registration, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(err)
	}
	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := loadMembers(ctx, q, regs...); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	return getRegistration(ctx, r.DB, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id)
}

func (r *registrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	return getRegistration(ctx, r.DB,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.event_id = $1 AND r.user_id = $2 AND r.status <> 'cancelled'`,
		eventID, userID,
	)
}

func (r *registrationRepository) FindByEventAndMemberPID(ctx context.Context, eventID, pid string) (*domain.Registration, error) {
	return getRegistration(ctx, r.DB, `
		SELECT `+registrationColumns+`
		FROM registrations r
		JOIN registration_team_members m ON m.registration_id = r.id
		WHERE r.event_id = $1 AND m.pid = $2 AND r.status <> 'cancelled'
		LIMIT 1
	`, eventID, pid)
}

func (r *registrationRepository) CountActiveByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'cancelled'`, eventID,
	).Scan(&n)
	if err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

func (r *registrationRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE status <> 'cancelled'`).Scan(&n); err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

func (r *registrationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	return listRegistrations(ctx, r.DB,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.user_id = $1 ORDER BY r.created_at DESC`,
		userID,
	)
}

func (r *registrationRepository) ListInvolving(ctx context.Context, userID, pid string) ([]*domain.Registration, error) {
	return listRegistrations(ctx, r.DB, `
		SELECT DISTINCT `+registrationColumns+`
		FROM registrations r
		LEFT JOIN registration_team_members m ON m.registration_id = r.id AND m.pid = $2
		WHERE r.status <> 'cancelled' AND (r.user_id = $1 OR m.pid IS NOT NULL)
		ORDER BY r.created_at DESC
	`, userID, pid)
}

func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	return listRegistrations(ctx, r.DB,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.event_id = $1 ORDER BY r.created_at DESC`,
		eventID,
	)
}

func (r *registrationRepository) ListActive(ctx context.Context) ([]*domain.Registration, error) {
	return listRegistrations(ctx, r.DB,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.status <> 'cancelled' ORDER BY r.created_at DESC`,
	)
}

func (r *registrationRepository) Delete(ctx context.Context, id string) (*domain.Registration, error) {
	var deleted *domain.Registration
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		reg, err := getRegistration(ctx, tx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM registration_team_members WHERE registration_id = $1`, id); err != nil {
			return storageError(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
		if err := expectOneRow(res, err); err != nil {
			return err
		}
		if reg.Status != domain.StatusCancelled {
			if err := decrementCount(ctx, tx, reg.EventID, 1, time.Now().UTC()); err != nil {
				return err
			}
		}
		deleted = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *registrationRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	var n int64
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM registration_team_members WHERE registration_id IN (SELECT id FROM registrations WHERE user_id = $1)`,
			userID,
		); err != nil {
			return storageError(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE user_id = $1`, userID)
		if err != nil {
			return storageError(err)
		}
		n, err = rowsAffected(res)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *registrationRepository) SetTeamName(ctx context.Context, id, teamName string, updatedAt time.Time) (*domain.Registration, error) {
	var updated *domain.Registration
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE registrations SET team_name = $2, updated_at = $3 WHERE id = $1`,
			id, teamName, updatedAt.UTC(),
		)
		if err := expectOneRow(res, err); err != nil {
			return err
		}
		reg, err := getRegistration(ctx, tx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id)
		if err != nil {
			return err
		}
		if reg.TID == "" {
			tid, err := assignTID(ctx, tx, reg.ID, updatedAt.Year())
			if err != nil {
				return err
			}
			reg.TID = tid
		}
		updated = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
