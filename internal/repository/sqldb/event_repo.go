package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"festregistration/internal/domain"
)

const eventColumns = `id, title, description, theme, category, event_date, event_time, venue, max_participants, registered_count, image_url, image_key, is_listed, participation_type, team_size_min, team_size_max, created_by, created_at, updated_at`

// activeCountExpr counts the non-cancelled registrations of the events row in scope.
const activeCountExpr = `(SELECT COUNT(*) FROM registrations r WHERE r.event_id = events.id AND r.status <> 'cancelled')`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func scanEvent(row scanner) (*domain.Event, error) {
	e := &domain.Event{}
	var category string
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Theme, &category, &e.Date, &e.Time, &e.Venue,
		&e.MaxParticipants, &e.RegisteredCount, &e.Image.URL, &e.Image.Key, &e.IsListed,
		&e.ParticipationType, &e.TeamSize.Min, &e.TeamSize.Max, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Category = domain.Category(category)
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Theme, string(e.Category), e.Date.UTC(), e.Time, e.Venue,
		e.MaxParticipants, e.RegisteredCount, e.Image.URL, e.Image.Key, e.IsListed,
		e.ParticipationType, e.TeamSize.Min, e.TeamSize.Max, e.CreatedBy, e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	return storageError(err)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError(err)
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ListedOnly {
		args = append(args, true)
		conds = append(conds, fmt.Sprintf("is_listed = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d OR LOWER(theme) LIKE $%d)", n, n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, storageError(err)
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY event_date ASC, created_at ASC`
	if params.Paged() {
		args = append(args, params.PageSize, params.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storageError(err)
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, theme = $4, category = $5, event_date = $6, event_time = $7,
			venue = $8, max_participants = $9, is_listed = $10, participation_type = $11,
			team_size_min = $12, team_size_max = $13, updated_at = $14
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Title, e.Description, e.Theme, string(e.Category), e.Date.UTC(), e.Time,
		e.Venue, e.MaxParticipants, e.IsListed, e.ParticipationType,
		e.TeamSize.Min, e.TeamSize.Max, e.UpdatedAt.UTC(),
	)
	return expectOneRow(res, err)
}

func (r *eventRepository) SetListed(ctx context.Context, id string, listed bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE events SET is_listed = $2, updated_at = $3 WHERE id = $1`,
		id, listed, time.Now().UTC(),
	)
	return expectOneRow(res, err)
}

func (r *eventRepository) SetImage(ctx context.Context, id string, image domain.EventImage) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE events SET image_url = $2, image_key = $3, updated_at = $4 WHERE id = $1`,
		id, image.URL, image.Key, time.Now().UTC(),
	)
	return expectOneRow(res, err)
}

func expectOneRow(res sql.Result, err error) error {
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

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM registration_team_members WHERE registration_id IN (SELECT id FROM registrations WHERE event_id = $1)`,
			id,
		); err != nil {
			return storageError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = $1`, id); err != nil {
			return storageError(err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
		return expectOneRow(res, err)
	})
}

func (r *eventRepository) Count(ctx context.Context) (int, int, error) {
	var total, listed int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_listed THEN 1 ELSE 0 END), 0) FROM events`,
	).Scan(&total, &listed)
	if err != nil {
		return 0, 0, storageError(err)
	}
	return total, listed, nil
}

func (r *eventRepository) DecrementCounts(ctx context.Context, byEvent map[string]int) error {
	if len(byEvent) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byEvent))
	for id := range byEvent {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	now := time.Now().UTC()
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, id := range ids {
			if err := decrementCount(ctx, tx, id, byEvent[id], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// decrementCount lowers an event counter by n without going below zero.
func decrementCount(ctx context.Context, q querier, eventID string, n int, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE events
		SET registered_count = CASE WHEN registered_count >= $2 THEN registered_count - $2 ELSE 0 END,
			updated_at = $3
		WHERE id = $1
	`, eventID, n, now)
	return storageError(err)
}

func (r *eventRepository) RecomputeCounters(ctx context.Context) (*domain.ReconcileReport, error) {
	report := &domain.ReconcileReport{Drifted: []domain.CounterDrift{}}
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, registered_count, `+activeCountExpr+` FROM events ORDER BY id`)
		if err != nil {
			return storageError(err)
		}
		defer rows.Close()
		for rows.Next() {
			var d domain.CounterDrift
			if err := rows.Scan(&d.EventID, &d.Stored, &d.Actual); err != nil {
				return err
			}
			report.EventsChecked++
			if d.Stored != d.Actual {
				report.Drifted = append(report.Drifted, d)
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE events SET registered_count = `+activeCountExpr); err != nil {
			return storageError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
