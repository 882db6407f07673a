package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspass/checkin-server-go/internal/model"
)

type ActivityRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	// FindByIDForUpdate locks the activity row for the duration of the
	// transaction; the registration cap is enforced under this lock.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	ListByFaculties(ctx context.Context, facultyIDs []uuid.UUID, limit, offset int) ([]model.Activity, error)
	ListAll(ctx context.Context, limit, offset int) ([]model.Activity, error)
	ListEndedIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	WithTx(tx *sqlx.Tx) ActivityRepository
}

type activityDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type activityRepo struct {
	db activityDB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) WithTx(tx *sqlx.Tx) ActivityRepository {
	return &activityRepo{db: tx}
}

func (r *activityRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.GetContext(ctx, &activity, `
		SELECT * FROM activities WHERE id = $1
	`, id)
	return HandleNotFound(&activity, err)
}

func (r *activityRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	err := r.db.GetContext(ctx, &activity, `
		SELECT * FROM activities WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&activity, err)
}

func (r *activityRepo) ListByFaculties(ctx context.Context, facultyIDs []uuid.UUID, limit, offset int) ([]model.Activity, error) {
	if len(facultyIDs) == 0 {
		return []model.Activity{}, nil
	}
	query, args, err := sqlx.In(`
		SELECT * FROM activities
		WHERE faculty_id IN (?)
		ORDER BY starts_at DESC
		LIMIT ? OFFSET ?
	`, facultyIDs, limit, offset)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	activities := []model.Activity{}
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Activity, error) {
	activities := []model.Activity{}
	err := r.db.SelectContext(ctx, &activities, `
		SELECT * FROM activities
		ORDER BY starts_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// ListEndedIDs returns activities whose window has passed and that still have
// participations awaiting the finalize sweep.
func (r *activityRepo) ListEndedIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT a.id FROM activities a
		JOIN participations p ON p.activity_id = a.id
		WHERE a.ends_at < $1
		AND a.status NOT IN ('draft', 'cancelled')
		AND p.status IN ('registered', 'checked_out')
	`, now)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
