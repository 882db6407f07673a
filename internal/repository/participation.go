package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuspass/checkin-server-go/internal/model"
)

// ParticipationRepository mediates every write to participation rows. The
// Mark* methods are guarded updates: the WHERE clause re-checks the expected
// current status, so a row is advanced at most once no matter how many
// concurrent scans race on it. Zero rows affected means the guard failed and
// the caller re-reads to decide between an idempotent no-op and a rejected
// transition.
type ParticipationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Participation, error)
	FindByUserAndActivity(ctx context.Context, userID, activityID uuid.UUID) (*model.Participation, error)
	Create(ctx context.Context, params model.CreateParticipationParams) (*model.Participation, error)
	CountByActivity(ctx context.Context, activityID uuid.UUID) (int, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	FinalizeByActivity(ctx context.Context, activityID uuid.UUID, at time.Time) (completed, noShow int64, err error)
	WithTx(tx *sqlx.Tx) ParticipationRepository
}

type participationDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type participationRepo struct {
	db participationDB
}

func NewParticipationRepository(db *sqlx.DB) ParticipationRepository {
	return &participationRepo{db: db}
}

func (r *participationRepo) WithTx(tx *sqlx.Tx) ParticipationRepository {
	return &participationRepo{db: tx}
}

func (r *participationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Participation, error) {
	var p model.Participation
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM participations WHERE id = $1
	`, id)
	return HandleNotFound(&p, err)
}

func (r *participationRepo) FindByUserAndActivity(ctx context.Context, userID, activityID uuid.UUID) (*model.Participation, error) {
	var p model.Participation
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM participations
		WHERE user_id = $1 AND activity_id = $2
	`, userID, activityID)
	return HandleNotFound(&p, err)
}

func (r *participationRepo) Create(ctx context.Context, params model.CreateParticipationParams) (*model.Participation, error) {
	var p model.Participation
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO participations (user_id, activity_id, status, registered_at)
		VALUES ($1, $2, 'registered', NOW())
		RETURNING *
	`, params.UserID, params.ActivityID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participationRepo) CountByActivity(ctx context.Context, activityID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM participations WHERE activity_id = $1
	`, activityID)
	return count, err
}

func (r *participationRepo) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE participations SET
			status = 'checked_in',
			checked_in_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'registered'
	`, id, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// MarkCheckedOut additionally guards checked_out_at > checked_in_at.
func (r *participationRepo) MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE participations SET
			status = 'checked_out',
			checked_out_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'checked_in' AND checked_in_at < $2
	`, id, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FinalizeByActivity settles all remaining rows for one ended activity:
// checked_out rows complete, never-scanned rows become no_show. Re-running
// it matches zero rows and is a no-op.
func (r *participationRepo) FinalizeByActivity(ctx context.Context, activityID uuid.UUID, at time.Time) (int64, int64, error) {
	completedRes, err := r.db.ExecContext(ctx, `
		UPDATE participations SET
			status = 'completed',
			updated_at = $2
		WHERE activity_id = $1 AND status = 'checked_out'
	`, activityID, at)
	if err != nil {
		return 0, 0, err
	}
	completed, err := completedRes.RowsAffected()
	if err != nil {
		return 0, 0, err
	}

	noShowRes, err := r.db.ExecContext(ctx, `
		UPDATE participations SET
			status = 'no_show',
			updated_at = $2
		WHERE activity_id = $1 AND status = 'registered'
	`, activityID, at)
	if err != nil {
		return completed, 0, err
	}
	noShow, err := noShowRes.RowsAffected()
	if err != nil {
		return completed, 0, err
	}

	return completed, noShow, nil
}
