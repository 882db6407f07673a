package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/database"
	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/repository"
)

// ParticipationService is the only code path that mutates participation
// status. Transitions are serialized per row by guarded UPDATEs; when a
// guard loses a race the service re-reads and reports an idempotent no-op
// instead of an error, so a flaky scanner retry never double-advances.
// TxRunner runs a function inside a database transaction, satisfied by
// *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type ParticipationService struct {
	db             TxRunner
	activities     repository.ActivityRepository
	participations repository.ParticipationRepository
}

func NewParticipationService(
	db TxRunner,
	activities repository.ActivityRepository,
	participations repository.ParticipationRepository,
) *ParticipationService {
	return &ParticipationService{
		db:             db,
		activities:     activities,
		participations: participations,
	}
}

// Register creates a registered row for (user, activity). The activity row
// is locked for the duration of the transaction so the participant cap is
// enforced exactly under concurrent registrations.
func (s *ParticipationService) Register(ctx context.Context, userID, activityID uuid.UUID) (*model.Participation, error) {
	var p *model.Participation

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		activities := s.activities.WithTx(tx)
		participations := s.participations.WithTx(tx)

		activity, err := activities.FindByIDForUpdate(ctx, activityID)
		if err != nil {
			return apperrors.Database(err)
		}
		if activity == nil {
			return apperrors.NotFound("Activity")
		}
		if !activity.OpenForRegistration() {
			return apperrors.ActivityNotOpen(string(activity.Status))
		}

		if activity.MaxParticipants != nil {
			count, err := participations.CountByActivity(ctx, activityID)
			if err != nil {
				return apperrors.Database(err)
			}
			if count >= *activity.MaxParticipants {
				return apperrors.ActivityFull()
			}
		}

		created, err := participations.Create(ctx, model.CreateParticipationParams{
			UserID:     userID,
			ActivityID: activityID,
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return apperrors.AlreadyRegistered()
			}
			return apperrors.Database(err)
		}

		p = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("userId", userID.String()).
		Str("activityId", activityID.String()).
		Msg("participation registered")

	return p, nil
}

// CheckIn advances registered → checked_in. The returned bool reports
// whether this call performed the advance; false with a nil error means a
// concurrent or earlier scan already did, which callers surface as an
// "already in this state" success.
func (s *ParticipationService) CheckIn(ctx context.Context, participationID uuid.UUID) (*model.Participation, bool, error) {
	now := time.Now().UTC()

	rows, err := s.participations.MarkCheckedIn(ctx, participationID, now)
	if err != nil {
		return nil, false, apperrors.Database(err)
	}

	p, err := s.participations.FindByID(ctx, participationID)
	if err != nil {
		return nil, false, apperrors.Database(err)
	}
	if p == nil {
		return nil, false, apperrors.NotFound("Participation")
	}

	if rows == 1 {
		return p, true, nil
	}
	if p.Status.AtOrPast(model.ParticipationCheckedIn) {
		return p, false, nil
	}
	return nil, false, apperrors.InvalidTransition(string(p.Status))
}

// CheckOut advances checked_in → checked_out. The row guard also enforces
// checked_out_at > checked_in_at.
func (s *ParticipationService) CheckOut(ctx context.Context, participationID uuid.UUID) (*model.Participation, bool, error) {
	now := time.Now().UTC()

	rows, err := s.participations.MarkCheckedOut(ctx, participationID, now)
	if err != nil {
		return nil, false, apperrors.Database(err)
	}

	p, err := s.participations.FindByID(ctx, participationID)
	if err != nil {
		return nil, false, apperrors.Database(err)
	}
	if p == nil {
		return nil, false, apperrors.NotFound("Participation")
	}

	if rows == 1 {
		return p, true, nil
	}
	if p.Status.AtOrPast(model.ParticipationCheckedOut) {
		return p, false, nil
	}
	return nil, false, apperrors.InvalidTransition(string(p.Status))
}

// FinalizeActivity settles one activity's remaining rows: checked_out
// becomes completed, never-scanned registered becomes no_show. Idempotent.
func (s *ParticipationService) FinalizeActivity(ctx context.Context, activityID uuid.UUID) (completed, noShow int64, err error) {
	now := time.Now().UTC()
	completed, noShow, err = s.participations.FinalizeByActivity(ctx, activityID, now)
	if err != nil {
		return 0, 0, apperrors.Database(err)
	}
	if completed > 0 || noShow > 0 {
		log.Info().
			Str("activityId", activityID.String()).
			Int64("completed", completed).
			Int64("noShow", noShow).
			Msg("activity finalized")
	}
	return completed, noShow, nil
}

// FinalizeEnded is the sweep entry point: it finalizes every activity whose
// end time has passed and that still has unsettled rows. Re-running it is a
// no-op for already-finalized activities.
func (s *ParticipationService) FinalizeEnded(ctx context.Context, now time.Time) (completed, noShow int64, err error) {
	ids, err := s.activities.ListEndedIDs(ctx, now)
	if err != nil {
		return 0, 0, apperrors.Database(err)
	}

	for _, id := range ids {
		c, n, err := s.FinalizeActivity(ctx, id)
		if err != nil {
			return completed, noShow, err
		}
		completed += c
		noShow += n
	}
	return completed, noShow, nil
}
