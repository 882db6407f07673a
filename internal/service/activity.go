package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuspass/checkin-server-go/internal/audit"
	"github.com/campuspass/checkin-server-go/internal/authz"
	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/repository"
)

const defaultListLimit = 50

// ActivityService covers the admin-facing reads plus registration and the
// explicit finalize operation. Every faculty-scoped call takes the acting
// session explicitly; there is no ambient request state.
type ActivityService struct {
	activities repository.ActivityRepository
	state      *ParticipationService
}

func NewActivityService(activities repository.ActivityRepository, state *ParticipationService) *ActivityService {
	return &ActivityService{
		activities: activities,
		state:      state,
	}
}

// Get returns an activity visible to the session.
func (s *ActivityService) Get(ctx context.Context, sess *model.Session, id uuid.UUID) (*model.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if activity == nil {
		return nil, apperrors.NotFound("Activity")
	}
	if err := authz.ValidateFacultyAccess(sess, activity.FacultyID); err != nil {
		return nil, err
	}
	return activity, nil
}

// List returns activities within the session's faculty scope.
func (s *ActivityService) List(ctx context.Context, sess *model.Session, limit, offset int) ([]model.Activity, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	scope := authz.AccessibleFaculties(sess)
	if scope.All {
		activities, err := s.activities.ListAll(ctx, limit, offset)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		return activities, nil
	}
	if len(scope.IDs) == 0 {
		return nil, apperrors.Forbidden("An admin role is required to list activities")
	}

	activities, err := s.activities.ListByFaculties(ctx, scope.IDs, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return activities, nil
}

// Register enrolls the session holder in the activity.
func (s *ActivityService) Register(ctx context.Context, sess *model.Session, activityID uuid.UUID) (*model.Participation, error) {
	p, err := s.state.Register(ctx, sess.UserID, activityID)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventRegister,
		UserID:     sess.UserID.String(),
		ActivityID: activityID.String(),
	})

	return p, nil
}

// Finalize settles an ended activity's participations. Before the end time
// it requires an explicit override from the admin.
func (s *ActivityService) Finalize(ctx context.Context, sess *model.Session, activityID uuid.UUID, override bool) (completed, noShow int64, err error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		return 0, 0, apperrors.Database(err)
	}
	if activity == nil {
		return 0, 0, apperrors.NotFound("Activity")
	}
	if err := authz.ValidateFacultyAccess(sess, activity.FacultyID); err != nil {
		return 0, 0, err
	}
	if !activity.Ended(time.Now().UTC()) && !override {
		return 0, 0, apperrors.New(apperrors.ErrCodeInvalidTransition, "Activity has not ended yet")
	}

	completed, noShow, err = s.state.FinalizeActivity(ctx, activityID)
	if err != nil {
		return 0, 0, err
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventFinalize,
		UserID:     sess.UserID.String(),
		ActivityID: activityID.String(),
		Details: map[string]interface{}{
			"completed": completed,
			"noShow":    noShow,
			"override":  override,
		},
	})

	return completed, noShow, nil
}
