package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/audit"
	"github.com/campuspass/checkin-server-go/internal/authz"
	"github.com/campuspass/checkin-server-go/internal/credential"
	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/repository"
	"github.com/campuspass/checkin-server-go/internal/session"
)

// ScanAction names what a scan did to the participation.
type ScanAction string

const (
	ScanCheckedIn         ScanAction = "checked_in"
	ScanCheckedOut        ScanAction = "checked_out"
	ScanAlreadyCheckedIn  ScanAction = "already_checked_in"
	ScanAlreadyCheckedOut ScanAction = "already_checked_out"
)

type ScanResult struct {
	Participation *model.Participation `json:"participation"`
	Action        ScanAction           `json:"action"`
	Message       string               `json:"message"`
}

// CheckinService orchestrates a scan event. The order of checks is fixed:
// credential validity comes before authorization and before any state-machine
// access, so an invalid or expired scan leaks nothing about whether a
// participation exists or what state it is in.
type CheckinService struct {
	sessions       SessionStore
	signer         *credential.Signer
	activities     repository.ActivityRepository
	participations repository.ParticipationRepository
	state          *ParticipationService
	broker         session.EventPublisher
}

func NewCheckinService(
	sessions SessionStore,
	signer *credential.Signer,
	activities repository.ActivityRepository,
	participations repository.ParticipationRepository,
	state *ParticipationService,
	broker session.EventPublisher,
) *CheckinService {
	return &CheckinService{
		sessions:       sessions,
		signer:         signer,
		activities:     activities,
		participations: participations,
		state:          state,
		broker:         broker,
	}
}

// IssueCredential returns a fresh signed QR payload for the session holder.
func (s *CheckinService) IssueCredential(ctx context.Context, sess *model.Session) (*credential.Credential, error) {
	cred, err := s.signer.Issue(sess)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue credential").WithCause(err)
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventQRIssue,
		UserID: sess.UserID.String(),
	})

	return cred, nil
}

// Scan verifies a presented credential and toggles the participation state.
func (s *CheckinService) Scan(ctx context.Context, adminSess *model.Session, activityID uuid.UUID, encodedPayload, signature string) (*ScanResult, error) {
	// 1. Decode and resolve the signing session. A payload under a revoked
	// or expired session fails here, before the signature is even looked at.
	payload, err := credential.DecodePayload(encodedPayload)
	if err != nil {
		return nil, apperrors.InvalidCredential()
	}

	signing, err := s.sessions.Get(ctx, payload.SessionID)
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
		return nil, apperrors.InvalidCredential()
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("session store", err)
	}
	if signing.UserID != payload.UserID {
		return nil, apperrors.InvalidCredential()
	}

	// 2. Signature, keyed by the signing session.
	if !s.signer.Verify(payload, signature, signing.ID) {
		return nil, apperrors.InvalidCredential()
	}

	// 3. TTL window.
	if !s.signer.FreshAt(payload, time.Now().UTC()) {
		return nil, apperrors.ExpiredCredential()
	}

	// 4. Scanning admin's scope over the activity's faculty.
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if activity == nil {
		return nil, apperrors.NotFound("Activity")
	}
	if err := authz.ValidateFacultyAccess(adminSess, activity.FacultyID); err != nil {
		audit.Log(ctx, audit.Event{
			Type:       audit.EventScanDenied,
			UserID:     adminSess.UserID.String(),
			ActivityID: activityID.String(),
			Details: map[string]interface{}{
				"reason": "faculty_scope",
			},
		})
		return nil, err
	}

	// 5. The participation row.
	p, err := s.participations.FindByUserAndActivity(ctx, payload.UserID, activityID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if p == nil {
		return nil, apperrors.NotRegistered()
	}

	// 6. Toggle. A scan never re-opens a participation past checked_out.
	result, err := s.toggle(ctx, p)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:       audit.EventScanSuccess,
		UserID:     payload.UserID.String(),
		ActivityID: activityID.String(),
		Details: map[string]interface{}{
			"action":  string(result.Action),
			"scanner": adminSess.UserID.String(),
		},
	})

	s.notifyParticipant(ctx, payload.UserID, result)

	return result, nil
}

func (s *CheckinService) toggle(ctx context.Context, p *model.Participation) (*ScanResult, error) {
	switch p.Status {
	case model.ParticipationRegistered:
		updated, advanced, err := s.state.CheckIn(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if advanced {
			return &ScanResult{Participation: updated, Action: ScanCheckedIn, Message: "Checked in"}, nil
		}
		return &ScanResult{Participation: updated, Action: ScanAlreadyCheckedIn, Message: "Already checked in"}, nil

	case model.ParticipationCheckedIn:
		updated, advanced, err := s.state.CheckOut(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if advanced {
			return &ScanResult{Participation: updated, Action: ScanCheckedOut, Message: "Checked out"}, nil
		}
		return &ScanResult{Participation: updated, Action: ScanAlreadyCheckedOut, Message: "Already checked out"}, nil

	default:
		return nil, apperrors.InvalidTransition(string(p.Status))
	}
}

func (s *CheckinService) notifyParticipant(ctx context.Context, userID uuid.UUID, result *ScanResult) {
	if s.broker == nil {
		return
	}
	err := s.broker.PublishToUser(ctx, userID.String(), "scan", map[string]any{
		"activityId": result.Participation.ActivityID.String(),
		"action":     string(result.Action),
		"status":     string(result.Participation.Status),
	})
	if err != nil {
		log.Warn().Err(err).Str("userId", userID.String()).Msg("failed to publish scan event")
	}
}
