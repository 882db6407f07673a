package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/repository"
	"github.com/campuspass/checkin-server-go/internal/session"
	"github.com/campuspass/checkin-server-go/internal/util"
)

// SessionStore is the session-store surface the services depend on,
// satisfied by *session.Store.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, admin *model.AdminSnapshot, rememberMe bool, meta model.SessionMeta) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Renew(ctx context.Context, id string) (*model.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateAdminSnapshot(ctx context.Context, id string, admin *model.AdminSnapshot) error
}

// AuthService owns login, logout and session renewal. The admin role is
// snapshotted into the session at login; privilege-sensitive routes call
// RevalidateAdmin to refresh the snapshot against the database.
type AuthService struct {
	users    repository.UserRepository
	roles    repository.AdminRoleRepository
	sessions SessionStore
}

func NewAuthService(
	users repository.UserRepository,
	roles repository.AdminRoleRepository,
	sessions SessionStore,
) *AuthService {
	return &AuthService{
		users:    users,
		roles:    roles,
		sessions: sessions,
	}
}

// Login verifies credentials and issues a session. The failure message is
// identical for unknown email and wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool, meta model.SessionMeta) (*model.Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		log.Warn().Str("email", email).Msg("login failed")
		return nil, apperrors.Unauthorized("Invalid email or password")
	}

	role, err := s.roles.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	sess, err := s.sessions.Create(ctx, user.ID, role.Snapshot(), rememberMe, meta)
	if err != nil {
		return nil, apperrors.StoreUnavailable("session store", err)
	}

	return sess, nil
}

// Logout revokes a session by id. A caller may revoke its own session;
// revoking someone else's requires the super-admin rank.
func (s *AuthService) Logout(ctx context.Context, actor *model.Session, targetID string) error {
	target, err := s.sessions.Get(ctx, targetID)
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
		// Idempotent: the session is already gone.
		return nil
	}
	if err != nil {
		return apperrors.StoreUnavailable("session store", err)
	}

	if target.UserID != actor.UserID {
		if actor.Admin == nil || actor.Admin.Level != model.AdminLevelSuper {
			return apperrors.Forbidden("Super-admin rank is required to revoke another user's session")
		}
	}

	if err := s.sessions.Revoke(ctx, targetID); err != nil {
		return apperrors.StoreUnavailable("session store", err)
	}
	return nil
}

// LogoutAll force-revokes every session of a user. Super-admin only, except
// for the user acting on themselves.
func (s *AuthService) LogoutAll(ctx context.Context, actor *model.Session, userID uuid.UUID) (int, error) {
	if userID != actor.UserID {
		if actor.Admin == nil || actor.Admin.Level != model.AdminLevelSuper {
			return 0, apperrors.Forbidden("Super-admin rank is required to force-logout another user")
		}
	}

	revoked, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, apperrors.StoreUnavailable("session store", err)
	}
	return revoked, nil
}

// Renew extends the session within its bounded maximum lifetime.
func (s *AuthService) Renew(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.Renew(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apperrors.Unauthorized("Invalid session")
	}
	if errors.Is(err, session.ErrExpired) {
		return nil, apperrors.SessionExpired()
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("session store", err)
	}
	return sess, nil
}

// RevalidateAdmin re-fetches the actor's role and refreshes the session
// snapshot. The underlying role can change after issuance, so admin routes
// must not trust the snapshot alone for privilege-sensitive operations.
func (s *AuthService) RevalidateAdmin(ctx context.Context, sess *model.Session) (*model.Session, error) {
	role, err := s.roles.FindByUserID(ctx, sess.UserID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	snapshot := role.Snapshot()
	if err := s.sessions.UpdateAdminSnapshot(ctx, sess.ID, snapshot); err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil, apperrors.SessionExpired()
		}
		return nil, apperrors.StoreUnavailable("session store", err)
	}

	refreshed := *sess
	refreshed.Admin = snapshot
	return &refreshed, nil
}
