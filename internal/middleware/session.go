package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/audit"
	"github.com/campuspass/checkin-server-go/internal/authz"
	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/session"
)

type contextKey string

const SessionContextKey contextKey = "session"

// GetSession returns the resolved session, or nil outside authenticated
// routes. Handlers pass it down explicitly: authorization-sensitive service
// calls all take the session as a parameter.
func GetSession(ctx context.Context) *model.Session {
	if sess, ok := ctx.Value(SessionContextKey).(*model.Session); ok {
		return sess
	}
	return nil
}

// SessionGetter resolves a plaintext session id, satisfied by *session.Store.
type SessionGetter interface {
	Get(ctx context.Context, id string) (*model.Session, error)
}

// AdminRevalidator refreshes the actor's role snapshot, satisfied by
// *service.AuthService.
type AdminRevalidator interface {
	RevalidateAdmin(ctx context.Context, sess *model.Session) (*model.Session, error)
}

type SessionMiddleware struct {
	store SessionGetter
	auth  AdminRevalidator
}

func NewSessionMiddleware(store SessionGetter, auth AdminRevalidator) *SessionMiddleware {
	return &SessionMiddleware{store: store, auth: auth}
}

// Handler resolves the bearer session id and injects the session record.
// Not-found and expired are answered identically: a 401 that does not reveal
// whether the id ever existed.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := extractSessionID(r)
		if id == "" {
			writeError(w, apperrors.Unauthorized("Missing session"))
			return
		}

		sess, err := m.store.Get(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			writeError(w, apperrors.Unauthorized("Invalid or expired session"))
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("session middleware: store error")
			writeError(w, apperrors.StoreUnavailable("session store", err))
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates admin routes. The role snapshot is re-validated against
// the database here, so a demotion takes effect on the next privileged
// request rather than at session expiry.
func (m *SessionMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil {
			writeError(w, apperrors.Unauthorized("Missing session"))
			return
		}

		refreshed, err := m.auth.RevalidateAdmin(r.Context(), sess)
		if err != nil {
			writeError(w, err)
			return
		}

		if !authz.IsAdmin(refreshed) {
			audit.LogFromRequest(r, audit.Event{
				Type:   audit.EventScopeDenied,
				UserID: sess.UserID.String(),
			})
			writeError(w, apperrors.Forbidden("An admin role is required"))
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, refreshed)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractSessionID(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
