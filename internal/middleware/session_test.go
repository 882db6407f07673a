package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/session"
)

type mockSessionGetter struct {
	getFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionGetter) Get(ctx context.Context, id string) (*model.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, session.ErrNotFound
}

type mockRevalidator struct {
	revalidateFunc func(ctx context.Context, sess *model.Session) (*model.Session, error)
}

func (m *mockRevalidator) RevalidateAdmin(ctx context.Context, sess *model.Session) (*model.Session, error) {
	if m.revalidateFunc != nil {
		return m.revalidateFunc(ctx, sess)
	}
	return sess, nil
}

func okHandler(captured **model.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = GetSession(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionMiddleware_Handler(t *testing.T) {
	t.Run("missing header rejected", func(t *testing.T) {
		mw := NewSessionMiddleware(&mockSessionGetter{}, &mockRevalidator{})

		req := httptest.NewRequest("GET", "/", nil)
		rec := httptest.NewRecorder()
		mw.Handler(okHandler(nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid session injected into context", func(t *testing.T) {
		sess := &model.Session{ID: "valid-id", UserID: uuid.New()}
		store := &mockSessionGetter{
			getFunc: func(ctx context.Context, id string) (*model.Session, error) {
				assert.Equal(t, "valid-id", id)
				return sess, nil
			},
		}
		mw := NewSessionMiddleware(store, &mockRevalidator{})

		var captured *model.Session
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer valid-id")
		rec := httptest.NewRecorder()
		mw.Handler(okHandler(&captured)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, sess.UserID, captured.UserID)
	})

	t.Run("unknown and expired sessions answered identically", func(t *testing.T) {
		responses := make([]*httptest.ResponseRecorder, 0, 2)
		for _, sentinel := range []error{session.ErrNotFound, session.ErrExpired} {
			err := sentinel
			store := &mockSessionGetter{
				getFunc: func(ctx context.Context, id string) (*model.Session, error) {
					return nil, err
				},
			}
			mw := NewSessionMiddleware(store, &mockRevalidator{})

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", "Bearer some-id")
			rec := httptest.NewRecorder()
			mw.Handler(okHandler(nil)).ServeHTTP(rec, req)
			responses = append(responses, rec)
		}

		assert.Equal(t, http.StatusUnauthorized, responses[0].Code)
		assert.Equal(t, responses[0].Code, responses[1].Code)
		assert.Equal(t, responses[0].Body.String(), responses[1].Body.String())
	})

	t.Run("store outage is a 503, not a 401", func(t *testing.T) {
		store := &mockSessionGetter{
			getFunc: func(ctx context.Context, id string) (*model.Session, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		}
		mw := NewSessionMiddleware(store, &mockRevalidator{})

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer some-id")
		rec := httptest.NewRecorder()
		mw.Handler(okHandler(nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("non-bearer authorization rejected", func(t *testing.T) {
		mw := NewSessionMiddleware(&mockSessionGetter{}, &mockRevalidator{})

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		mw.Handler(okHandler(nil)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSessionMiddleware_RequireAdmin(t *testing.T) {
	withSession := func(sess *model.Session, next http.Handler) (*httptest.ResponseRecorder, *http.Request) {
		req := httptest.NewRequest("GET", "/", nil)
		if sess != nil {
			req = req.WithContext(context.WithValue(req.Context(), SessionContextKey, sess))
		}
		return httptest.NewRecorder(), req
	}

	t.Run("no session rejected", func(t *testing.T) {
		mw := NewSessionMiddleware(&mockSessionGetter{}, &mockRevalidator{})
		rec, req := withSession(nil, nil)
		mw.RequireAdmin(okHandler(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin rejected after revalidation", func(t *testing.T) {
		sess := &model.Session{ID: "id", UserID: uuid.New()}
		mw := NewSessionMiddleware(&mockSessionGetter{}, &mockRevalidator{})

		rec, req := withSession(sess, nil)
		mw.RequireAdmin(okHandler(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("demotion takes effect on the next privileged request", func(t *testing.T) {
		// The session still carries an admin snapshot, but the database says
		// the role is gone.
		sess := &model.Session{
			ID:     "id",
			UserID: uuid.New(),
			Admin:  &model.AdminSnapshot{Level: model.AdminLevelSuper},
		}
		auth := &mockRevalidator{
			revalidateFunc: func(ctx context.Context, s *model.Session) (*model.Session, error) {
				demoted := *s
				demoted.Admin = nil
				return &demoted, nil
			},
		}
		mw := NewSessionMiddleware(&mockSessionGetter{}, auth)

		rec, req := withSession(sess, nil)
		mw.RequireAdmin(okHandler(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes with refreshed snapshot in context", func(t *testing.T) {
		facultyID := uuid.New()
		sess := &model.Session{
			ID:     "id",
			UserID: uuid.New(),
			Admin:  &model.AdminSnapshot{Level: model.AdminLevelSuper},
		}
		auth := &mockRevalidator{
			revalidateFunc: func(ctx context.Context, s *model.Session) (*model.Session, error) {
				refreshed := *s
				refreshed.Admin = &model.AdminSnapshot{Level: model.AdminLevelFaculty, FacultyID: &facultyID}
				return &refreshed, nil
			},
		}
		mw := NewSessionMiddleware(&mockSessionGetter{}, auth)

		var captured *model.Session
		rec, req := withSession(sess, nil)
		mw.RequireAdmin(okHandler(&captured)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		require.NotNil(t, captured.Admin)
		assert.Equal(t, model.AdminLevelFaculty, captured.Admin.Level)
	})
}

func TestGetSession(t *testing.T) {
	t.Run("returns nil outside authenticated routes", func(t *testing.T) {
		assert.Nil(t, GetSession(context.Background()))
	})
}
