package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuspass/checkin-server-go/internal/database"
	"github.com/campuspass/checkin-server-go/internal/httputil"
	"github.com/campuspass/checkin-server-go/internal/middleware"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/repository"
	"github.com/campuspass/checkin-server-go/internal/service"
	"github.com/campuspass/checkin-server-go/internal/session"
)

// Mock repositories and session store

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockAdminRoleRepo struct {
	mock.Mock
}

func (m *mockAdminRoleRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.AdminRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminRole), args.Error(1)
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Create(ctx context.Context, userID uuid.UUID, admin *model.AdminSnapshot, rememberMe bool, meta model.SessionMeta) (*model.Session, error) {
	args := m.Called(ctx, userID, admin, rememberMe, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionStore) Renew(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionStore) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionStore) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionStore) UpdateAdminSnapshot(ctx context.Context, id string, admin *model.AdminSnapshot) error {
	args := m.Called(ctx, id, admin)
	return args.Error(0)
}

type mockActivityRepo struct {
	mock.Mock
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *mockActivityRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *mockActivityRepo) ListByFaculties(ctx context.Context, facultyIDs []uuid.UUID, limit, offset int) ([]model.Activity, error) {
	args := m.Called(ctx, facultyIDs, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Activity), args.Error(1)
}

func (m *mockActivityRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Activity, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Activity), args.Error(1)
}

func (m *mockActivityRepo) ListEndedIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockActivityRepo) WithTx(tx *sqlx.Tx) repository.ActivityRepository {
	return m
}

type mockParticipationRepo struct {
	mock.Mock
}

func (m *mockParticipationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Participation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participation), args.Error(1)
}

func (m *mockParticipationRepo) FindByUserAndActivity(ctx context.Context, userID, activityID uuid.UUID) (*model.Participation, error) {
	args := m.Called(ctx, userID, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participation), args.Error(1)
}

func (m *mockParticipationRepo) Create(ctx context.Context, params model.CreateParticipationParams) (*model.Participation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participation), args.Error(1)
}

func (m *mockParticipationRepo) CountByActivity(ctx context.Context, activityID uuid.UUID) (int, error) {
	args := m.Called(ctx, activityID)
	return args.Int(0), args.Error(1)
}

func (m *mockParticipationRepo) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockParticipationRepo) MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockParticipationRepo) FinalizeByActivity(ctx context.Context, activityID uuid.UUID, at time.Time) (int64, int64, error) {
	args := m.Called(ctx, activityID, at)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *mockParticipationRepo) WithTx(tx *sqlx.Tx) repository.ParticipationRepository {
	return m
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

func noLimit(next http.Handler) http.Handler { return next }

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

type sessionRig struct {
	users  *mockUserRepo
	roles  *mockAdminRoleRepo
	store  *mockSessionStore
	router chi.Router
}

func newSessionRig() *sessionRig {
	users := new(mockUserRepo)
	roles := new(mockAdminRoleRepo)
	store := new(mockSessionStore)

	authService := service.NewAuthService(users, roles, store)
	sessionMW := middleware.NewSessionMiddleware(store, authService)
	h := NewSessionHandler(authService, sessionMW, noLimit)

	router := chi.NewRouter()
	router.Mount("/v1/sessions", h.Routes())

	return &sessionRig{users: users, roles: roles, store: store, router: router}
}

func postJSON(t *testing.T, router http.Handler, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("issues a session", func(t *testing.T) {
		rig := newSessionRig()

		user := &model.User{
			ID:           uuid.New(),
			Email:        "student@campus.edu",
			PasswordHash: bcryptHash(t, "secret123"),
		}
		rig.users.On("FindByEmail", mock.Anything, "student@campus.edu").Return(user, nil)
		rig.roles.On("FindByUserID", mock.Anything, user.ID).Return(nil, nil)
		rig.store.On("Create", mock.Anything, user.ID, (*model.AdminSnapshot)(nil), false, mock.AnythingOfType("model.SessionMeta")).
			Return(&model.Session{
				ID:        "issued-session-id",
				UserID:    user.ID,
				ExpiresAt: time.Now().Add(12 * time.Hour),
			}, nil)

		rec := postJSON(t, rig.router, "/v1/sessions", map[string]any{
			"email":    "student@campus.edu",
			"password": "secret123",
		}, "")

		assert.Equal(t, http.StatusCreated, rec.Code)

		var body httputil.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)

		data := body.Data.(map[string]any)
		assert.Equal(t, "issued-session-id", data["sessionId"])
		assert.Equal(t, false, data["isAdmin"])
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rig := newSessionRig()

		req := httptest.NewRequest("POST", "/v1/sessions", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		rig.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing fields with field detail", func(t *testing.T) {
		rig := newSessionRig()

		rec := postJSON(t, rig.router, "/v1/sessions", map[string]any{"email": "not-an-email"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rig.users.AssertNotCalled(t, "FindByEmail")
	})

	t.Run("bad password yields 401", func(t *testing.T) {
		rig := newSessionRig()

		user := &model.User{
			ID:           uuid.New(),
			Email:        "student@campus.edu",
			PasswordHash: bcryptHash(t, "right-password"),
		}
		rig.users.On("FindByEmail", mock.Anything, "student@campus.edu").Return(user, nil)

		rec := postJSON(t, rig.router, "/v1/sessions", map[string]any{
			"email":    "student@campus.edu",
			"password": "wrong-password",
		}, "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRenewEndpoint(t *testing.T) {
	rig := newSessionRig()

	actor := &model.Session{ID: "live-session", UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	renewed := &model.Session{ID: "live-session", UserID: actor.UserID, ExpiresAt: time.Now().Add(12 * time.Hour)}

	rig.store.On("Get", mock.Anything, "live-session").Return(actor, nil)
	rig.store.On("Renew", mock.Anything, "live-session").Return(renewed, nil)

	rec := postJSON(t, rig.router, "/v1/sessions/renew", map[string]any{}, "live-session")

	assert.Equal(t, http.StatusOK, rec.Code)
	rig.store.AssertCalled(t, "Renew", mock.Anything, "live-session")
}

func TestLogoutEndpoint(t *testing.T) {
	rig := newSessionRig()

	actor := &model.Session{ID: "live-session", UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	rig.store.On("Get", mock.Anything, "live-session").Return(actor, nil)
	rig.store.On("Revoke", mock.Anything, "live-session").Return(nil)

	req := httptest.NewRequest("DELETE", "/v1/sessions/live-session", nil)
	req.Header.Set("Authorization", "Bearer live-session")
	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	rig.store.AssertCalled(t, "Revoke", mock.Anything, "live-session")
}

func TestLogoutAllEndpoint(t *testing.T) {
	rig := newSessionRig()

	actor := &model.Session{ID: "live-session", UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	rig.store.On("Get", mock.Anything, "live-session").Return(actor, nil)
	rig.store.On("RevokeAll", mock.Anything, actor.UserID).Return(3, nil)

	req := httptest.NewRequest("DELETE", "/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer live-session")
	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body.Data.(map[string]any)
	assert.Equal(t, float64(3), data["revoked"])
}

func TestAuthenticatedRoutesRejectMissingSession(t *testing.T) {
	rig := newSessionRig()
	rig.store.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, session.ErrNotFound)

	req := httptest.NewRequest("POST", "/v1/sessions/renew", nil)
	req.Header.Set("Authorization", "Bearer revoked-id")
	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
