package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mileusna/useragent"

	"github.com/campuspass/checkin-server-go/internal/audit"
	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/middleware"
	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/service"
)

type SessionHandler struct {
	authService *service.AuthService
	sessionMW   *middleware.SessionMiddleware
	loginLimit  func(http.Handler) http.Handler
}

func NewSessionHandler(
	authService *service.AuthService,
	sessionMW *middleware.SessionMiddleware,
	loginLimit func(http.Handler) http.Handler,
) *SessionHandler {
	return &SessionHandler{
		authService: authService,
		sessionMW:   sessionMW,
		loginLimit:  loginLimit,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginLimit).Post("/", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMW.Handler)
		r.Delete("/{sessionID}", h.Logout)
		r.Post("/renew", h.Renew)
		r.Delete("/", h.LogoutAll)
	})

	return r
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type loginResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsAdmin   bool      `json:"isAdmin"`
}

// POST /v1/sessions
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Email, req.Password, req.RememberMe, sessionMeta(r))
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventLoginFailure,
			Details: map[string]interface{}{"email": req.Email},
		})
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventLoginSuccess,
		UserID: sess.UserID.String(),
	})

	writeSuccess(w, http.StatusCreated, loginResponse{
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
		IsAdmin:   sess.Admin != nil,
	})
}

// DELETE /v1/sessions/{sessionID}
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "sessionID")
	if targetID == "" {
		writeError(w, apperrors.MissingRequired("sessionID"))
		return
	}

	actor := middleware.GetSession(r.Context())
	if err := h.authService.Logout(r.Context(), actor, targetID); err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventLogout,
		UserID: actor.UserID.String(),
	})

	writeSuccess(w, http.StatusOK, nil)
}

// DELETE /v1/sessions revokes every session of the caller.
func (h *SessionHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetSession(r.Context())

	revoked, err := h.authService.LogoutAll(r.Context(), actor, actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventLogout,
		UserID:  actor.UserID.String(),
		Details: map[string]interface{}{"revoked": revoked},
	})

	writeSuccess(w, http.StatusOK, map[string]any{"revoked": revoked})
}

// POST /v1/sessions/renew
func (h *SessionHandler) Renew(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetSession(r.Context())

	sess, err := h.authService.Renew(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventSessionRenew,
		UserID: sess.UserID.String(),
	})

	writeSuccess(w, http.StatusOK, map[string]any{
		"expiresAt": sess.ExpiresAt,
	})
}

// sessionMeta captures the device and address metadata stored on the
// session, which also feeds the QR device fingerprint.
func sessionMeta(r *http.Request) model.SessionMeta {
	ua := useragent.Parse(r.UserAgent())
	device := "unknown"
	if ua.Name != "" {
		device = fmt.Sprintf("%s/%s (%s)", ua.Name, ua.Version, ua.OS)
	}
	return model.SessionMeta{
		IP:     r.RemoteAddr,
		Device: device,
	}
}
