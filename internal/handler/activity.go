package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/middleware"
	"github.com/campuspass/checkin-server-go/internal/service"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	checkinService  *service.CheckinService
	sessionMW       *middleware.SessionMiddleware
	scanLimit       func(http.Handler) http.Handler
}

func NewActivityHandler(
	activityService *service.ActivityService,
	checkinService *service.CheckinService,
	sessionMW *middleware.SessionMiddleware,
	scanLimit func(http.Handler) http.Handler,
) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		checkinService:  checkinService,
		sessionMW:       sessionMW,
		scanLimit:       scanLimit,
	}
}

func (h *ActivityHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Any authenticated user may register.
	r.Post("/{activityID}/participate", h.Participate)

	// Admin surface: scope re-validated per request.
	r.Group(func(r chi.Router) {
		r.Use(h.sessionMW.RequireAdmin)
		r.Get("/", h.List)
		r.Get("/{activityID}", h.Get)
		r.With(h.scanLimit).Post("/{activityID}/scan", h.Scan)
		r.Post("/{activityID}/finalize", h.Finalize)
	})

	return r
}

// POST /v1/activities/{activityID}/participate
func (h *ActivityHandler) Participate(w http.ResponseWriter, r *http.Request) {
	activityID, err := parseActivityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sess := middleware.GetSession(r.Context())
	p, err := h.activityService.Register(r.Context(), sess, activityID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, p)
}

type scanRequest struct {
	QRPayload string `json:"qr_payload" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// POST /v1/activities/{activityID}/scan
func (h *ActivityHandler) Scan(w http.ResponseWriter, r *http.Request) {
	activityID, err := parseActivityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req scanRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess := middleware.GetSession(r.Context())
	result, err := h.checkinService.Scan(r.Context(), sess, activityID, req.QRPayload, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// GET /v1/activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sess := middleware.GetSession(r.Context())
	activities, err := h.activityService.List(r.Context(), sess, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, activities)
}

// GET /v1/activities/{activityID}
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	activityID, err := parseActivityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sess := middleware.GetSession(r.Context())
	activity, err := h.activityService.Get(r.Context(), sess, activityID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, activity)
}

type finalizeRequest struct {
	Override bool `json:"override"`
}

// POST /v1/activities/{activityID}/finalize
func (h *ActivityHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	activityID, err := parseActivityID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req finalizeRequest
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	sess := middleware.GetSession(r.Context())
	completed, noShow, err := h.activityService.Finalize(r.Context(), sess, activityID, req.Override)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"completed": completed,
		"noShow":    noShow,
	})
}

func parseActivityID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "activityID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput("activityID", "must be a UUID")
	}
	return id, nil
}
