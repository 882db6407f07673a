package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuspass/checkin-server-go/internal/middleware"
	"github.com/campuspass/checkin-server-go/internal/service"
)

type CredentialHandler struct {
	checkinService *service.CheckinService
}

func NewCredentialHandler(checkinService *service.CheckinService) *CredentialHandler {
	return &CredentialHandler{checkinService: checkinService}
}

func (h *CredentialHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/qr", h.IssueQR)
	return r
}

// GET /v1/credentials/qr
//
// The payload is signed under the caller's own session, so it stops
// verifying the moment that session is revoked or expires.
func (h *CredentialHandler) IssueQR(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	cred, err := h.checkinService.IssueCredential(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, cred)
}
