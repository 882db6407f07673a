package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record behind an opaque session id. It lives in
// the session store (Redis), never in the relational database. The plaintext
// id is returned to the client once at login; the store keys records by a
// hash of it.
type Session struct {
	ID         string         `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	Admin      *AdminSnapshot `json:"admin,omitempty"`
	RememberMe bool           `json:"rememberMe"`
	IssuedAt   time.Time      `json:"issuedAt"`
	ExpiresAt  time.Time      `json:"expiresAt"`
	LastSeenAt time.Time      `json:"lastSeenAt"`
	IP         string         `json:"ip,omitempty"`
	Device     string         `json:"device,omitempty"`
}

// DeviceFingerprint is the value bound into QR credentials. It is derived
// from the session metadata captured at login, so a credential replayed from
// a different device class is detectable in audit logs even though the
// signature alone already ties it to the session.
func (s *Session) DeviceFingerprint() string {
	if s.Device == "" {
		return "unknown"
	}
	return s.Device
}

type SessionMeta struct {
	IP     string
	Device string
}
