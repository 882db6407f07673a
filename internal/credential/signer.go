package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campuspass/checkin-server-go/internal/model"
	"github.com/campuspass/checkin-server-go/internal/util"
)

// keyDerivationTag domain-separates the QR signing key from any other use of
// the session id.
const keyDerivationTag = "campuspass-qr-v1"

// Payload is the wire form of a QR credential. The session id travels
// alongside the signed fields so the verifier can resolve the signing
// session; it is not itself signed, because the signature is keyed by it.
// A credential is never persisted: validity is fully recomputed from this
// payload plus current session-store state.
type Payload struct {
	UserID    uuid.UUID `json:"userId"`
	SessionID string    `json:"sessionId"`
	IssuedAt  int64     `json:"issuedAt"`
	DeviceFP  string    `json:"deviceFp"`
}

// Credential is what GET /credentials/qr returns to the client.
type Credential struct {
	Payload   string    `json:"payload"`
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Signer issues and verifies session-keyed HMAC credentials. Using the
// session id as key material makes credentials self-revoking: once the
// session is gone, nothing can verify against it.
type Signer struct {
	ttl time.Duration
}

func NewSigner(ttl time.Duration) *Signer {
	return &Signer{ttl: ttl}
}

func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue builds a fresh credential for the session's user.
func (s *Signer) Issue(sess *model.Session) (*Credential, error) {
	now := time.Now().UTC()
	payload := Payload{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		IssuedAt:  now.Unix(),
		DeviceFP:  sess.DeviceFingerprint(),
	}

	encoded, err := EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	return &Credential{
		Payload:   encoded,
		Signature: s.Sign(payload, sess.ID),
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

// Sign computes the keyed signature over the canonical serialization of the
// payload's signed fields.
func (s *Signer) Sign(payload Payload, sessionID string) string {
	return util.HmacSHA256(deriveKey(sessionID), canonical(payload))
}

// Verify checks the signature in constant time. Malformed input yields
// false, never a panic or error.
func (s *Signer) Verify(payload Payload, signature, sessionID string) bool {
	if signature == "" || sessionID == "" {
		return false
	}
	return util.ConstantTimeEqual(s.Sign(payload, sessionID), signature)
}

// FreshAt reports whether the payload's issuance is within the TTL window at
// the given instant.
func (s *Signer) FreshAt(payload Payload, now time.Time) bool {
	issued := time.Unix(payload.IssuedAt, 0)
	if issued.After(now) {
		return false
	}
	return now.Sub(issued) <= s.ttl
}

func EncodePayload(payload Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodePayload parses a client-supplied payload. Errors are deliberately
// generic; callers surface them as an invalid credential.
func DecodePayload(encoded string) (Payload, error) {
	var payload Payload
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse payload: %w", err)
	}
	if payload.UserID == uuid.Nil || payload.SessionID == "" || payload.IssuedAt == 0 {
		return payload, fmt.Errorf("incomplete payload")
	}
	return payload, nil
}

// canonical fixes the byte layout the signature covers. Field order and
// separators must never change without bumping the tag version.
func canonical(payload Payload) string {
	return fmt.Sprintf("v1|%s|%d|%s", payload.UserID, payload.IssuedAt, payload.DeviceFP)
}

// deriveKey stretches the session id into the signing key so the raw id is
// never used directly as HMAC key material.
func deriveKey(sessionID string) string {
	return util.HmacSHA256(sessionID, keyDerivationTag)
}
