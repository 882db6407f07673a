package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AdminRole is the persisted role row, one per user (unique constraint on
// user_id). FacultyID is meaningful only for faculty_admin and regular_admin.
type AdminRole struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	UserID      uuid.UUID      `db:"user_id" json:"userId"`
	Level       AdminLevel     `db:"level" json:"level"`
	FacultyID   *uuid.UUID     `db:"faculty_id" json:"facultyId,omitempty"`
	Permissions pq.StringArray `db:"permissions" json:"permissions"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// AdminSnapshot is the copy of a role carried inside a session record.
// It is what authorization decisions are evaluated against, so staleness is
// bounded by session TTL plus the re-validation done on admin routes.
type AdminSnapshot struct {
	Level       AdminLevel `json:"level"`
	FacultyID   *uuid.UUID `json:"facultyId,omitempty"`
	Permissions []string   `json:"permissions"`
}

// Snapshot copies the role into the form stored on a session.
func (r *AdminRole) Snapshot() *AdminSnapshot {
	if r == nil {
		return nil
	}
	perms := make([]string, len(r.Permissions))
	copy(perms, r.Permissions)
	var facultyID *uuid.UUID
	if r.FacultyID != nil {
		id := *r.FacultyID
		facultyID = &id
	}
	return &AdminSnapshot{
		Level:       r.Level,
		FacultyID:   facultyID,
		Permissions: perms,
	}
}
