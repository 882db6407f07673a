package model

import (
	"time"

	"github.com/google/uuid"
)

type Activity struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	Title           string         `db:"title" json:"title"`
	Status          ActivityStatus `db:"status" json:"status"`
	FacultyID       uuid.UUID      `db:"faculty_id" json:"facultyId"`
	DepartmentID    *uuid.UUID     `db:"department_id" json:"departmentId,omitempty"`
	MaxParticipants *int           `db:"max_participants" json:"maxParticipants,omitempty"`
	StartsAt        time.Time      `db:"starts_at" json:"startsAt"`
	EndsAt          time.Time      `db:"ends_at" json:"endsAt"`
	CreatedBy       uuid.UUID      `db:"created_by" json:"createdBy"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// OpenForRegistration reports whether new participations may be created.
func (a *Activity) OpenForRegistration() bool {
	return a.Status == ActivityStatusPublished || a.Status == ActivityStatusOngoing
}

// Ended reports whether the activity's scheduled window has passed.
func (a *Activity) Ended(now time.Time) bool {
	return now.After(a.EndsAt)
}
