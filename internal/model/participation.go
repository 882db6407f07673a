package model

import (
	"time"

	"github.com/google/uuid"
)

// Participation is one user's relationship to one activity. Rows are unique
// on (user_id, activity_id) and only the state-machine code paths mutate
// status or timestamps.
type Participation struct {
	ID           uuid.UUID           `db:"id" json:"id"`
	UserID       uuid.UUID           `db:"user_id" json:"userId"`
	ActivityID   uuid.UUID           `db:"activity_id" json:"activityId"`
	Status       ParticipationStatus `db:"status" json:"status"`
	RegisteredAt time.Time           `db:"registered_at" json:"registeredAt"`
	CheckedInAt  *time.Time          `db:"checked_in_at" json:"checkedInAt,omitempty"`
	CheckedOutAt *time.Time          `db:"checked_out_at" json:"checkedOutAt,omitempty"`
	Notes        string              `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updatedAt"`
}

type CreateParticipationParams struct {
	UserID     uuid.UUID
	ActivityID uuid.UUID
}
