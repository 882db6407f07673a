package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FullName     string     `db:"full_name" json:"fullName"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FacultyID    *uuid.UUID `db:"faculty_id" json:"facultyId,omitempty"`
	DepartmentID *uuid.UUID `db:"department_id" json:"departmentId,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}
