package authz

import (
	"github.com/google/uuid"

	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
)

// Faculty scoping is evaluated on every admin request, so it works purely
// off the session's role snapshot: no database round-trip. An admin demoted
// mid-session keeps the old scope until the snapshot is re-validated or the
// session expires; that staleness window is bounded by session TTL.

// Scope is the set of faculties a session may operate on. All short-circuits
// the id set so super-admin listings never materialize every faculty.
type Scope struct {
	All bool
	IDs []uuid.UUID
}

// HasFacultyAccess is the single evaluation point for admin-level scope
// rules. Sessions without an admin role are always denied.
func HasFacultyAccess(sess *model.Session, facultyID uuid.UUID) bool {
	if sess == nil || sess.Admin == nil {
		return false
	}
	switch sess.Admin.Level {
	case model.AdminLevelSuper:
		return true
	case model.AdminLevelFaculty, model.AdminLevelRegular:
		return sess.Admin.FacultyID != nil && *sess.Admin.FacultyID == facultyID
	default:
		return false
	}
}

// ValidateFacultyAccess is the standard guard before any faculty-scoped
// read or write.
func ValidateFacultyAccess(sess *model.Session, facultyID uuid.UUID) error {
	if !HasFacultyAccess(sess, facultyID) {
		return apperrors.Forbidden("Access to this faculty is required")
	}
	return nil
}

// AccessibleFaculties pre-filters list and bulk operations.
func AccessibleFaculties(sess *model.Session) Scope {
	if sess == nil || sess.Admin == nil {
		return Scope{}
	}
	switch sess.Admin.Level {
	case model.AdminLevelSuper:
		return Scope{All: true}
	case model.AdminLevelFaculty, model.AdminLevelRegular:
		if sess.Admin.FacultyID == nil {
			return Scope{}
		}
		return Scope{IDs: []uuid.UUID{*sess.Admin.FacultyID}}
	default:
		return Scope{}
	}
}

// IsAdmin reports whether the session carries any admin role at all.
func IsAdmin(sess *model.Session) bool {
	return sess != nil && sess.Admin != nil
}
