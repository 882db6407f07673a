package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/model"
)

func sessionWith(level model.AdminLevel, facultyID *uuid.UUID) *model.Session {
	return &model.Session{
		UserID: uuid.New(),
		Admin: &model.AdminSnapshot{
			Level:     level,
			FacultyID: facultyID,
		},
	}
}

func TestHasFacultyAccess(t *testing.T) {
	facultyA := uuid.New()
	facultyB := uuid.New()

	tests := []struct {
		name     string
		sess     *model.Session
		faculty  uuid.UUID
		expected bool
	}{
		{"nil session denied", nil, facultyA, false},
		{"non-admin denied", &model.Session{UserID: uuid.New()}, facultyA, false},
		{"super admin allowed everywhere", sessionWith(model.AdminLevelSuper, nil), facultyA, true},
		{"faculty admin allowed in own faculty", sessionWith(model.AdminLevelFaculty, &facultyA), facultyA, true},
		{"faculty admin denied in other faculty", sessionWith(model.AdminLevelFaculty, &facultyA), facultyB, false},
		{"regular admin allowed in own faculty", sessionWith(model.AdminLevelRegular, &facultyA), facultyA, true},
		{"regular admin denied in other faculty", sessionWith(model.AdminLevelRegular, &facultyA), facultyB, false},
		{"faculty admin without faculty denied", sessionWith(model.AdminLevelFaculty, nil), facultyA, false},
		{"unknown level denied", sessionWith(model.AdminLevel("owner"), &facultyA), facultyA, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HasFacultyAccess(tc.sess, tc.faculty))
		})
	}
}

func TestValidateFacultyAccess(t *testing.T) {
	facultyA := uuid.New()
	facultyB := uuid.New()

	t.Run("allows in-scope access", func(t *testing.T) {
		sess := sessionWith(model.AdminLevelFaculty, &facultyA)
		assert.NoError(t, ValidateFacultyAccess(sess, facultyA))
	})

	t.Run("returns forbidden out of scope", func(t *testing.T) {
		sess := sessionWith(model.AdminLevelFaculty, &facultyA)
		err := ValidateFacultyAccess(sess, facultyB)
		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
	})
}

func TestAccessibleFaculties(t *testing.T) {
	facultyA := uuid.New()

	t.Run("super admin has unbounded scope", func(t *testing.T) {
		scope := AccessibleFaculties(sessionWith(model.AdminLevelSuper, nil))
		assert.True(t, scope.All)
		assert.Empty(t, scope.IDs)
	})

	t.Run("faculty admin scoped to own faculty", func(t *testing.T) {
		scope := AccessibleFaculties(sessionWith(model.AdminLevelFaculty, &facultyA))
		assert.False(t, scope.All)
		assert.Equal(t, []uuid.UUID{facultyA}, scope.IDs)
	})

	t.Run("regular admin scoped to own faculty", func(t *testing.T) {
		scope := AccessibleFaculties(sessionWith(model.AdminLevelRegular, &facultyA))
		assert.False(t, scope.All)
		assert.Equal(t, []uuid.UUID{facultyA}, scope.IDs)
	})

	t.Run("non-admin has empty scope", func(t *testing.T) {
		scope := AccessibleFaculties(&model.Session{UserID: uuid.New()})
		assert.False(t, scope.All)
		assert.Empty(t, scope.IDs)
	})

	t.Run("admin without faculty has empty scope", func(t *testing.T) {
		scope := AccessibleFaculties(sessionWith(model.AdminLevelRegular, nil))
		assert.False(t, scope.All)
		assert.Empty(t, scope.IDs)
	})
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(sessionWith(model.AdminLevelRegular, nil)))
	assert.False(t, IsAdmin(&model.Session{UserID: uuid.New()}))
	assert.False(t, IsAdmin(nil))
}
