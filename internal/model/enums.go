package model

// AdminLevel is the closed set of administrator ranks. Scope rules live in
// the authz package; nothing else should branch on the level directly.
type AdminLevel string

const (
	AdminLevelSuper   AdminLevel = "super_admin"
	AdminLevelFaculty AdminLevel = "faculty_admin"
	AdminLevelRegular AdminLevel = "regular_admin"
)

type ActivityStatus string

const (
	ActivityStatusDraft     ActivityStatus = "draft"
	ActivityStatusPublished ActivityStatus = "published"
	ActivityStatusOngoing   ActivityStatus = "ongoing"
	ActivityStatusCompleted ActivityStatus = "completed"
	ActivityStatusCancelled ActivityStatus = "cancelled"
)

type ParticipationStatus string

const (
	ParticipationRegistered ParticipationStatus = "registered"
	ParticipationCheckedIn  ParticipationStatus = "checked_in"
	ParticipationCheckedOut ParticipationStatus = "checked_out"
	ParticipationCompleted  ParticipationStatus = "completed"
	ParticipationNoShow     ParticipationStatus = "no_show"
)

// participationRank orders the forward progression of attendance states.
// no_show sits outside the progression: it is terminal and reachable only
// from registered via the finalize sweep.
var participationRank = map[ParticipationStatus]int{
	ParticipationRegistered: 0,
	ParticipationCheckedIn:  1,
	ParticipationCheckedOut: 2,
	ParticipationCompleted:  3,
}

// AtOrPast reports whether s has already reached target in the forward
// progression. Returns false for no_show against any scan target.
func (s ParticipationStatus) AtOrPast(target ParticipationStatus) bool {
	r, ok := participationRank[s]
	if !ok {
		return false
	}
	t, ok := participationRank[target]
	if !ok {
		return false
	}
	return r >= t
}
