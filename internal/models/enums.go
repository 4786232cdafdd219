package models

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	StatusDraft    PositionStatus = "Draft"
	StatusLive     PositionStatus = "Live"
	StatusClosed   PositionStatus = "Closed"
	StatusArchived PositionStatus = "Archived"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []PositionStatus{StatusDraft, StatusLive, StatusClosed, StatusArchived}

// Valid reports whether s is one of the known statuses.
func (s PositionStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusLive, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
//
//	Draft -> Live -> Closed -> Archived
//	Draft -> Archived, Live -> Archived
//
// Staying in the same state is always allowed except for unknown states.
func (s PositionStatus) CanTransitionTo(next PositionStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusDraft:
		return next == StatusLive || next == StatusArchived
	case StatusLive:
		return next == StatusClosed || next == StatusArchived
	case StatusClosed:
		return next == StatusArchived
	case StatusArchived:
		return false
	}
	return false
}

// Priceable reports whether market prices may still be recorded.
func (s PositionStatus) Priceable() bool {
	switch s {
	case StatusDraft, StatusLive:
		return true
	case StatusClosed, StatusArchived:
		return false
	}
	return false
}

// Visibility controls investor exposure independently of status.
type Visibility string

const (
	VisibilityAdminOnly   Visibility = "admin_only"
	VisibilityMembersView Visibility = "members_view"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityAdminOnly, VisibilityMembersView:
		return true
	}
	return false
}

// AuditAction names the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditCreate    AuditAction = "create"
	AuditEdit      AuditAction = "edit"
	AuditClose     AuditAction = "close"
	AuditArchive   AuditAction = "archive"
	AuditPublish   AuditAction = "publish"
	AuditUnpublish AuditAction = "unpublish"
	// AuditRestore is accepted when reading historical rows; nothing in the
	// ledger emits it because Archived is terminal.
	AuditRestore AuditAction = "restore"
)

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditEdit, AuditClose, AuditArchive, AuditPublish, AuditUnpublish, AuditRestore:
		return true
	}
	return false
}

// VisibilityAction returns the audit action recorded when visibility is set to v.
func VisibilityAction(v Visibility) AuditAction {
	switch v {
	case VisibilityMembersView:
		return AuditPublish
	case VisibilityAdminOnly:
		return AuditUnpublish
	}
	return AuditUnpublish
}

// Role is the portal role of a profile.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleInvestor Role = "investor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInvestor:
		return true
	}
	return false
}
