package model

import "github.com/google/uuid"

// ApprovalStatus is the moderation state of a cinema.  Only approved cinemas
// may schedule new showtimes; updates and deletes stay allowed after a
// revocation so an organizer can still wind a cinema down.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Valid reports whether the value is one of the declared approval states.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Cinema is a venue owned by an organizer.  A cinema exclusively owns its
// auditoriums.  OrganizerID is the opaque principal id of the creator and is
// never rewritten after creation.
//
// Fields:
//  ID             – time-sortable UUIDv7 primary key.
//  OrganizerID    – principal id of the owning organizer.
//  Name           – venue name.
//  Location       – street address or city shown to customers.
//  ContactEmail   – organizer contact address.
//  ApprovalStatus – moderation state; transitions are admin-only.
type Cinema struct {
	ID             uuid.UUID      `json:"id"`
	OrganizerID    string         `json:"organizer_id"`
	Name           string         `json:"name"`
	Location       string         `json:"location"`
	ContactEmail   string         `json:"contact_email"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Audit
	SoftDelete
}
