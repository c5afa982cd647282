// Package policy holds the ownership and approval rules governing mutating
// operations on cinemas, auditoriums and showtimes.  Both checks run before
// any state change; the core trusts the principal handed over by the edge
// and never re-validates tokens.
package policy

import (
	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

// RequireOwner permits the operation when the principal is the cinema's
// organizer or holds the admin role.  Everyone else is rejected with a
// Forbidden fault.
func RequireOwner(p model.Principal, cinema *model.Cinema) error {
	if p.IsAdmin() {
		return nil
	}
	if cinema.OrganizerID == p.ID {
		return nil
	}
	return fault.Forbidden("principal does not own this cinema")
}

// RequireApproved permits showtime creation only under an approved cinema.
// Updates and deletes of existing showtimes deliberately skip this check so
// an organizer can still cancel screenings after a revocation.
func RequireApproved(cinema *model.Cinema) error {
	if cinema.ApprovalStatus != model.ApprovalApproved {
		return fault.NotApproved("cinema is not approved for new showtimes")
	}
	return nil
}

// RequireAdmin permits admin-only operations such as cinema approval
// transitions.
func RequireAdmin(p model.Principal) error {
	if !p.IsAdmin() {
		return fault.Forbidden("admin role required")
	}
	return nil
}
