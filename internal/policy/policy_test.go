package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
)

func TestRequireOwner(t *testing.T) {
	cinema := &model.Cinema{OrganizerID: "org-a"}

	owner := model.Principal{ID: "org-a", Roles: []string{model.RoleOrganizer}}
	assert.NoError(t, RequireOwner(owner, cinema))

	// A different organizer is rejected even with the organizer role.
	other := model.Principal{ID: "org-b", Roles: []string{model.RoleOrganizer}}
	err := RequireOwner(other, cinema)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	// Admins bypass ownership entirely.
	admin := model.Principal{ID: "someone-else", Roles: []string{model.RoleAdmin}}
	assert.NoError(t, RequireOwner(admin, cinema))
}

func TestRequireApproved(t *testing.T) {
	assert.NoError(t, RequireApproved(&model.Cinema{ApprovalStatus: model.ApprovalApproved}))

	err := RequireApproved(&model.Cinema{ApprovalStatus: model.ApprovalPending})
	assert.True(t, fault.IsKind(err, fault.KindNotApproved))

	err = RequireApproved(&model.Cinema{ApprovalStatus: model.ApprovalRejected})
	assert.True(t, fault.IsKind(err, fault.KindNotApproved))
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(model.Principal{Roles: []string{model.RoleAdmin}}))
	err := RequireAdmin(model.Principal{Roles: []string{model.RoleOrganizer, model.RoleCustomer}})
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
}
