package repository

import (
	"time"

	"github.com/hivecinema/hive/internal/model"
)

// Audit stamping for inserts and field updates goes through these helpers
// instead of scattering timestamps through the services.  Soft deletes,
// cinema approval-status changes and seat-buffer writes do not use them:
// their SQL sets updated_at with UTC_TIMESTAMP() directly, and the
// seat-buffer write leaves updated_by unchanged.  Hard deletes submitted by
// storage consumers are rewritten to soft deletes by convention –
// repositories expose SoftDelete only.

// stampCreate populates the audit fields for a fresh row.
func stampCreate(a *model.Audit, by string) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.CreatedBy = by
	a.UpdatedAt = now
	a.UpdatedBy = by
}

// stampUpdate advances the audit fields for a mutation.
func stampUpdate(a *model.Audit, by string) {
	a.UpdatedAt = time.Now().UTC()
	a.UpdatedBy = by
}
