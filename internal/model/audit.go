package model

import "time"

// Audit carries the who-did-what timestamps shared by all catalog entities.
// The repository layer stamps these fields; services and handlers never set
// them directly.
//
// Fields:
//  CreatedAt – UTC creation timestamp.
//  CreatedBy – principal id of the creator.
//  UpdatedAt – UTC timestamp of the last persisted mutation.
//  UpdatedBy – principal id of the last mutator.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"-"`
}

// SoftDelete marks logical deletion.  Deleted rows stay in storage for audit
// queries; every default read path filters them out.
//
// Fields:
//  IsDeleted – logical deletion flag.
//  DeletedAt – UTC timestamp of the deletion, nil while the row is live.
type SoftDelete struct {
	IsDeleted bool       `json:"-"`
	DeletedAt *time.Time `json:"-"`
}
