package models

import "time"

// RecordStatus marks whether a row is visible to default queries.
type RecordStatus string

const (
	RecordActive  RecordStatus = "ACTIVE"
	RecordDeleted RecordStatus = "DELETED"
)

// Audit carries the bookkeeping columns shared by every table.
type Audit struct {
	RecordStatus RecordStatus `db:"record_status" json:"record_status"`
	CreatedBy    *string      `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy    *string      `db:"updated_by" json:"updated_by,omitempty"`
	DeletedBy    *string      `db:"deleted_by" json:"deleted_by,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Active reports whether the row has not been soft-deleted.
func (a Audit) Active() bool {
	return a.RecordStatus != RecordDeleted
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
