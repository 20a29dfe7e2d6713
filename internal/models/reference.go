package models

// Profile identifies a user role such as administrator, teacher or coordinator.
type Profile struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	UserCount int    `db:"usage_count" json:"user_count"`
	Audit
}

// SchoolStage is a school grade band.
type SchoolStage struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	SubmissionCount int    `db:"usage_count" json:"submission_count"`
	Audit
}

// Subject is an academic discipline.
type Subject struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	SubmissionCount int    `db:"usage_count" json:"submission_count"`
	Audit
}

// SubmissionStatus is a workflow state a submission can be in.
type SubmissionStatus struct {
	ID              int64  `db:"id" json:"id"`
	Description     string `db:"description" json:"description"`
	SubmissionCount int    `db:"usage_count" json:"submission_count"`
	Audit
}

// ReferenceFilter captures the filters supported by every lookup table.
type ReferenceFilter struct {
	Search         string
	IncludeDeleted bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
