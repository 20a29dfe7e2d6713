package models

import "time"

// User represents an application user stored in the users table.
type User struct {
	ID                 int64      `db:"id" json:"id"`
	ProfileID          int64      `db:"profile_id" json:"profile_id"`
	ProfileName        string     `db:"profile_name" json:"profile_name"`
	Name               string     `db:"name" json:"name"`
	RegistrationNumber string     `db:"registration_number" json:"registration_number"`
	NationalID         string     `db:"national_id" json:"national_id"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	Phone              *string    `db:"phone" json:"phone,omitempty"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	SubmissionCount    int        `db:"submission_count" json:"submission_count"`
	Audit
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	ProfileID          *int64
	ProfileName        string
	Name               string
	RegistrationNumber string
	NationalID         string
	Search             string
	IncludeDeleted     bool
	Page               int
	PageSize           int
	SortBy             string
	SortOrder          string
}
