package models

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the display name of a reference month, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// Submission is one ledger entry: a user's material for a stage, subject and period.
// Name fields are projections joined from the referenced rows.
type Submission struct {
	ID                           int64   `db:"id" json:"id"`
	StageID                      int64   `db:"stage_id" json:"stage_id"`
	StageName                    string  `db:"stage_name" json:"stage_name"`
	SubjectID                    int64   `db:"subject_id" json:"subject_id"`
	SubjectName                  string  `db:"subject_name" json:"subject_name"`
	UserID                       int64   `db:"user_id" json:"user_id"`
	UserName                     string  `db:"user_name" json:"user_name"`
	StatusID                     int64   `db:"status_id" json:"status_id"`
	StatusDescription            string  `db:"status_description" json:"status_description"`
	ReferenceMonth               int     `db:"reference_month" json:"reference_month"`
	ReferenceMonthName           string  `db:"-" json:"reference_month_name"`
	ReferenceYear                int     `db:"reference_year" json:"reference_year"`
	ManagementNotes              *string `db:"management_notes" json:"management_notes"`
	SchoolSubmissionDate         *Date   `db:"school_submission_date" json:"school_submission_date"`
	RegionalOfficeSubmissionDate *Date   `db:"regional_office_submission_date" json:"regional_office_submission_date"`
	ManagementValidationDate     *Date   `db:"management_validation_date" json:"management_validation_date"`
	TrainerSubmissionDate        *Date   `db:"trainer_submission_date" json:"trainer_submission_date"`
	SubmissionDeadline           *Date   `db:"submission_deadline" json:"submission_deadline"`
	Audit
}

// Decorate fills derived attributes after loading.
func (s *Submission) Decorate() {
	s.ReferenceMonthName = MonthName(s.ReferenceMonth)
}

// SubmissionKey is the natural key that must be unique among active submissions.
type SubmissionKey struct {
	StageID   int64
	SubjectID int64
	UserID    int64
	Month     int
	Year      int
}

// Key returns the natural key of the submission.
func (s *Submission) Key() SubmissionKey {
	return SubmissionKey{
		StageID:   s.StageID,
		SubjectID: s.SubjectID,
		UserID:    s.UserID,
		Month:     s.ReferenceMonth,
		Year:      s.ReferenceYear,
	}
}

// SubmissionFilter is a conjunction of optional criteria over the ledger.
type SubmissionFilter struct {
	StageID   *int64
	SubjectID *int64
	UserID    *int64
	StatusID  *int64

	StageIDs   []int64
	SubjectIDs []int64
	UserIDs    []int64
	StatusIDs  []int64

	Month    *int
	MonthGTE *int
	MonthLTE *int
	Year     *int
	YearGTE  *int
	YearLTE  *int

	SchoolDateFrom *Date
	SchoolDateTo   *Date
	DeadlineFrom   *Date
	DeadlineTo     *Date

	// Case-insensitive substring filters on the joined names, each ANDed with the rest.
	StageName         string
	SubjectName       string
	UserName          string
	StatusDescription string

	// Search matches user name, registration number, subject, stage and notes.
	Search string

	HasNotes          *bool
	Overdue           *bool
	PendingValidation *bool

	// OverdueBefore and OpenStatusIDs back the Overdue predicate; the service fills them.
	OverdueBefore *Date
	OpenStatusIDs []int64

	IncludeDeleted bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
	Unpaged        bool
}

// SubmissionStats aggregates counts per status bucket.
type SubmissionStats struct {
	Total    int  `db:"total" json:"total"`
	Pending  int  `db:"pending" json:"pending"`
	Approved int  `db:"approved" json:"approved"`
	Rejected int  `db:"rejected" json:"rejected"`
	Month    *int `db:"-" json:"month"`
	Year     *int `db:"-" json:"year"`
}

// StatsBuckets names the status ids counted by each stats bucket.
type StatsBuckets struct {
	PendingID  int64
	ApprovedID int64
	RejectedID int64
}
