package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus represents the lifecycle state of a review
type ReviewStatus string

const (
	ReviewStatusScheduled  ReviewStatus = "Scheduled"
	ReviewStatusPending    ReviewStatus = "Pending"
	ReviewStatusInProgress ReviewStatus = "InProgress"
	ReviewStatusCompleted  ReviewStatus = "Completed"
	ReviewStatusExpired    ReviewStatus = "Expired"
)

// RespondentRole identifies which side of a review a respondent answers for
type RespondentRole string

const (
	RoleEmployee RespondentRole = "employee"
	RoleManager  RespondentRole = "manager"
)

// Other returns the opposite side of the review.
func (r RespondentRole) Other() RespondentRole {
	if r == RoleEmployee {
		return RoleManager
	}
	return RoleEmployee
}

func (r RespondentRole) Valid() bool {
	return r == RoleEmployee || r == RoleManager
}

// Review is one performance review owed to an employee, optionally paired
// with the manager responsible for them at creation time.
type Review struct {
	ID                  uuid.UUID    `db:"id" json:"id"`
	UserID              uuid.UUID    `db:"user_id" json:"user_id"`
	ManagerID           *uuid.UUID   `db:"manager_id" json:"manager_id,omitempty"`
	ReviewTypeID        int          `db:"review_type_id" json:"review_type_id"`
	Registration        string       `db:"registration" json:"registration"`
	AdmissionDate       time.Time    `db:"admission_date" json:"admission_date"`
	DueDate             time.Time    `db:"due_date" json:"due_date"`
	Status              ReviewStatus `db:"status" json:"status"`
	EmployeeCompleted   bool         `db:"employee_completed" json:"employee_completed"`
	EmployeeCompletedAt *time.Time   `db:"employee_completed_at" json:"employee_completed_at,omitempty"`
	ManagerCompleted    bool         `db:"manager_completed" json:"manager_completed"`
	ManagerCompletedAt  *time.Time   `db:"manager_completed_at" json:"manager_completed_at,omitempty"`
	Notes               *string      `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Review) TableName() string {
	return "reviews"
}

// IsOverdue reports whether the review is past its due date at the given time.
// The due date is a calendar day and its whole day is usable; the review only
// turns overdue once that day has ended.
func (r *Review) IsOverdue(now time.Time) bool {
	return !now.Before(r.DueDate.AddDate(0, 0, 1))
}

// CompletedBy reports whether the given role has already submitted.
func (r *Review) CompletedBy(role RespondentRole) bool {
	if role == RoleEmployee {
		return r.EmployeeCompleted
	}
	return r.ManagerCompleted
}

// ReviewOrigin distinguishes a user's own reviews from their team's in listings
type ReviewOrigin string

const (
	OriginOwn  ReviewOrigin = "own"
	OriginTeam ReviewOrigin = "team"
)

// ReviewListItem is a review joined with its display fields for listings.
type ReviewListItem struct {
	Review
	TypeName    string       `db:"type_name" json:"type_name"`
	SubjectName string       `db:"subject_name" json:"subject_name"`
	ManagerName *string      `db:"manager_name" json:"manager_name,omitempty"`
	Origin      ReviewOrigin `db:"origin" json:"origin"`
}
