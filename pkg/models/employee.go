package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a local account linked to the HR feed by national id.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	NationalID    string    `db:"national_id" json:"national_id"`
	Registration  string    `db:"registration" json:"registration"`
	FullName      string    `db:"full_name" json:"full_name"`
	Department    *string   `db:"department" json:"department,omitempty"`
	HierarchyPath *string   `db:"hierarchy_path" json:"hierarchy_path,omitempty"`
	Role          string    `db:"role" json:"role"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (User) TableName() string {
	return "users"
}

// EligibleEmployee is a scan candidate: an active feed row inside the review
// window joined to its local account.
type EligibleEmployee struct {
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	NationalID    string    `db:"national_id" json:"national_id"`
	Registration  string    `db:"registration" json:"registration"`
	FullName      string    `db:"full_name" json:"full_name"`
	AdmissionDate time.Time `db:"admission_date" json:"admission_date"`
	Department    *string   `db:"department" json:"department,omitempty"`
	HierarchyPath *string   `db:"hierarchy_path" json:"hierarchy_path,omitempty"`
}

// TenureDays is the employee's whole-day tenure as of the given time.
func (e *EligibleEmployee) TenureDays(now time.Time) int {
	return int(now.Sub(e.AdmissionDate).Hours() / 24)
}

// OrgUnit maps a unit code to the registration responsible for it.
type OrgUnit struct {
	UnitCode            string `db:"unit_code" json:"unit_code"`
	ManagerRegistration string `db:"manager_registration" json:"manager_registration"`
	ManagerNationalID   string `db:"manager_national_id" json:"manager_national_id"`
}

// TableName returns the database table name
func (OrgUnit) TableName() string {
	return "org_units"
}

// ManagerCandidate is an active account responsible for an org unit, carrying
// the hierarchy path used to rank candidates.
type ManagerCandidate struct {
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Registration  string    `db:"registration" json:"registration"`
	FullName      string    `db:"full_name" json:"full_name"`
	HierarchyPath string    `db:"hierarchy_path" json:"hierarchy_path"`
}
