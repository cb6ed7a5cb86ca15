package models

import (
	"time"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/google/uuid"
)

// ScanFailure records one employee whose review could not be created. The
// rest of the run is unaffected.
type ScanFailure struct {
	Registration string `json:"registration"`
	FullName     string `json:"full_name"`
	Error        string `json:"error"`
}

// ScanSummary is the outcome of one eligibility scan run.
type ScanSummary struct {
	Scanned  int           `json:"scanned"`
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	Failures []ScanFailure `json:"failures"`
}

// Success reports whether the run completed without individual failures.
func (s *ScanSummary) Success() bool {
	return len(s.Failures) == 0
}

// ScanLog is a persisted scan run summary.
type ScanLog struct {
	ID               uuid.UUID                     `db:"id" json:"id"`
	EmployeesScanned int                           `db:"employees_scanned" json:"employees_scanned"`
	ReviewsCreated   int                           `db:"reviews_created" json:"reviews_created"`
	Failures         database.JSONB[[]ScanFailure] `db:"failures" json:"failures"`
	Success          bool                          `db:"success" json:"success"`
	CreatedAt        time.Time                     `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (ScanLog) TableName() string {
	return "scan_logs"
}
