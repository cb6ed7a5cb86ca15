// Package employee reads the external HR feed joined to local accounts.
package employee

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// EligibilityWindowDays bounds the tenure window the scan considers.
const EligibilityWindowDays = 90

type EmployeeRepository interface {
	ListEligible(ctx context.Context) ([]models.EligibleEmployee, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new employee repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListEligible returns active feed employees admitted within the eligibility
// window that have an active local account. The feed stores national ids
// with punctuation while accounts store them bare, so the join normalizes
// the feed side.
func (r *Repository) ListEligible(ctx context.Context) ([]models.EligibleEmployee, error) {
	ctx, span := tracing.StartSpan(ctx, "EmployeeRepository.ListEligible")
	defer span.End()

	query := `
		SELECT
			u.id AS user_id,
			u.national_id,
			f.registration,
			f.full_name,
			f.admission_date,
			f.department,
			u.hierarchy_path
		FROM employee_feed f
		INNER JOIN users u
			ON translate(f.national_id, './-', '') = u.national_id
		WHERE f.status = 'ACTIVE'
		  AND u.is_active = TRUE
		  AND f.admission_date >= CURRENT_DATE - $1::int
		ORDER BY f.admission_date DESC
	`

	var employees []models.EligibleEmployee
	err := r.db.SelectContext(ctx, &employees, query, EligibilityWindowDays)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list eligible employees")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list eligible employees")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"count": len(employees),
	}).Debug("Listed eligible employees")
	return employees, nil
}
