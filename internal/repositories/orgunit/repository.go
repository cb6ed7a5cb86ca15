// Package orgunit resolves which active accounts are responsible for an
// org unit.
package orgunit

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

type OrgUnitRepository interface {
	ManagerCandidates(ctx context.Context, unitCode string) ([]models.ManagerCandidate, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new org unit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ManagerCandidates returns the active accounts responsible for the given
// unit. Unit codes in the responsibility map carry stray whitespace from the
// upstream import, so comparison trims both sides. Deepest-path ranking is
// left to the caller.
func (r *Repository) ManagerCandidates(ctx context.Context, unitCode string) ([]models.ManagerCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "OrgUnitRepository.ManagerCandidates")
	defer span.End()

	query := `
		SELECT
			u.id AS user_id,
			u.registration,
			u.full_name,
			u.hierarchy_path
		FROM org_units o
		INNER JOIN users u
			ON u.registration = o.manager_registration
			AND u.national_id = translate(o.manager_national_id, './-', '')
		WHERE trim(o.unit_code) = trim($1)
		  AND u.is_active = TRUE
		  AND u.hierarchy_path IS NOT NULL
	`

	var candidates []models.ManagerCandidate
	err := r.db.SelectContext(ctx, &candidates, query, unitCode)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"unit_code": unitCode,
		}).Error("failed to list manager candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list manager candidates")
	}

	return candidates, nil
}
