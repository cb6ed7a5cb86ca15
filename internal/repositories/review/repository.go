// Package review persists the review lifecycle.
package review

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

const (
	reviewsTable = "reviews"

	// Postgres unique_violation
	pqUniqueViolation = "23505"
)

// ErrDuplicate marks an insert that lost the race against an identical
// review. Callers treat it as a benign skip.
var ErrDuplicate = errors.New("review already exists")

type ReviewRepository interface {
	Insert(ctx context.Context, review *models.Review) error
	Exists(ctx context.Context, userID uuid.UUID, reviewTypeID int, registration string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReviewListItem, error)
	ListAll(ctx context.Context, callerID uuid.UUID) ([]models.ReviewListItem, error)
	ListTypes(ctx context.Context) ([]models.ReviewType, error)
	CompleteRole(ctx context.Context, reviewID uuid.UUID, role models.RespondentRole, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	Reopen(ctx context.Context, id uuid.UUID, newDueDate time.Time) (*models.Review, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var reviewStruct = database.NewStruct(new(models.Review))

// Insert stores a new review. Joins the transaction carried by ctx when one
// is open, so the scan's per-employee unit of work owns the outcome.
func (r *Repository) Insert(ctx context.Context, review *models.Review) error {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.Insert")
	defer span.End()

	now := time.Now().UTC()
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	review.CreatedAt = now
	review.UpdatedAt = now

	ib := reviewStruct.InsertInto(reviewsTable, review)
	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicate
		}

		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id":        review.UserID,
			"review_type_id": review.ReviewTypeID,
			"registration":   review.Registration,
		}).Error("failed to insert review")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert review")
	}

	return tx.Commit(ctx)
}

// Exists reports whether a review already exists for the employee and type.
func (r *Repository) Exists(ctx context.Context, userID uuid.UUID, reviewTypeID int, registration string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.Exists")
	defer span.End()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE user_id = $1 AND review_type_id = $2 AND registration = $3
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, reviewTypeID, registration)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id":        userID,
			"review_type_id": reviewTypeID,
		}).Error("failed to check review existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check review existence")
	}

	return exists, nil
}

// GetByID retrieves a review by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.GetByID")
	defer span.End()

	sb := reviewStruct.SelectFrom(reviewsTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()

	var review models.Review
	err := r.db.GetContext(ctx, &review, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "review %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id": id,
		}).Error("failed to get review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review")
	}

	return &review, nil
}

// ListForUser returns the user's own reviews plus the reviews they manage,
// with display fields joined in.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReviewListItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ListForUser")
	defer span.End()

	query := `
		SELECT
			r.id, r.user_id, r.manager_id, r.review_type_id, r.registration,
			r.admission_date, r.due_date, r.status,
			r.employee_completed, r.employee_completed_at,
			r.manager_completed, r.manager_completed_at,
			r.notes, r.created_at, r.updated_at,
			t.name AS type_name,
			s.full_name AS subject_name,
			m.full_name AS manager_name,
			CASE WHEN r.user_id = $1 THEN 'own' ELSE 'team' END AS origin
		FROM reviews r
		INNER JOIN review_types t ON t.id = r.review_type_id
		INNER JOIN users s ON s.id = r.user_id
		LEFT JOIN users m ON m.id = r.manager_id
		WHERE r.user_id = $1 OR r.manager_id = $1
		ORDER BY r.due_date ASC, r.created_at ASC
	`

	var items []models.ReviewListItem
	err := r.db.SelectContext(ctx, &items, query, userID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID,
		}).Error("failed to list reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reviews")
	}

	return items, nil
}

// ListAll returns every review with display fields joined in, for the
// privileged listing. Origin is still computed relative to the caller.
func (r *Repository) ListAll(ctx context.Context, callerID uuid.UUID) ([]models.ReviewListItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ListAll")
	defer span.End()

	query := `
		SELECT
			r.id, r.user_id, r.manager_id, r.review_type_id, r.registration,
			r.admission_date, r.due_date, r.status,
			r.employee_completed, r.employee_completed_at,
			r.manager_completed, r.manager_completed_at,
			r.notes, r.created_at, r.updated_at,
			t.name AS type_name,
			s.full_name AS subject_name,
			m.full_name AS manager_name,
			CASE WHEN r.user_id = $1 THEN 'own' ELSE 'team' END AS origin
		FROM reviews r
		INNER JOIN review_types t ON t.id = r.review_type_id
		INNER JOIN users s ON s.id = r.user_id
		LEFT JOIN users m ON m.id = r.manager_id
		ORDER BY r.due_date ASC, r.created_at ASC
	`

	var items []models.ReviewListItem
	err := r.db.SelectContext(ctx, &items, query, callerID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list all reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reviews")
	}

	return items, nil
}

// ListTypes returns the review type reference data.
func (r *Repository) ListTypes(ctx context.Context) ([]models.ReviewType, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ListTypes")
	defer span.End()

	var types []models.ReviewType
	err := r.db.SelectContext(ctx, &types, "SELECT id, name, min_tenure_days, max_tenure_days, due_offset_days FROM review_types ORDER BY id")
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list review types")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review types")
	}

	return types, nil
}

// CompleteRole flips the role's completion flag and moves the review's
// status in the same statement, so two racing submissions cannot both win.
// Returns true when the review is now fully completed; zero rows affected
// means the role already completed or the review is closed, surfaced as a
// conflict to the caller.
func (r *Repository) CompleteRole(ctx context.Context, reviewID uuid.UUID, role models.RespondentRole, now time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.CompleteRole")
	defer span.End()

	var query string
	switch role {
	case models.RoleEmployee:
		query = `
			UPDATE reviews SET
				employee_completed = TRUE,
				employee_completed_at = $2,
				status = CASE WHEN manager_completed THEN 'Completed' ELSE 'InProgress' END,
				updated_at = $2
			WHERE id = $1
			  AND employee_completed = FALSE
			  AND status NOT IN ('Completed', 'Expired')
			RETURNING manager_completed
		`
	case models.RoleManager:
		query = `
			UPDATE reviews SET
				manager_completed = TRUE,
				manager_completed_at = $2,
				status = CASE WHEN employee_completed THEN 'Completed' ELSE 'InProgress' END,
				updated_at = $2
			WHERE id = $1
			  AND manager_completed = FALSE
			  AND status NOT IN ('Completed', 'Expired')
			RETURNING employee_completed
		`
	default:
		return false, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid role %q", role)
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var otherCompleted bool
	err = tx.GetContext(ctx, &otherCompleted, query, reviewID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return false, httperror.NewHTTPError(http.StatusConflict, "review is already completed for this role")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id": reviewID,
			"role":      role,
		}).Error("failed to complete review role")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete review role")
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}

	return otherCompleted, nil
}

// ExpireOverdue flips every open review past its due date to Expired and
// returns the affected ids. The due date's own day is still usable, so only
// reviews due strictly before the current calendar day are swept.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.ExpireOverdue")
	defer span.End()

	query := `
		UPDATE reviews SET
			status = 'Expired',
			updated_at = $1
		WHERE due_date < CAST($1 AS date)
		  AND status IN ('Scheduled', 'Pending', 'InProgress')
		RETURNING id
	`

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, now)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to expire overdue reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to expire overdue reviews")
	}

	if len(ids) > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"count": len(ids),
		}).Info("Expired overdue reviews")
	}
	return ids, nil
}

// Reopen restores an expired review with a new due date. The status falls
// back to where the completion flags left off.
func (r *Repository) Reopen(ctx context.Context, id uuid.UUID, newDueDate time.Time) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewRepository.Reopen")
	defer span.End()

	query := `
		UPDATE reviews SET
			status = CASE WHEN employee_completed OR manager_completed THEN 'InProgress' ELSE 'Pending' END,
			due_date = $2,
			updated_at = now()
		WHERE id = $1 AND status = 'Expired'
		RETURNING id, user_id, manager_id, review_type_id, registration,
			admission_date, due_date, status,
			employee_completed, employee_completed_at,
			manager_completed, manager_completed_at,
			notes, created_at, updated_at
	`

	var review models.Review
	err := r.db.GetContext(ctx, &review, query, id, newDueDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPError(http.StatusConflict, "only expired reviews can be reopened")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id": id,
		}).Error("failed to reopen review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reopen review")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id": id,
		"due_date":  newDueDate,
	}).Info("Reopened review")
	return &review, nil
}
