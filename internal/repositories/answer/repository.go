// Package answer persists submitted review answers.
package answer

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

type AnswerRepository interface {
	UpsertAll(ctx context.Context, answers []models.Answer) error
	ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.Answer, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new answer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertAll stores a full answer set. Re-answering before the role
// completes overwrites on the (review_id, question_id, role) natural key.
// Joins the caller's transaction when one is open.
func (r *Repository) UpsertAll(ctx context.Context, answers []models.Answer) error {
	ctx, span := tracing.StartSpan(ctx, "AnswerRepository.UpsertAll")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO review_answers (
			id, review_id, question_id, role, prompt, kind, options,
			value, selected_option_id, answered_by, answered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (review_id, question_id, role) DO UPDATE SET
			prompt = EXCLUDED.prompt,
			kind = EXCLUDED.kind,
			options = EXCLUDED.options,
			value = EXCLUDED.value,
			selected_option_id = EXCLUDED.selected_option_id,
			answered_by = EXCLUDED.answered_by,
			answered_at = EXCLUDED.answered_at
	`

	for i := range answers {
		a := &answers[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}

		if _, err = tx.ExecContext(ctx, query,
			a.ID, a.ReviewID, a.QuestionID, a.Role, a.Prompt, a.Kind, a.Options,
			a.Value, a.SelectedOptionID, a.AnsweredBy, a.AnsweredAt,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"review_id":   a.ReviewID,
				"question_id": a.QuestionID,
				"role":        a.Role,
			}).Error("failed to upsert answer")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to store answers")
		}
	}

	return tx.Commit(ctx)
}

// ListByReview returns every stored answer for a review, both roles.
func (r *Repository) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.Answer, error) {
	ctx, span := tracing.StartSpan(ctx, "AnswerRepository.ListByReview")
	defer span.End()

	query := `
		SELECT id, review_id, question_id, role, prompt, kind, options,
			value, selected_option_id, answered_by, answered_at
		FROM review_answers
		WHERE review_id = $1
		ORDER BY answered_at ASC
	`

	var answers []models.Answer
	err := r.db.SelectContext(ctx, &answers, query, reviewID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id": reviewID,
		}).Error("failed to list answers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list answers")
	}

	return answers, nil
}
