// Package questionsnapshot builds and reads the per-review questionnaire
// snapshots.
package questionsnapshot

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

type QuestionSnapshotRepository interface {
	CopyFromTemplate(ctx context.Context, reviewID uuid.UUID, reviewTypeID int) (int, error)
	ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewQuestion, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new question snapshot repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CopyFromTemplate freezes the active templates of a review type into the
// review's snapshot tables. Runs inside the caller's transaction: a failed
// copy rolls the whole review back. Returns the number of questions copied.
//
// The template set is read exactly once; both snapshot tables are written
// from that in-memory copy. Under READ COMMITTED a questionnaire replace
// committing mid-copy would otherwise feed the second statement a different
// template generation than the first.
func (r *Repository) CopyFromTemplate(ctx context.Context, reviewID uuid.UUID, reviewTypeID int) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionSnapshotRepository.CopyFromTemplate")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	templatesQuery := `
		SELECT id, review_type_id, position, prompt, kind, required,
			scale_min, scale_max, scale_min_label, scale_max_label, created_at, updated_at
		FROM question_templates
		WHERE review_type_id = $1 AND active = TRUE
		ORDER BY position ASC
	`

	var templates []models.QuestionTemplate
	if err = tx.SelectContext(ctx, &templates, templatesQuery, reviewTypeID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id":      reviewID,
			"review_type_id": reviewTypeID,
		}).Error("failed to read templates for snapshot")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot questionnaire")
	}

	if len(templates) == 0 {
		return 0, tx.Commit(ctx)
	}

	templateIDs := make([]uuid.UUID, len(templates))
	for i := range templates {
		templateIDs[i] = templates[i].ID
	}

	optionsQuery := `
		SELECT id, template_id, position, label
		FROM template_options
		WHERE template_id = ANY($1)
		ORDER BY template_id, position ASC
	`

	var templateOptions []models.TemplateOption
	if err = tx.SelectContext(ctx, &templateOptions, optionsQuery, pq.Array(templateIDs)); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id": reviewID,
		}).Error("failed to read template options for snapshot")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot questionnaire")
	}

	optionsByTemplate := make(map[uuid.UUID][]models.TemplateOption, len(templates))
	for _, opt := range templateOptions {
		optionsByTemplate[opt.TemplateID] = append(optionsByTemplate[opt.TemplateID], opt)
	}

	insertQuestion := `
		INSERT INTO review_questions (
			id, review_id, position, prompt, kind, required,
			scale_min, scale_max, scale_min_label, scale_max_label, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`
	insertOption := `
		INSERT INTO review_question_options (id, question_id, position, label)
		VALUES ($1, $2, $3, $4)
	`

	for i := range templates {
		t := &templates[i]
		questionID := uuid.New()

		if _, err = tx.ExecContext(ctx, insertQuestion,
			questionID, reviewID, t.Position, t.Prompt, t.Kind, t.Required,
			t.ScaleMin, t.ScaleMax, t.ScaleMinLabel, t.ScaleMaxLabel,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"review_id":   reviewID,
				"template_id": t.ID,
			}).Error("failed to snapshot question")
			return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot questionnaire")
		}

		for _, opt := range optionsByTemplate[t.ID] {
			if _, err = tx.ExecContext(ctx, insertOption, uuid.New(), questionID, opt.Position, opt.Label); err != nil {
				r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"review_id":   reviewID,
					"template_id": t.ID,
				}).Error("failed to snapshot question option")
				return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to snapshot questionnaire")
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}

	return len(templates), nil
}

// ListByReview returns the review's snapshot questions in position order
// with their options eager-loaded.
func (r *Repository) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewQuestion, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionSnapshotRepository.ListByReview")
	defer span.End()

	query := `
		SELECT id, review_id, position, prompt, kind, required,
			scale_min, scale_max, scale_min_label, scale_max_label, created_at
		FROM review_questions
		WHERE review_id = $1
		ORDER BY position ASC
	`

	var questions []models.ReviewQuestion
	err := r.db.SelectContext(ctx, &questions, query, reviewID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id": reviewID,
		}).Error("failed to list snapshot questions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list snapshot questions")
	}

	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	optQuery := `
		SELECT id, question_id, position, label
		FROM review_question_options
		WHERE question_id = ANY($1)
		ORDER BY question_id, position ASC
	`

	var options []models.QuestionOption
	if err = r.db.SelectContext(ctx, &options, optQuery, pq.Array(ids)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list snapshot options")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list snapshot options")
	}

	byQuestion := make(map[uuid.UUID][]models.QuestionOption, len(questions))
	for _, opt := range options {
		byQuestion[opt.QuestionID] = append(byQuestion[opt.QuestionID], opt)
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
	}

	return questions, nil
}
