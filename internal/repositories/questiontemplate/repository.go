// Package questiontemplate persists the editable questionnaire templates.
package questiontemplate

import (
	"context"
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
	templatesTable = "question_templates"
	optionsTable   = "template_options"
)

type QuestionTemplateRepository interface {
	ListActive(ctx context.Context, reviewTypeID int) ([]models.QuestionTemplate, error)
	Replace(ctx context.Context, reviewTypeID int, questions []models.QuestionTemplate) error
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new question template repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListActive returns the active templates of a review type in position
// order with their options eager-loaded.
func (r *Repository) ListActive(ctx context.Context, reviewTypeID int) ([]models.QuestionTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionTemplateRepository.ListActive")
	defer span.End()

	query := `
		SELECT id, review_type_id, position, prompt, kind, required,
			scale_min, scale_max, scale_min_label, scale_max_label,
			active, created_at, updated_at
		FROM question_templates
		WHERE review_type_id = $1 AND active = TRUE
		ORDER BY position ASC
	`

	var templates []models.QuestionTemplate
	err := r.db.SelectContext(ctx, &templates, query, reviewTypeID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_type_id": reviewTypeID,
		}).Error("failed to list question templates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list question templates")
	}

	if len(templates) == 0 {
		return templates, nil
	}

	ids := make([]uuid.UUID, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}

	optQuery := `
		SELECT id, template_id, position, label
		FROM template_options
		WHERE template_id = ANY($1)
		ORDER BY template_id, position ASC
	`

	var options []models.TemplateOption
	if err = r.db.SelectContext(ctx, &options, optQuery, pq.Array(ids)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list template options")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list template options")
	}

	byTemplate := make(map[uuid.UUID][]models.TemplateOption, len(templates))
	for _, opt := range options {
		byTemplate[opt.TemplateID] = append(byTemplate[opt.TemplateID], opt)
	}
	for i := range templates {
		templates[i].Options = byTemplate[templates[i].ID]
	}

	return templates, nil
}

// Replace swaps a review type's template set for the submitted one in a
// single transaction: templates absent from the submission are deleted
// (options cascade), existing ones are updated in place, new ones inserted,
// and the options of every single-choice question are rewritten. Snapshots
// of already-created reviews are never touched.
func (r *Repository) Replace(ctx context.Context, reviewTypeID int, questions []models.QuestionTemplate) error {
	ctx, span := tracing.StartSpan(ctx, "QuestionTemplateRepository.Replace")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	// ids that survive this replacement
	kept := make([]uuid.UUID, 0, len(questions))
	for i := range questions {
		if questions[i].ID != uuid.Nil {
			kept = append(kept, questions[i].ID)
		}
	}

	deleteQuery := `DELETE FROM question_templates WHERE review_type_id = $1 AND NOT (id = ANY($2))`
	if _, err = tx.ExecContext(ctx, deleteQuery, reviewTypeID, pq.Array(kept)); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_type_id": reviewTypeID,
		}).Error("failed to delete removed templates")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace questionnaire")
	}

	upsertQuery := `
		INSERT INTO question_templates (
			id, review_type_id, position, prompt, kind, required,
			scale_min, scale_max, scale_min_label, scale_max_label,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $11)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			prompt = EXCLUDED.prompt,
			kind = EXCLUDED.kind,
			required = EXCLUDED.required,
			scale_min = EXCLUDED.scale_min,
			scale_max = EXCLUDED.scale_max,
			scale_min_label = EXCLUDED.scale_min_label,
			scale_max_label = EXCLUDED.scale_max_label,
			active = TRUE,
			updated_at = EXCLUDED.updated_at
	`

	for i := range questions {
		q := &questions[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		q.ReviewTypeID = reviewTypeID
		q.Position = i + 1

		if _, err = tx.ExecContext(ctx, upsertQuery,
			q.ID, q.ReviewTypeID, q.Position, q.Prompt, q.Kind, q.Required,
			q.ScaleMin, q.ScaleMax, q.ScaleMinLabel, q.ScaleMaxLabel, now,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"review_type_id": reviewTypeID,
				"template_id":    q.ID,
			}).Error("failed to upsert template")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace questionnaire")
		}

		// Options are rewritten wholesale; their ids are not stable across edits.
		if _, err = tx.ExecContext(ctx, `DELETE FROM template_options WHERE template_id = $1`, q.ID); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("failed to clear template options")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace questionnaire")
		}

		for j := range q.Options {
			opt := &q.Options[j]
			if opt.ID == uuid.Nil {
				opt.ID = uuid.New()
			}
			opt.TemplateID = q.ID
			opt.Position = j + 1

			if _, err = tx.ExecContext(ctx,
				`INSERT INTO template_options (id, template_id, position, label) VALUES ($1, $2, $3, $4)`,
				opt.ID, opt.TemplateID, opt.Position, opt.Label,
			); err != nil {
				r.logger.WithContext(ctx).WithError(err).Error("failed to insert template option")
				return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace questionnaire")
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"review_type_id": reviewTypeID,
		"questions":      len(questions),
	}).Info("Replaced questionnaire templates")
	return nil
}
