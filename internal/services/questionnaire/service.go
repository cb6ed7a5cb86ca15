// Package questionnaire manages the editable review questionnaires.
package questionnaire

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/laurel/internal/repositories/questiontemplate"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

type QuestionnaireService interface {
	GetActive(ctx context.Context, reviewTypeID int) ([]models.QuestionTemplate, error)
	Replace(ctx context.Context, reviewTypeID int, questions []models.QuestionTemplate) error
}

type Service struct {
	templates questiontemplate.QuestionTemplateRepository
	logger    ectologger.Logger
}

// NewService creates a new questionnaire service
func NewService(templates questiontemplate.QuestionTemplateRepository, logger ectologger.Logger) *Service {
	return &Service{
		templates: templates,
		logger:    logger,
	}
}

// GetActive returns the active questionnaire for a review type.
func (s *Service) GetActive(ctx context.Context, reviewTypeID int) ([]models.QuestionTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "QuestionnaireService.GetActive")
	defer span.End()

	return s.templates.ListActive(ctx, reviewTypeID)
}

// Replace validates and swaps a review type's questionnaire. Nothing is
// written when any question fails validation.
func (s *Service) Replace(ctx context.Context, reviewTypeID int, questions []models.QuestionTemplate) error {
	ctx, span := tracing.StartSpan(ctx, "QuestionnaireService.Replace")
	defer span.End()

	if len(questions) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "questionnaire must contain at least one question")
	}

	for i := range questions {
		if err := validateQuestion(&questions[i]); err != nil {
			return err
		}
	}

	if err := s.templates.Replace(ctx, reviewTypeID, questions); err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"review_type_id": reviewTypeID,
		"questions":      len(questions),
	}).Info("Questionnaire replaced")
	return nil
}

func validateQuestion(q *models.QuestionTemplate) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "question prompt is required")
	}

	if !q.Kind.Valid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown question kind %q", q.Kind)
	}

	switch q.Kind {
	case models.QuestionKindScale:
		if q.ScaleMin == nil || q.ScaleMax == nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "scale questions require min and max bounds")
		}
		if *q.ScaleMin < models.ScaleFloor || *q.ScaleMax > models.ScaleCeiling {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "scale bounds must stay within %d..%d", models.ScaleFloor, models.ScaleCeiling)
		}
		if *q.ScaleMin >= *q.ScaleMax {
			return httperror.NewHTTPError(http.StatusBadRequest, "scale min must be below scale max")
		}
	case models.QuestionKindSingleChoice:
		if len(q.Options) < 2 {
			return httperror.NewHTTPError(http.StatusBadRequest, "single-choice questions require at least two options")
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.Label) == "" {
				return httperror.NewHTTPError(http.StatusBadRequest, "option labels must not be empty")
			}
		}
	default:
		if len(q.Options) > 0 {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "%s questions cannot carry options", q.Kind)
		}
	}

	return nil
}
