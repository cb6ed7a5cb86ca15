// Package answers collects review answer submissions and drives the
// completion state machine.
package answers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/laurel/internal/repositories/answer"
	"github.com/Ramsey-B/laurel/internal/repositories/questionsnapshot"
	reviewrepo "github.com/Ramsey-B/laurel/internal/repositories/review"
	reviewsvc "github.com/Ramsey-B/laurel/internal/services/review"
	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/metrics"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

type AnswerService interface {
	Submit(ctx context.Context, reviewID uuid.UUID, callerID uuid.UUID, role models.RespondentRole, submissions []models.AnswerSubmission) error
	GetForReview(ctx context.Context, reviewID uuid.UUID, callerID uuid.UUID) (*models.AnswerSet, error)
	Questions(ctx context.Context, reviewID uuid.UUID, callerID uuid.UUID) ([]models.ReviewQuestion, error)
}

type Service struct {
	db        database.DB
	reviews   reviewrepo.ReviewRepository
	reviewSvc reviewsvc.ReviewService
	snapshots questionsnapshot.QuestionSnapshotRepository
	answers   answer.AnswerRepository
	emitter   *events.Emitter
	logger    ectologger.Logger

	now func() time.Time
}

// NewService creates a new answer service
func NewService(
	db database.DB,
	reviews reviewrepo.ReviewRepository,
	reviewSvc reviewsvc.ReviewService,
	snapshots questionsnapshot.QuestionSnapshotRepository,
	answers answer.AnswerRepository,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Service {
	return &Service{
		db:        db,
		reviews:   reviews,
		reviewSvc: reviewSvc,
		snapshots: snapshots,
		answers:   answers,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit stores a role's full answer set and marks the role completed. The
// whole submission is validated against the review's snapshot before
// anything is written; any violation rejects it untouched. Completion is an
// atomic conditional update, so a repeated submission after the role closed
// is a conflict even under races.
func (s *Service) Submit(ctx context.Context, reviewID uuid.UUID, callerID uuid.UUID, role models.RespondentRole, submissions []models.AnswerSubmission) error {
	ctx, span := tracing.StartSpan(ctx, "AnswerService.Submit")
	defer span.End()

	if !role.Valid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid role %q", role)
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}

	if err = authorizeRole(review, callerID, role); err != nil {
		return err
	}

	now := s.now().UTC()
	if review.Status == models.ReviewStatusExpired || review.IsOverdue(now) {
		return httperror.NewHTTPError(http.StatusGone, "review has expired and no longer accepts answers")
	}

	if review.CompletedBy(role) {
		return httperror.NewHTTPErrorf(http.StatusConflict, "%s side of this review is already completed", role)
	}

	questions, err := s.snapshots.ListByReview(ctx, reviewID)
	if err != nil {
		return err
	}

	answers, err := buildAnswers(review, questions, callerID, role, submissions, now)
	if err != nil {
		return err
	}

	txCtx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(txCtx)

	if err = s.answers.UpsertAll(txCtx, answers); err != nil {
		return err
	}

	bothDone, err := s.reviews.CompleteRole(txCtx, reviewID, role, now)
	if err != nil {
		return err
	}

	if err = tx.Commit(txCtx); err != nil {
		return err
	}

	metrics.AnswersSubmitted.WithLabelValues(string(role)).Inc()

	if bothDone {
		review.Status = models.ReviewStatusCompleted
		s.emitter.EmitReviewCompleted(ctx, review)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id": reviewID,
		"role":      role,
		"answers":   len(answers),
		"completed": bothDone,
	}).Info("Answer set submitted")
	return nil
}

// authorizeRole checks that the caller may answer the given side.
func authorizeRole(review *models.Review, callerID uuid.UUID, role models.RespondentRole) error {
	switch role {
	case models.RoleEmployee:
		if review.UserID != callerID {
			return httperror.NewHTTPError(http.StatusForbidden, "only the review subject may answer the employee side")
		}
	case models.RoleManager:
		if review.ManagerID == nil || *review.ManagerID != callerID {
			return httperror.NewHTTPError(http.StatusForbidden, "only the assigned manager may answer the manager side")
		}
	}
	return nil
}

// buildAnswers validates a submission against the snapshot and produces the
// denormalized answer rows. Returns a 400 on the first violation.
func buildAnswers(review *models.Review, questions []models.ReviewQuestion, callerID uuid.UUID, role models.RespondentRole, submissions []models.AnswerSubmission, now time.Time) ([]models.Answer, error) {
	byID := make(map[uuid.UUID]*models.ReviewQuestion, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	submitted := make(map[uuid.UUID]*models.AnswerSubmission, len(submissions))
	for i := range submissions {
		sub := &submissions[i]
		if _, ok := byID[sub.QuestionID]; !ok {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %s is not part of this review", sub.QuestionID)
		}
		if _, dup := submitted[sub.QuestionID]; dup {
			return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %s answered more than once", sub.QuestionID)
		}
		submitted[sub.QuestionID] = sub
	}

	answers := make([]models.Answer, 0, len(submissions))
	for i := range questions {
		q := &questions[i]
		sub, ok := submitted[q.ID]
		if !ok || isEmpty(sub) {
			if q.Required {
				return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %d is required", q.Position)
			}
			continue
		}

		ans := models.Answer{
			ReviewID:   review.ID,
			QuestionID: q.ID,
			Role:       role,
			Prompt:     q.Prompt,
			Kind:       q.Kind,
			Options:    database.JSONB[[]models.QuestionOption]{Data: q.Options},
			Value:      strings.TrimSpace(sub.Value),
			AnsweredBy: callerID,
			AnsweredAt: now,
		}

		switch q.Kind {
		case models.QuestionKindSingleChoice:
			if sub.SelectedOptionID == nil {
				return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %d requires a selected option", q.Position)
			}
			opt, found := q.OptionByID(*sub.SelectedOptionID)
			if !found {
				return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "option does not belong to question %d", q.Position)
			}
			ans.SelectedOptionID = sub.SelectedOptionID
			ans.Value = opt.Label

		case models.QuestionKindScale:
			value, err := strconv.Atoi(ans.Value)
			if err != nil {
				return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %d expects a numeric value", q.Position)
			}
			min, max := models.ScaleFloor, models.ScaleCeiling
			if q.ScaleMin != nil {
				min = *q.ScaleMin
			}
			if q.ScaleMax != nil {
				max = *q.ScaleMax
			}
			if value < min || value > max {
				return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %d value must be between %d and %d", q.Position, min, max)
			}

		case models.QuestionKindYesNo:
			v := strings.ToLower(ans.Value)
			if v != "yes" && v != "no" {
				return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "question %d expects yes or no", q.Position)
			}
			ans.Value = v
		}

		answers = append(answers, ans)
	}

	return answers, nil
}

func isEmpty(sub *models.AnswerSubmission) bool {
	return strings.TrimSpace(sub.Value) == "" && sub.SelectedOptionID == nil
}

// GetForReview returns both roles' answers plus the ordered snapshot
// question list, access-checked like the review itself.
func (s *Service) GetForReview(ctx context.Context, reviewID uuid.UUID, callerID uuid.UUID) (*models.AnswerSet, error) {
	ctx, span := tracing.StartSpan(ctx, "AnswerService.GetForReview")
	defer span.End()

	// access check included
	if _, err := s.reviewSvc.GetByID(ctx, reviewID, callerID); err != nil {
		return nil, err
	}

	questions, err := s.snapshots.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	stored, err := s.answers.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	set := &models.AnswerSet{
		ReviewID:  reviewID,
		Questions: questions,
		Employee:  make(map[uuid.UUID]models.Answer),
		Manager:   make(map[uuid.UUID]models.Answer),
	}
	for _, ans := range stored {
		if ans.Role == models.RoleEmployee {
			set.Employee[ans.QuestionID] = ans
		} else {
			set.Manager[ans.QuestionID] = ans
		}
	}

	return set, nil
}

// Questions returns the review's snapshot questions, access-checked.
func (s *Service) Questions(ctx context.Context, reviewID uuid.UUID, callerID uuid.UUID) ([]models.ReviewQuestion, error) {
	ctx, span := tracing.StartSpan(ctx, "AnswerService.Questions")
	defer span.End()

	if _, err := s.reviewSvc.GetByID(ctx, reviewID, callerID); err != nil {
		return nil, err
	}

	return s.snapshots.ListByReview(ctx, reviewID)
}
