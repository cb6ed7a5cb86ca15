package answers

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reviewrepo "github.com/Ramsey-B/laurel/internal/repositories/review"
	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeTx struct{ database.Tx }

func (fakeTx) IsOpen() bool                     { return true }
func (fakeTx) Commit(ctx context.Context) error { return nil }
func (fakeTx) Rollback(ctx context.Context) error {
	return nil
}

type fakeDB struct{ database.DB }

func (fakeDB) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, fakeTx{}, nil
}

type fakeReviews struct {
	reviewrepo.ReviewRepository
	review      *models.Review
	completed   []models.RespondentRole
	bothDone    bool
	completeErr error
}

func (f *fakeReviews) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	if f.review == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "review not found")
	}
	return f.review, nil
}

func (f *fakeReviews) CompleteRole(ctx context.Context, reviewID uuid.UUID, role models.RespondentRole, now time.Time) (bool, error) {
	if f.completeErr != nil {
		return false, f.completeErr
	}
	f.completed = append(f.completed, role)
	return f.bothDone, nil
}

type fakeSnapshots struct {
	questions []models.ReviewQuestion
}

func (f *fakeSnapshots) CopyFromTemplate(ctx context.Context, reviewID uuid.UUID, reviewTypeID int) (int, error) {
	return 0, nil
}

func (f *fakeSnapshots) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewQuestion, error) {
	return f.questions, nil
}

type fakeAnswers struct {
	upserted []models.Answer
	stored   []models.Answer
}

func (f *fakeAnswers) UpsertAll(ctx context.Context, answers []models.Answer) error {
	f.upserted = append(f.upserted, answers...)
	return nil
}

func (f *fakeAnswers) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.Answer, error) {
	return f.stored, nil
}

// fakeReviewAccess stands in for the review service's access check.
type fakeReviewAccess struct {
	review *models.Review
	err    error
}

func (f *fakeReviewAccess) RunScan(ctx context.Context) (*models.ScanSummary, error) { return nil, nil }
func (f *fakeReviewAccess) ExpireOverdue(ctx context.Context) (int, error)           { return 0, nil }
func (f *fakeReviewAccess) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReviewListItem, error) {
	return nil, nil
}
func (f *fakeReviewAccess) ListAll(ctx context.Context, callerID uuid.UUID) ([]models.ReviewListItem, error) {
	return nil, nil
}
func (f *fakeReviewAccess) GetByID(ctx context.Context, id uuid.UUID, callerID uuid.UUID) (*models.Review, error) {
	return f.review, f.err
}
func (f *fakeReviewAccess) Reopen(ctx context.Context, id uuid.UUID, newDueDate time.Time) (*models.Review, error) {
	return nil, nil
}
func (f *fakeReviewAccess) ScanLogs(ctx context.Context, limit int) ([]models.ScanLog, error) {
	return nil, nil
}

type fixture struct {
	svc       *Service
	reviews   *fakeReviews
	snapshots *fakeSnapshots
	answers   *fakeAnswers
	access    *fakeReviewAccess
}

func newFixture() *fixture {
	logger := testLogger()
	f := &fixture{
		reviews:   &fakeReviews{},
		snapshots: &fakeSnapshots{},
		answers:   &fakeAnswers{},
		access:    &fakeReviewAccess{},
	}
	f.svc = NewService(fakeDB{}, f.reviews, f.access, f.snapshots, f.answers, events.NewEmitter(nil, logger), logger)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func openReview(subjectID, managerID uuid.UUID) *models.Review {
	return &models.Review{
		ID:        uuid.New(),
		UserID:    subjectID,
		ManagerID: &managerID,
		Status:    models.ReviewStatusInProgress,
		DueDate:   testNow.AddDate(0, 0, 10),
	}
}

func textQuestion(position int, required bool) models.ReviewQuestion {
	return models.ReviewQuestion{
		ID:       uuid.New(),
		Position: position,
		Prompt:   "How has onboarding gone?",
		Kind:     models.QuestionKindText,
		Required: required,
	}
}

func TestSubmit_EmployeeHappyPath(t *testing.T) {
	f := newFixture()
	subjectID := uuid.New()
	review := openReview(subjectID, uuid.New())
	f.reviews.review = review
	q := textQuestion(1, true)
	f.snapshots.questions = []models.ReviewQuestion{q}

	err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, []models.AnswerSubmission{
		{QuestionID: q.ID, Value: "  Going well  "},
	})
	require.NoError(t, err)

	require.Len(t, f.answers.upserted, 1)
	ans := f.answers.upserted[0]
	assert.Equal(t, "Going well", ans.Value)
	assert.Equal(t, q.Prompt, ans.Prompt)
	assert.Equal(t, subjectID, ans.AnsweredBy)
	assert.Equal(t, []models.RespondentRole{models.RoleEmployee}, f.reviews.completed)
}

func TestSubmit_InvalidRole(t *testing.T) {
	f := newFixture()

	err := f.svc.Submit(context.Background(), uuid.New(), uuid.New(), "supervisor", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestSubmit_RoleAuthorization(t *testing.T) {
	subjectID := uuid.New()
	managerID := uuid.New()
	strangerID := uuid.New()

	tests := []struct {
		name       string
		callerID   uuid.UUID
		role       models.RespondentRole
		wantStatus int
	}{
		{"subject answers employee side", subjectID, models.RoleEmployee, 0},
		{"manager answers manager side", managerID, models.RoleManager, 0},
		{"manager cannot answer employee side", managerID, models.RoleEmployee, http.StatusForbidden},
		{"subject cannot answer manager side", subjectID, models.RoleManager, http.StatusForbidden},
		{"stranger rejected", strangerID, models.RoleEmployee, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			review := openReview(subjectID, managerID)
			f.reviews.review = review
			q := textQuestion(1, true)
			f.snapshots.questions = []models.ReviewQuestion{q}

			err := f.svc.Submit(context.Background(), review.ID, tt.callerID, tt.role, []models.AnswerSubmission{
				{QuestionID: q.ID, Value: "fine"},
			})
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, httperror.GetStatusCode(err))
		})
	}
}

func TestSubmit_NoManagerAssigned(t *testing.T) {
	f := newFixture()
	review := openReview(uuid.New(), uuid.New())
	review.ManagerID = nil
	f.reviews.review = review

	err := f.svc.Submit(context.Background(), review.ID, uuid.New(), models.RoleManager, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}

func TestSubmit_ExpiredReview(t *testing.T) {
	subjectID := uuid.New()

	t.Run("expired status", func(t *testing.T) {
		f := newFixture()
		review := openReview(subjectID, uuid.New())
		review.Status = models.ReviewStatusExpired
		f.reviews.review = review

		err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusGone, httperror.GetStatusCode(err))
	})

	t.Run("past due date not yet swept", func(t *testing.T) {
		f := newFixture()
		review := openReview(subjectID, uuid.New())
		review.DueDate = testNow.AddDate(0, 0, -1)
		f.reviews.review = review

		err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusGone, httperror.GetStatusCode(err))
	})

	// The due date is a calendar day; a submission during that day still lands.
	t.Run("due date day is still usable", func(t *testing.T) {
		f := newFixture()
		review := openReview(subjectID, uuid.New())
		review.DueDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		f.reviews.review = review
		q := textQuestion(1, true)
		f.snapshots.questions = []models.ReviewQuestion{q}

		err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, []models.AnswerSubmission{
			{QuestionID: q.ID, Value: "Settled in"},
		})
		require.NoError(t, err)
		require.Len(t, f.answers.upserted, 1)
	})
}

func TestSubmit_RoleAlreadyCompleted(t *testing.T) {
	f := newFixture()
	subjectID := uuid.New()
	review := openReview(subjectID, uuid.New())
	review.EmployeeCompleted = true
	f.reviews.review = review

	err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	assert.Empty(t, f.answers.upserted)
}

func TestSubmit_BothSidesDoneCompletesReview(t *testing.T) {
	f := newFixture()
	subjectID := uuid.New()
	review := openReview(subjectID, uuid.New())
	review.ManagerCompleted = true
	f.reviews.review = review
	f.reviews.bothDone = true
	q := textQuestion(1, true)
	f.snapshots.questions = []models.ReviewQuestion{q}

	err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, []models.AnswerSubmission{
		{QuestionID: q.ID, Value: "done"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusCompleted, review.Status)
}

func TestSubmit_CompletionRaceSurfacesConflict(t *testing.T) {
	f := newFixture()
	subjectID := uuid.New()
	review := openReview(subjectID, uuid.New())
	f.reviews.review = review
	f.reviews.completeErr = httperror.NewHTTPError(http.StatusConflict, "already completed")
	q := textQuestion(1, true)
	f.snapshots.questions = []models.ReviewQuestion{q}

	err := f.svc.Submit(context.Background(), review.ID, subjectID, models.RoleEmployee, []models.AnswerSubmission{
		{QuestionID: q.ID, Value: "fine"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestBuildAnswers_Validation(t *testing.T) {
	subjectID := uuid.New()
	review := openReview(subjectID, uuid.New())

	scaleMin, scaleMax := 1, 5
	optionA := models.QuestionOption{ID: uuid.New(), Position: 1, Label: "Strongly agree"}
	optionB := models.QuestionOption{ID: uuid.New(), Position: 2, Label: "Disagree"}

	text := textQuestion(1, true)
	optional := textQuestion(2, false)
	choice := models.ReviewQuestion{
		ID:       uuid.New(),
		Position: 3,
		Prompt:   "Team fit",
		Kind:     models.QuestionKindSingleChoice,
		Required: true,
		Options:  []models.QuestionOption{optionA, optionB},
	}
	scale := models.ReviewQuestion{
		ID:       uuid.New(),
		Position: 4,
		Prompt:   "Overall rating",
		Kind:     models.QuestionKindScale,
		Required: true,
		ScaleMin: &scaleMin,
		ScaleMax: &scaleMax,
	}
	yesNo := models.ReviewQuestion{
		ID:       uuid.New(),
		Position: 5,
		Prompt:   "Would you recommend the team?",
		Kind:     models.QuestionKindYesNo,
		Required: true,
	}
	questions := []models.ReviewQuestion{text, optional, choice, scale, yesNo}

	valid := func() []models.AnswerSubmission {
		return []models.AnswerSubmission{
			{QuestionID: text.ID, Value: "fine"},
			{QuestionID: choice.ID, SelectedOptionID: &optionA.ID},
			{QuestionID: scale.ID, Value: "3"},
			{QuestionID: yesNo.ID, Value: "YES"},
		}
	}

	t.Run("valid submission", func(t *testing.T) {
		answers, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, valid(), testNow)
		require.NoError(t, err)
		require.Len(t, answers, 4)

		// single choice stores the option label, yes/no is normalized
		assert.Equal(t, optionA.Label, answers[1].Value)
		assert.Equal(t, &optionA.ID, answers[1].SelectedOptionID)
		assert.Equal(t, "yes", answers[3].Value)
	})

	t.Run("unknown question", func(t *testing.T) {
		subs := append(valid(), models.AnswerSubmission{QuestionID: uuid.New(), Value: "x"})
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("duplicate answer", func(t *testing.T) {
		subs := append(valid(), models.AnswerSubmission{QuestionID: text.ID, Value: "again"})
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("required question missing", func(t *testing.T) {
		subs := valid()[1:]
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("required question blank", func(t *testing.T) {
		subs := valid()
		subs[0].Value = "   "
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("optional question skipped", func(t *testing.T) {
		answers, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, valid(), testNow)
		require.NoError(t, err)
		for _, ans := range answers {
			assert.NotEqual(t, optional.ID, ans.QuestionID)
		}
	})

	t.Run("single choice without option", func(t *testing.T) {
		subs := valid()
		subs[1] = models.AnswerSubmission{QuestionID: choice.ID, Value: "Strongly agree"}
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("single choice with foreign option", func(t *testing.T) {
		foreign := uuid.New()
		subs := valid()
		subs[1] = models.AnswerSubmission{QuestionID: choice.ID, SelectedOptionID: &foreign}
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("scale value not numeric", func(t *testing.T) {
		subs := valid()
		subs[2] = models.AnswerSubmission{QuestionID: scale.ID, Value: "high"}
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("scale value out of bounds", func(t *testing.T) {
		subs := valid()
		subs[2] = models.AnswerSubmission{QuestionID: scale.ID, Value: "6"}
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})

	t.Run("yes no rejects anything else", func(t *testing.T) {
		subs := valid()
		subs[3] = models.AnswerSubmission{QuestionID: yesNo.ID, Value: "maybe"}
		_, err := buildAnswers(review, questions, subjectID, models.RoleEmployee, subs, testNow)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
	})
}

func TestGetForReview_SplitsAnswersByRole(t *testing.T) {
	f := newFixture()
	reviewID := uuid.New()
	callerID := uuid.New()
	f.access.review = &models.Review{ID: reviewID, UserID: callerID}

	q1 := uuid.New()
	q2 := uuid.New()
	f.answers.stored = []models.Answer{
		{QuestionID: q1, Role: models.RoleEmployee, Value: "mine"},
		{QuestionID: q1, Role: models.RoleManager, Value: "theirs"},
		{QuestionID: q2, Role: models.RoleManager, Value: "more"},
	}

	set, err := f.svc.GetForReview(context.Background(), reviewID, callerID)
	require.NoError(t, err)

	assert.Len(t, set.Employee, 1)
	assert.Len(t, set.Manager, 2)
	assert.Equal(t, "mine", set.Employee[q1].Value)
	assert.Equal(t, "theirs", set.Manager[q1].Value)
}

func TestGetForReview_AccessDenied(t *testing.T) {
	f := newFixture()
	f.access.err = httperror.NewHTTPError(http.StatusForbidden, "not a participant of this review")

	_, err := f.svc.GetForReview(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, httperror.GetStatusCode(err))
}
