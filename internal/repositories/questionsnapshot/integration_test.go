package questionsnapshot_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/laurel/internal/repositories/questionsnapshot"
	"github.com/Ramsey-B/laurel/internal/repositories/questiontemplate"
	reviewrepo "github.com/Ramsey-B/laurel/internal/repositories/review"
	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "laurel"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func createTestUser(t *testing.T, db database.DB) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, national_id, registration, full_name, role, is_active)
		VALUES ($1, $2, $3, 'Snapshot Test Employee', 'employee', TRUE)
	`, userID, uuid.NewString(), uuid.NewString())
	require.NoError(t, err)

	return userID
}

func createTestReview(t *testing.T, db database.DB, userID uuid.UUID, reviewTypeID int) *models.Review {
	t.Helper()

	admission := time.Now().UTC().AddDate(0, 0, -30)
	review := &models.Review{
		UserID:        userID,
		ReviewTypeID:  reviewTypeID,
		Registration:  uuid.NewString(),
		AdmissionDate: admission,
		DueDate:       admission.AddDate(0, 0, 55),
		Status:        models.ReviewStatusScheduled,
	}

	reviews := reviewrepo.NewRepository(db, getTestLogger())
	require.NoError(t, reviews.Insert(context.Background(), review))

	return review
}

// A review's snapshot must keep the questionnaire exactly as it was at
// creation time, no matter how the templates are edited afterwards.
func TestIntegrationSnapshot_ImmutableAfterTemplateReplace(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	ctx := context.Background()

	templates := questiontemplate.NewRepository(db, logger)
	snapshots := questionsnapshot.NewRepository(db, logger)

	originalChoiceOptions := []models.TemplateOption{
		{Label: "Exceeds expectations"},
		{Label: "Meets expectations"},
	}
	original := []models.QuestionTemplate{
		{
			Prompt:   "How has your onboarding gone so far?",
			Kind:     models.QuestionKindText,
			Required: true,
		},
		{
			Prompt:   "How would you rate your first weeks?",
			Kind:     models.QuestionKindSingleChoice,
			Required: true,
			Options:  originalChoiceOptions,
		},
	}
	require.NoError(t, templates.Replace(ctx, models.ReviewType45Day, original))

	userID := createTestUser(t, db)
	review := createTestReview(t, db, userID, models.ReviewType45Day)

	copied, err := snapshots.CopyFromTemplate(ctx, review.ID, models.ReviewType45Day)
	require.NoError(t, err)
	require.Equal(t, 2, copied)

	// Rewrite the questionnaire from scratch: new prompts, new options
	replacement := []models.QuestionTemplate{
		{
			Prompt:   "What would you change about the team?",
			Kind:     models.QuestionKindText,
			Required: true,
		},
		{
			Prompt:   "Rate your manager's support",
			Kind:     models.QuestionKindSingleChoice,
			Required: true,
			Options: []models.TemplateOption{
				{Label: "Excellent"},
				{Label: "Good"},
				{Label: "Poor"},
			},
		},
	}
	require.NoError(t, templates.Replace(ctx, models.ReviewType45Day, replacement))

	// The issued review still shows the questionnaire it was created with
	frozen, err := snapshots.ListByReview(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, frozen, 2)

	assert.Equal(t, "How has your onboarding gone so far?", frozen[0].Prompt)
	assert.Equal(t, models.QuestionKindText, frozen[0].Kind)
	assert.Empty(t, frozen[0].Options)

	assert.Equal(t, "How would you rate your first weeks?", frozen[1].Prompt)
	require.Len(t, frozen[1].Options, 2)
	assert.Equal(t, "Exceeds expectations", frozen[1].Options[0].Label)
	assert.Equal(t, "Meets expectations", frozen[1].Options[1].Label)
}

// Two reviews snapshotted around a template edit each freeze the template
// generation they were created under.
func TestIntegrationSnapshot_GenerationsStayApart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	ctx := context.Background()

	templates := questiontemplate.NewRepository(db, logger)
	snapshots := questionsnapshot.NewRepository(db, logger)

	require.NoError(t, templates.Replace(ctx, models.ReviewType90Day, []models.QuestionTemplate{
		{Prompt: "First generation question", Kind: models.QuestionKindText, Required: true},
	}))

	userID := createTestUser(t, db)

	first := createTestReview(t, db, userID, models.ReviewType90Day)
	_, err := snapshots.CopyFromTemplate(ctx, first.ID, models.ReviewType90Day)
	require.NoError(t, err)

	require.NoError(t, templates.Replace(ctx, models.ReviewType90Day, []models.QuestionTemplate{
		{Prompt: "Second generation question", Kind: models.QuestionKindText, Required: true},
	}))

	second := createTestReview(t, db, userID, models.ReviewType90Day)
	_, err = snapshots.CopyFromTemplate(ctx, second.ID, models.ReviewType90Day)
	require.NoError(t, err)

	firstFrozen, err := snapshots.ListByReview(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, firstFrozen, 1)
	assert.Equal(t, "First generation question", firstFrozen[0].Prompt)

	secondFrozen, err := snapshots.ListByReview(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, secondFrozen, 1)
	assert.Equal(t, "Second generation question", secondFrozen[0].Prompt)
}
