package review

import (
	"context"
	"database/sql"
	"fmt"
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

type fakeTx struct {
	database.Tx
	commits   *int
	rollbacks *int
}

func (t fakeTx) IsOpen() bool { return true }

func (t fakeTx) Commit(ctx context.Context) error {
	if t.commits != nil {
		*t.commits++
	}
	return nil
}

func (t fakeTx) Rollback(ctx context.Context) error {
	if t.rollbacks != nil {
		*t.rollbacks++
	}
	return nil
}

type fakeDB struct {
	database.DB
	commits   int
	rollbacks int
}

func (db *fakeDB) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, fakeTx{commits: &db.commits, rollbacks: &db.rollbacks}, nil
}

type fakeEmployees struct {
	list []models.EligibleEmployee
	err  error
}

func (f *fakeEmployees) ListEligible(ctx context.Context) ([]models.EligibleEmployee, error) {
	return f.list, f.err
}

type fakeReviews struct {
	reviewrepo.ReviewRepository
	existing  map[string]bool
	inserted  []*models.Review
	insertErr map[string]error
	expired   []uuid.UUID
	byID      map[uuid.UUID]*models.Review
	all       []models.ReviewListItem
}

func existsKey(userID uuid.UUID, typeID int, registration string) string {
	return fmt.Sprintf("%s/%d/%s", userID, typeID, registration)
}

func (f *fakeReviews) Insert(ctx context.Context, review *models.Review) error {
	if err := f.insertErr[review.Registration]; err != nil {
		return err
	}
	f.inserted = append(f.inserted, review)
	return nil
}

func (f *fakeReviews) Exists(ctx context.Context, userID uuid.UUID, reviewTypeID int, registration string) (bool, error) {
	return f.existing[existsKey(userID, reviewTypeID, registration)], nil
}

func (f *fakeReviews) ListTypes(ctx context.Context) ([]models.ReviewType, error) {
	return []models.ReviewType{
		{ID: models.ReviewType45Day, Name: "45-day", MinTenureDays: 0, MaxTenureDays: 45, DueOffsetDays: 55},
		{ID: models.ReviewType90Day, Name: "90-day", MinTenureDays: 46, MaxTenureDays: 90, DueOffsetDays: 100},
	}, nil
}

func (f *fakeReviews) ExpireOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return f.expired, nil
}

func (f *fakeReviews) ListAll(ctx context.Context, callerID uuid.UUID) ([]models.ReviewListItem, error) {
	return f.all, nil
}

func (f *fakeReviews) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, ok := f.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "review not found")
	}
	return review, nil
}

type fakeSnapshots struct {
	copyErr map[uuid.UUID]error
	copied  int
}

func (f *fakeSnapshots) CopyFromTemplate(ctx context.Context, reviewID uuid.UUID, reviewTypeID int) (int, error) {
	if err := f.copyErr[reviewID]; err != nil {
		return 0, err
	}
	f.copied++
	return 5, nil
}

func (f *fakeSnapshots) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewQuestion, error) {
	return nil, nil
}

type fakeScanLogs struct {
	logs []*models.ScanSummary
}

func (f *fakeScanLogs) Insert(ctx context.Context, summary *models.ScanSummary) error {
	f.logs = append(f.logs, summary)
	return nil
}

func (f *fakeScanLogs) List(ctx context.Context, limit int) ([]models.ScanLog, error) {
	return nil, nil
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return u, nil
}

type fakeResolver struct {
	manager *models.ManagerCandidate
	err     error
}

func (f *fakeResolver) Resolve(ctx context.Context, hierarchyPath *string) (*models.ManagerCandidate, error) {
	return f.manager, f.err
}

type fixture struct {
	svc       *Service
	db        *fakeDB
	employees *fakeEmployees
	reviews   *fakeReviews
	snapshots *fakeSnapshots
	scanLogs  *fakeScanLogs
	users     *fakeUsers
	resolver  *fakeResolver
}

func newFixture() *fixture {
	logger := testLogger()
	f := &fixture{
		db:        &fakeDB{},
		employees: &fakeEmployees{},
		reviews: &fakeReviews{
			existing:  map[string]bool{},
			insertErr: map[string]error{},
			byID:      map[uuid.UUID]*models.Review{},
		},
		snapshots: &fakeSnapshots{copyErr: map[uuid.UUID]error{}},
		scanLogs:  &fakeScanLogs{},
		users:     &fakeUsers{users: map[uuid.UUID]*models.User{}},
		resolver:  &fakeResolver{},
	}
	f.svc = NewService(f.db, f.employees, f.reviews, f.snapshots, f.scanLogs, f.users, f.resolver, events.NewEmitter(nil, logger), logger)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func candidateWithTenure(registration string, tenureDays int) models.EligibleEmployee {
	return models.EligibleEmployee{
		UserID:        uuid.New(),
		Registration:  registration,
		FullName:      "Employee " + registration,
		AdmissionDate: testNow.AddDate(0, 0, -tenureDays),
	}
}

func TestRunScan_PicksVariantByTenure(t *testing.T) {
	f := newFixture()
	f.employees.list = []models.EligibleEmployee{
		candidateWithTenure("E30", 30),
		candidateWithTenure("E46", 46),
	}

	summary, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Created)
	assert.Empty(t, summary.Failures)
	require.Len(t, f.reviews.inserted, 2)

	assert.Equal(t, models.ReviewType45Day, f.reviews.inserted[0].ReviewTypeID)
	assert.Equal(t, models.ReviewType90Day, f.reviews.inserted[1].ReviewTypeID)
}

func TestRunScan_TenureWindowBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		tenureDays int
		wantTypeID int
	}{
		{"day 0", 0, models.ReviewType45Day},
		{"day 45 still first window", 45, models.ReviewType45Day},
		{"day 46 second window", 46, models.ReviewType90Day},
		{"day 90 still second window", 90, models.ReviewType90Day},
		{"day 91 outside every window", 91, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.employees.list = []models.EligibleEmployee{candidateWithTenure("E1", tt.tenureDays)}

			summary, err := f.svc.RunScan(context.Background())
			require.NoError(t, err)

			if tt.wantTypeID == 0 {
				assert.Equal(t, 0, summary.Created)
				assert.Equal(t, 1, summary.Skipped)
				assert.Empty(t, f.reviews.inserted)
				return
			}

			require.Len(t, f.reviews.inserted, 1)
			assert.Equal(t, tt.wantTypeID, f.reviews.inserted[0].ReviewTypeID)
		})
	}
}

func TestRunScan_DueDateFromAdmission(t *testing.T) {
	f := newFixture()
	f.employees.list = []models.EligibleEmployee{
		candidateWithTenure("E30", 30),
		candidateWithTenure("E60", 60),
	}

	_, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)
	require.Len(t, f.reviews.inserted, 2)

	first := f.reviews.inserted[0]
	assert.Equal(t, first.AdmissionDate.AddDate(0, 0, 55), first.DueDate)

	second := f.reviews.inserted[1]
	assert.Equal(t, second.AdmissionDate.AddDate(0, 0, 100), second.DueDate)
}

func TestRunScan_StatusByWindowPosition(t *testing.T) {
	f := newFixture()
	f.employees.list = []models.EligibleEmployee{
		candidateWithTenure("MID", 30),
		candidateWithTenure("EDGE", 45),
	}

	_, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)
	require.Len(t, f.reviews.inserted, 2)

	assert.Equal(t, models.ReviewStatusScheduled, f.reviews.inserted[0].Status)
	assert.Equal(t, models.ReviewStatusPending, f.reviews.inserted[1].Status)
}

func TestRunScan_SkipsExistingReviews(t *testing.T) {
	f := newFixture()
	candidate := candidateWithTenure("E1", 30)
	f.employees.list = []models.EligibleEmployee{candidate}
	f.reviews.existing[existsKey(candidate.UserID, models.ReviewType45Day, candidate.Registration)] = true

	summary, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, f.reviews.inserted)
	assert.Equal(t, 0, f.db.commits)
}

func TestRunScan_DuplicateRaceIsBenign(t *testing.T) {
	f := newFixture()
	candidate := candidateWithTenure("E1", 30)
	f.employees.list = []models.EligibleEmployee{candidate}
	f.reviews.insertErr[candidate.Registration] = reviewrepo.ErrDuplicate

	summary, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, summary.Failures)
}

func TestRunScan_OneFailureDoesNotStopTheRun(t *testing.T) {
	f := newFixture()
	f.employees.list = []models.EligibleEmployee{
		candidateWithTenure("OK1", 10),
		candidateWithTenure("BAD", 20),
		candidateWithTenure("OK2", 50),
	}
	f.reviews.insertErr["BAD"] = httperror.NewHTTPError(http.StatusInternalServerError, "insert failed")

	summary, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Created)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "BAD", summary.Failures[0].Registration)

	// only the two successful employees committed
	assert.Equal(t, 2, f.db.commits)
}

func TestRunScan_PersistsScanLog(t *testing.T) {
	f := newFixture()
	f.employees.list = []models.EligibleEmployee{candidateWithTenure("E1", 30)}

	_, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	require.Len(t, f.scanLogs.logs, 1)
	assert.Equal(t, 1, f.scanLogs.logs[0].Scanned)
	assert.Equal(t, 1, f.scanLogs.logs[0].Created)
}

func TestRunScan_NoManagerStillCreates(t *testing.T) {
	f := newFixture()
	f.resolver.manager = nil
	f.employees.list = []models.EligibleEmployee{candidateWithTenure("E1", 30)}

	summary, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	require.Len(t, f.reviews.inserted, 1)
	assert.Nil(t, f.reviews.inserted[0].ManagerID)
}

func TestRunScan_AssignsResolvedManager(t *testing.T) {
	f := newFixture()
	managerID := uuid.New()
	f.resolver.manager = &models.ManagerCandidate{UserID: managerID, Registration: "MGR"}
	f.employees.list = []models.EligibleEmployee{candidateWithTenure("E1", 30)}

	_, err := f.svc.RunScan(context.Background())
	require.NoError(t, err)

	require.Len(t, f.reviews.inserted, 1)
	require.NotNil(t, f.reviews.inserted[0].ManagerID)
	assert.Equal(t, managerID, *f.reviews.inserted[0].ManagerID)
}

func TestExpireOverdue_CountsExpired(t *testing.T) {
	f := newFixture()
	f.reviews.expired = []uuid.UUID{uuid.New(), uuid.New()}

	count, err := f.svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetByID_Authorization(t *testing.T) {
	subjectID := uuid.New()
	managerID := uuid.New()
	hrID := uuid.New()
	strangerID := uuid.New()

	f := newFixture()
	review := &models.Review{ID: uuid.New(), UserID: subjectID, ManagerID: &managerID}
	f.reviews.byID[review.ID] = review
	f.users.users[hrID] = &models.User{ID: hrID, Role: RoleHR}
	f.users.users[strangerID] = &models.User{ID: strangerID, Role: "employee"}

	tests := []struct {
		name       string
		callerID   uuid.UUID
		wantStatus int
	}{
		{"subject", subjectID, 0},
		{"manager", managerID, 0},
		{"hr", hrID, 0},
		{"stranger", strangerID, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetByID(context.Background(), review.ID, tt.callerID)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, review.ID, got.ID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, httperror.GetStatusCode(err))
		})
	}
}

func TestListAll_ReturnsEveryReview(t *testing.T) {
	f := newFixture()
	f.reviews.all = []models.ReviewListItem{
		{Review: models.Review{ID: uuid.New()}, TypeName: "45-day", Origin: models.OriginOwn},
		{Review: models.Review{ID: uuid.New()}, TypeName: "90-day", Origin: models.OriginTeam},
	}

	items, err := f.svc.ListAll(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestReopen_RejectsPastDueDate(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Reopen(context.Background(), uuid.New(), testNow.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestPickVariant_NegativeTenure(t *testing.T) {
	types := []models.ReviewType{{ID: 1, MinTenureDays: 0, MaxTenureDays: 45}}
	assert.Nil(t, pickVariant(-1, types))
}
