// Package review drives the review lifecycle: the eligibility scan, the
// overdue sweep and review access.
package review

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/laurel/internal/repositories/employee"
	"github.com/Ramsey-B/laurel/internal/repositories/questionsnapshot"
	reviewrepo "github.com/Ramsey-B/laurel/internal/repositories/review"
	"github.com/Ramsey-B/laurel/internal/repositories/scanlog"
	"github.com/Ramsey-B/laurel/internal/repositories/user"
	"github.com/Ramsey-B/laurel/internal/services/hierarchy"
	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/events"
	"github.com/Ramsey-B/laurel/pkg/metrics"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// Roles allowed to see and manage every review.
const (
	RoleHR    = "hr"
	RoleAdmin = "admin"
)

type ReviewService interface {
	RunScan(ctx context.Context) (*models.ScanSummary, error)
	ExpireOverdue(ctx context.Context) (int, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReviewListItem, error)
	ListAll(ctx context.Context, callerID uuid.UUID) ([]models.ReviewListItem, error)
	GetByID(ctx context.Context, id uuid.UUID, callerID uuid.UUID) (*models.Review, error)
	Reopen(ctx context.Context, id uuid.UUID, newDueDate time.Time) (*models.Review, error)
	ScanLogs(ctx context.Context, limit int) ([]models.ScanLog, error)
}

type Service struct {
	db        database.DB
	employees employee.EmployeeRepository
	reviews   reviewrepo.ReviewRepository
	snapshots questionsnapshot.QuestionSnapshotRepository
	scanLogs  scanlog.ScanLogRepository
	users     user.UserRepository
	resolver  hierarchy.ManagerResolver
	emitter   *events.Emitter
	logger    ectologger.Logger

	now func() time.Time
}

// NewService creates a new review service
func NewService(
	db database.DB,
	employees employee.EmployeeRepository,
	reviews reviewrepo.ReviewRepository,
	snapshots questionsnapshot.QuestionSnapshotRepository,
	scanLogs scanlog.ScanLogRepository,
	users user.UserRepository,
	resolver hierarchy.ManagerResolver,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Service {
	return &Service{
		db:        db,
		employees: employees,
		reviews:   reviews,
		snapshots: snapshots,
		scanLogs:  scanLogs,
		users:     users,
		resolver:  resolver,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// RunScan walks every eligible employee and creates the review their tenure
// calls for. Each employee is processed in its own transaction: one failure
// rolls back that employee only and the run continues. Re-running creates
// nothing new.
func (s *Service) RunScan(ctx context.Context) (*models.ScanSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.RunScan")
	defer span.End()

	start := s.now()
	defer func() {
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}()

	candidates, err := s.employees.ListEligible(ctx)
	if err != nil {
		// store unreachable: abort, nothing partial happened
		return nil, err
	}

	types, err := s.reviews.ListTypes(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.ScanSummary{Failures: []models.ScanFailure{}}

	for i := range candidates {
		candidate := &candidates[i]
		summary.Scanned++
		metrics.ScanCandidates.Inc()

		created, err := s.processOne(ctx, candidate, types)
		if err != nil {
			metrics.ScanFailures.Inc()
			summary.Failures = append(summary.Failures, models.ScanFailure{
				Registration: candidate.Registration,
				FullName:     candidate.FullName,
				Error:        err.Error(),
			})
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"registration": candidate.Registration,
			}).Error("Review creation failed for employee")
			continue
		}

		if created {
			summary.Created++
		} else {
			summary.Skipped++
		}
	}

	if err := s.scanLogs.Insert(ctx, summary); err != nil {
		// the run itself succeeded; a lost log line is not worth failing it
		s.logger.WithContext(ctx).WithError(err).Error("Failed to persist scan log")
	}

	s.emitter.EmitScanCompleted(ctx, summary)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"scanned":  summary.Scanned,
		"created":  summary.Created,
		"skipped":  summary.Skipped,
		"failures": len(summary.Failures),
	}).Info("Scan run completed")
	return summary, nil
}

// processOne creates the review one employee is owed, if any. Returns true
// when a review was created.
func (s *Service) processOne(ctx context.Context, candidate *models.EligibleEmployee, types []models.ReviewType) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.processOne")
	defer span.End()

	tenure := candidate.TenureDays(s.now())
	reviewType := pickVariant(tenure, types)
	if reviewType == nil {
		return false, nil
	}

	exists, err := s.reviews.Exists(ctx, candidate.UserID, reviewType.ID, candidate.Registration)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	// Everything for this employee happens in one transaction; a snapshot
	// failure takes the review down with it.
	txCtx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(txCtx)

	manager, err := s.resolver.Resolve(txCtx, candidate.HierarchyPath)
	if err != nil {
		return false, err
	}

	status := models.ReviewStatusPending
	if tenure < reviewType.MaxTenureDays {
		status = models.ReviewStatusScheduled
	}

	review := &models.Review{
		ID:            uuid.New(),
		UserID:        candidate.UserID,
		ReviewTypeID:  reviewType.ID,
		Registration:  candidate.Registration,
		AdmissionDate: candidate.AdmissionDate,
		DueDate:       candidate.AdmissionDate.AddDate(0, 0, reviewType.DueOffsetDays),
		Status:        status,
	}
	if manager != nil {
		review.ManagerID = &manager.UserID
	} else {
		s.logger.WithContext(txCtx).WithFields(map[string]any{
			"registration": candidate.Registration,
		}).Info("Creating review without a resolved manager")
	}

	if err = s.reviews.Insert(txCtx, review); err != nil {
		if errors.Is(err, reviewrepo.ErrDuplicate) {
			// another instance won the race; nothing to do
			return false, nil
		}
		return false, err
	}

	copied, err := s.snapshots.CopyFromTemplate(txCtx, review.ID, reviewType.ID)
	if err != nil {
		return false, err
	}

	if err = tx.Commit(txCtx); err != nil {
		return false, err
	}

	metrics.ReviewsCreated.WithLabelValues(reviewType.Name).Inc()
	s.emitter.EmitReviewCreated(ctx, review)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"review_id":     review.ID,
		"registration":  candidate.Registration,
		"review_type":   reviewType.Name,
		"status":        review.Status,
		"due_date":      review.DueDate,
		"questions":     copied,
		"manager_found": manager != nil,
	}).Info("Review created")
	return true, nil
}

// pickVariant selects the review type whose tenure window contains the
// given tenure. Outside every window means no review is owed.
func pickVariant(tenureDays int, types []models.ReviewType) *models.ReviewType {
	if tenureDays < 0 {
		return nil
	}
	for i := range types {
		if tenureDays >= types[i].MinTenureDays && tenureDays <= types[i].MaxTenureDays {
			return &types[i]
		}
	}
	return nil
}

// ExpireOverdue flips every open review past its due date to Expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.ExpireOverdue")
	defer span.End()

	ids, err := s.reviews.ExpireOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		metrics.ReviewsExpired.Inc()
		s.emitter.EmitReviewExpired(ctx, id)
	}

	return len(ids), nil
}

// ListForUser returns the caller's own reviews and the reviews they manage.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReviewListItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.ListForUser")
	defer span.End()

	return s.reviews.ListForUser(ctx, userID)
}

// ListAll returns every review for the privileged listing. Role enforcement
// sits on the route; this only shapes the result.
func (s *Service) ListAll(ctx context.Context, callerID uuid.UUID) ([]models.ReviewListItem, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.ListAll")
	defer span.End()

	return s.reviews.ListAll(ctx, callerID)
}

// GetByID returns a review when the caller is its subject, its manager, or
// holds a privileged role.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, callerID uuid.UUID) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.GetByID")
	defer span.End()

	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, review, callerID); err != nil {
		return nil, err
	}

	return review, nil
}

func (s *Service) authorize(ctx context.Context, review *models.Review, callerID uuid.UUID) error {
	if review.UserID == callerID {
		return nil
	}
	if review.ManagerID != nil && *review.ManagerID == callerID {
		return nil
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	if caller.Role == RoleHR || caller.Role == RoleAdmin {
		return nil
	}

	return httperror.NewHTTPError(http.StatusForbidden, "not a participant of this review")
}

// Reopen restores an expired review with a new due date.
func (s *Service) Reopen(ctx context.Context, id uuid.UUID, newDueDate time.Time) (*models.Review, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.Reopen")
	defer span.End()

	if !s.now().Before(newDueDate.AddDate(0, 0, 1)) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "new due date must not already be past")
	}

	return s.reviews.Reopen(ctx, id, newDueDate)
}

// ScanLogs returns recent scan run summaries.
func (s *Service) ScanLogs(ctx context.Context, limit int) ([]models.ScanLog, error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.ScanLogs")
	defer span.End()

	return s.scanLogs.List(ctx, limit)
}
