// Package scanlog persists scan run summaries.
package scanlog

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/laurel/pkg/database"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

const scanLogsTable = "scan_logs"

type ScanLogRepository interface {
	Insert(ctx context.Context, summary *models.ScanSummary) error
	List(ctx context.Context, limit int) ([]models.ScanLog, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new scan log repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var scanLogStruct = database.NewStruct(new(models.ScanLog))

// Insert persists a run summary.
func (r *Repository) Insert(ctx context.Context, summary *models.ScanSummary) error {
	ctx, span := tracing.StartSpan(ctx, "ScanLogRepository.Insert")
	defer span.End()

	log := models.ScanLog{
		ID:               uuid.New(),
		EmployeesScanned: summary.Scanned,
		ReviewsCreated:   summary.Created,
		Failures:         database.JSONB[[]models.ScanFailure]{Data: summary.Failures},
		Success:          summary.Success(),
		CreatedAt:        time.Now().UTC(),
	}

	ib := scanLogStruct.InsertInto(scanLogsTable, &log)
	query, args := ib.Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to insert scan log")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert scan log")
	}

	return nil
}

// List returns the most recent run summaries.
func (r *Repository) List(ctx context.Context, limit int) ([]models.ScanLog, error) {
	ctx, span := tracing.StartSpan(ctx, "ScanLogRepository.List")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	sb := scanLogStruct.SelectFrom(scanLogsTable)
	sb.OrderBy("created_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()

	var logs []models.ScanLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list scan logs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list scan logs")
	}

	return logs, nil
}
