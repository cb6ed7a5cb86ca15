// Package events handles event emission for review lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/metrics"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
)

// Publisher is the producer surface the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ReviewEventMessage) error
}

// Emitter publishes review lifecycle audit events. Emission failures are
// logged and counted, never surfaced: the review state is already committed
// and the audit stream must not undo it.
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitReviewCreated emits a review.created event
func (e *Emitter) EmitReviewCreated(ctx context.Context, review *models.Review) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewCreated")
	defer span.End()

	e.publish(ctx, &kafka.ReviewEventMessage{
		Type:         "review.created",
		ReviewID:     review.ID.String(),
		UserID:       review.UserID.String(),
		ReviewTypeID: review.ReviewTypeID,
		Registration: review.Registration,
	})
}

// EmitReviewCompleted emits a review.completed event
func (e *Emitter) EmitReviewCompleted(ctx context.Context, review *models.Review) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewCompleted")
	defer span.End()

	e.publish(ctx, &kafka.ReviewEventMessage{
		Type:         "review.completed",
		ReviewID:     review.ID.String(),
		UserID:       review.UserID.String(),
		ReviewTypeID: review.ReviewTypeID,
		Registration: review.Registration,
	})
}

// EmitReviewExpired emits a review.expired event
func (e *Emitter) EmitReviewExpired(ctx context.Context, reviewID uuid.UUID) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewExpired")
	defer span.End()

	e.publish(ctx, &kafka.ReviewEventMessage{
		Type:     "review.expired",
		ReviewID: reviewID.String(),
	})
}

// EmitScanCompleted emits a scan.completed event with the run summary
func (e *Emitter) EmitScanCompleted(ctx context.Context, summary *models.ScanSummary) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitScanCompleted")
	defer span.End()

	e.publish(ctx, &kafka.ReviewEventMessage{
		Type:     "scan.completed",
		Scanned:  summary.Scanned,
		Created:  summary.Created,
		Failures: len(summary.Failures),
	})
}

func (e *Emitter) publish(ctx context.Context, msg *kafka.ReviewEventMessage) {
	if e.producer == nil {
		return
	}

	if err := e.producer.Publish(ctx, msg); err != nil {
		metrics.EventPublishes.WithLabelValues(msg.Type, "error").Inc()
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", msg.Type)
		return
	}

	metrics.EventPublishes.WithLabelValues(msg.Type, "ok").Inc()
}
