package handlers

import (
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/services/review"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/utils"
)

// ScanHandler handles the admin scan and recovery endpoints
type ScanHandler struct {
	reviews review.ReviewService
	logger  ectologger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(reviews review.ReviewService, logger ectologger.Logger) *ScanHandler {
	return &ScanHandler{
		reviews: reviews,
		logger:  logger,
	}
}

// ReopenRequest represents the reopen request body
type ReopenRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// Register registers scan routes on the admin group
func (h *ScanHandler) Register(g *echo.Group) {
	g.GET("", h.All)
	g.POST("/scan", h.Trigger)
	g.GET("/scan/logs", h.Logs)
	g.POST("/:id/reopen", h.Reopen)
}

// All returns every review across the organization
func (h *ScanHandler) All(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ScanHandler.All")
	defer span.End()

	callerID, err := GetCallerID(c)
	if err != nil {
		return err
	}

	items, err := h.reviews.ListAll(ctx, callerID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, items)
}

// Trigger runs a scan immediately and returns the run summary
func (h *ScanHandler) Trigger(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ScanHandler.Trigger")
	defer span.End()

	summary, err := h.reviews.RunScan(ctx)
	if err != nil {
		return err
	}

	return SuccessResponse(c, summary)
}

// Logs returns recent scan run summaries
func (h *ScanHandler) Logs(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ScanHandler.Logs")
	defer span.End()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return BadRequest("limit must be a positive integer")
		}
		limit = parsed
	}

	logs, err := h.reviews.ScanLogs(ctx, limit)
	if err != nil {
		return err
	}

	return SuccessResponse(c, logs)
}

// Reopen restores an expired review with a new due date
func (h *ScanHandler) Reopen(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ScanHandler.Reopen")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[ReopenRequest](c)
	if err != nil {
		return err
	}

	rev, err := h.reviews.Reopen(ctx, id, req.DueDate)
	if err != nil {
		return err
	}

	return SuccessResponse(c, rev)
}
