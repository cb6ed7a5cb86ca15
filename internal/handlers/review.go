package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/services/answers"
	"github.com/Ramsey-B/laurel/internal/services/review"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/utils"
)

// ReviewHandler handles review API endpoints
type ReviewHandler struct {
	reviews review.ReviewService
	answers answers.AnswerService
	logger  ectologger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews review.ReviewService, answerSvc answers.AnswerService, logger ectologger.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		answers: answerSvc,
		logger:  logger,
	}
}

// SubmitAnswersRequest represents the answer submission request body
type SubmitAnswersRequest struct {
	Role    models.RespondentRole     `json:"role" validate:"required,oneof=employee manager"`
	Answers []models.AnswerSubmission `json:"answers" validate:"required,min=1,dive"`
}

// Register registers review routes
func (h *ReviewHandler) Register(g *echo.Group) {
	g.GET("/mine", h.Mine)
	g.GET("/:id", h.Get)
	g.GET("/:id/questions", h.Questions)
	g.POST("/:id/answers", h.SubmitAnswers)
	g.GET("/:id/answers", h.GetAnswers)
}

// Mine returns the caller's own reviews plus the reviews they manage
func (h *ReviewHandler) Mine(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReviewHandler.Mine")
	defer span.End()

	callerID, err := GetCallerID(c)
	if err != nil {
		return err
	}

	items, err := h.reviews.ListForUser(ctx, callerID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, items)
}

// Get returns one review, access-checked
func (h *ReviewHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReviewHandler.Get")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	callerID, err := GetCallerID(c)
	if err != nil {
		return err
	}

	rev, err := h.reviews.GetByID(ctx, id, callerID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, rev)
}

// Questions returns the review's snapshot questions with options
func (h *ReviewHandler) Questions(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReviewHandler.Questions")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	callerID, err := GetCallerID(c)
	if err != nil {
		return err
	}

	questions, err := h.answers.Questions(ctx, id, callerID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, questions)
}

// SubmitAnswers accepts a role's full answer set for a review
func (h *ReviewHandler) SubmitAnswers(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReviewHandler.SubmitAnswers")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	callerID, err := GetCallerID(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[SubmitAnswersRequest](c)
	if err != nil {
		return err
	}

	if err = h.answers.Submit(ctx, id, callerID, req.Role, req.Answers); err != nil {
		return err
	}

	return NoContentResponse(c)
}

// GetAnswers returns both parties' answers plus the question list
func (h *ReviewHandler) GetAnswers(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ReviewHandler.GetAnswers")
	defer span.End()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	callerID, err := GetCallerID(c)
	if err != nil {
		return err
	}

	set, err := h.answers.GetForReview(ctx, id, callerID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, set)
}
