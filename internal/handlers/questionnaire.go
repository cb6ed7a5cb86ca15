package handlers

import (
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/laurel/internal/services/questionnaire"
	"github.com/Ramsey-B/laurel/pkg/models"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/utils"
)

// QuestionnaireHandler handles questionnaire admin endpoints
type QuestionnaireHandler struct {
	questionnaires questionnaire.QuestionnaireService
	logger         ectologger.Logger
}

// NewQuestionnaireHandler creates a new questionnaire handler
func NewQuestionnaireHandler(svc questionnaire.QuestionnaireService, logger ectologger.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		questionnaires: svc,
		logger:         logger,
	}
}

// ReplaceQuestionnaireRequest represents the replace request body
type ReplaceQuestionnaireRequest struct {
	Questions []models.QuestionTemplate `json:"questions" validate:"required,min=1"`
}

// Register registers questionnaire routes
func (h *QuestionnaireHandler) Register(g *echo.Group) {
	g.GET("/:type", h.Get)
	g.PUT("/:type", h.Replace)
}

func parseReviewType(c echo.Context) (int, error) {
	typeID, err := strconv.Atoi(c.Param("type"))
	if err != nil || typeID <= 0 {
		return 0, BadRequest("invalid review type")
	}
	return typeID, nil
}

// Get returns the active questionnaire for a review type
func (h *QuestionnaireHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuestionnaireHandler.Get")
	defer span.End()

	typeID, err := parseReviewType(c)
	if err != nil {
		return err
	}

	questions, err := h.questionnaires.GetActive(ctx, typeID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, questions)
}

// Replace swaps a review type's questionnaire for the submitted one
func (h *QuestionnaireHandler) Replace(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuestionnaireHandler.Replace")
	defer span.End()

	typeID, err := parseReviewType(c)
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[ReplaceQuestionnaireRequest](c)
	if err != nil {
		return err
	}

	if err = h.questionnaires.Replace(ctx, typeID, req.Questions); err != nil {
		return err
	}

	return NoContentResponse(c)
}
