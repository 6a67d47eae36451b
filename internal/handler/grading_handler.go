package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-exam-grader/internal/dto"
	"github.com/noah-isme/gema-exam-grader/internal/repository"
	"github.com/noah-isme/gema-exam-grader/internal/service"
	"github.com/noah-isme/gema-exam-grader/internal/utils"
)

// GradingHandler exposes the grading pipeline over HTTP.
type GradingHandler struct {
	service service.GradingService
	reports repository.GradingReportRepository
	logger  zerolog.Logger
}

// NewGradingHandler constructs the grading handler. reports may be nil when no database is configured.
func NewGradingHandler(svc service.GradingService, reports repository.GradingReportRepository, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: svc,
		reports: reports,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register wires the grading submission route.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/grade", h.grade)
}

// RegisterReports wires the archived report index routes.
func (h *GradingHandler) RegisterReports(router fiber.Router) {
	router.Get("/reports/:studentId", h.listReports)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	var form dto.GradeRequest
	if err := c.BodyParser(&form); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart payload")
	}

	input := service.IngestInput{
		StudentID: form.StudentID,
		Rubric:    form.Rubric,
		Criteria:  form.Criteria,
	}
	if file, err := c.FormFile("file"); err == nil {
		input.File = file
	}

	outcome, err := h.service.Grade(c.UserContext(), input)
	if err != nil {
		status := service.StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Error().Err(err).Msg("grading failed")
		}
		return utils.SendError(c, status, service.PublicMessage(err))
	}

	return utils.SendJSON(c, fiber.StatusOK, service.AssembleResponse(outcome))
}

func (h *GradingHandler) listReports(c *fiber.Ctx) error {
	if h.reports == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "report index not configured")
	}

	studentID := strings.TrimSpace(c.Params("studentId"))
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "No studentId provided")
	}

	limit := 20
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	records, err := h.reports.ListByStudent(c.UserContext(), studentID, limit)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("student_id", studentID).Msg("failed to list grading reports")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list reports")
	}

	items := make([]dto.GradingReportResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewGradingReportResponse(record))
	}

	return utils.SendSuccess(c, "reports retrieved", items)
}
