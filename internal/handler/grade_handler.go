package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/service"
	"github.com/escola-digital/escola-api/internal/utils"
)

// GradeHandler manages grade endpoints.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.launch)
	router.Post("/batch", h.launchBatch)
	router.Patch("/:id", h.revise)
}

func (h *GradeHandler) launch(c *fiber.Ctx) error {
	var payload dto.GradeCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.service.Launch(c.Context(), payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade launched", grade)
}

func (h *GradeHandler) launchBatch(c *fiber.Ctx) error {
	var entries []dto.GradeCreateRequest
	if err := c.BodyParser(&entries); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grades, err := h.service.LaunchBatch(c.Context(), entries, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "grade batch launched", grades)
}

func (h *GradeHandler) revise(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid grade id")
	}

	var payload dto.GradeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.service.Revise(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade revised", grade)
}

func (h *GradeHandler) list(c *fiber.Ctx) error {
	filter := dto.GradeFilter{}

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
	}
	filter.StudentID = studentID

	subjectID, err := parseQueryUint(c, "subject_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subject_id")
	}
	filter.SubjectID = subjectID

	trimester, err := parseQueryInt(c, "trimester")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trimester")
	}
	filter.Trimester = trimester

	grades, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grades retrieved", grades)
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var duplicateErr *service.DuplicateGradeError
	var batchErr *service.BatchError
	switch {
	// Batch failures carry the failing index; report them before the
	// wrapped cause so the caller learns which row was rejected.
	case errors.As(err, &batchErr):
		return utils.SendError(c, fiber.StatusBadRequest, batchErr.Error())
	case errors.As(err, &duplicateErr):
		return utils.SendError(c, fiber.StatusConflict, duplicateErr.Error())
	case errors.Is(err, service.ErrEmptyBatch):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrGradeNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "grade not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrSubjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "subject not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
