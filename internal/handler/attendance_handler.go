package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/escola-digital/escola-api/internal/dto"
	"github.com/escola-digital/escola-api/internal/models"
	"github.com/escola-digital/escola-api/internal/service"
	"github.com/escola-digital/escola-api/internal/utils"
)

// AttendanceHandler manages attendance endpoints.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler builds an attendance handler instance.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AttendanceHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.record)
	router.Post("/batch", h.submitBatch)
	router.Get("/report", h.report)
}

func (h *AttendanceHandler) submitBatch(c *fiber.Ctx) error {
	var entries []dto.AttendanceEntryRequest
	if err := c.BodyParser(&entries); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	persisted, err := h.service.SubmitBatch(c.Context(), entries, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance batch recorded", persisted)
}

func (h *AttendanceHandler) record(c *fiber.Ctx) error {
	var entry dto.AttendanceEntryRequest
	if err := c.BodyParser(&entry); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	persisted, err := h.service.Record(c.Context(), entry, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", persisted)
}

func (h *AttendanceHandler) list(c *fiber.Ctx) error {
	filter := dto.AttendanceListFilter{}

	classID, err := parseQueryUint(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class_id")
	}
	filter.ClassID = classID

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student_id")
	}
	filter.StudentID = studentID

	if date := c.Query("date"); date != "" {
		filter.Date = &date
	}
	if from := c.Query("from"); from != "" {
		filter.From = &from
	}
	if to := c.Query("to"); to != "" {
		filter.To = &to
	}

	entries, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance retrieved", entries)
}

func (h *AttendanceHandler) report(c *fiber.Ctx) error {
	classID, err := parseQueryUint(c, "class_id")
	if err != nil || classID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "class_id is required")
	}

	start, err := parseDateQuery(c, "start_date")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "start_date is required in YYYY-MM-DD format")
	}

	end, err := parseDateQuery(c, "end_date")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "end_date is required in YYYY-MM-DD format")
	}

	report, err := h.service.Report(c.Context(), *classID, start, end)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attendance report computed", report)
}

func (h *AttendanceHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var batchErr *service.BatchError
	switch {
	case errors.Is(err, service.ErrEmptyBatch):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &batchErr):
		return utils.SendError(c, fiber.StatusBadRequest, batchErr.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseDateQuery(c *fiber.Ctx, key string) (time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return time.Time{}, errors.New("missing " + key)
	}
	parsed, err := time.ParseInLocation(dto.DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return models.DateOnly(parsed), nil
}
