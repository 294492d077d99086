package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/escola-digital/escola-api/internal/service"
	"github.com/escola-digital/escola-api/internal/utils"
)

// BoletimHandler serves report cards.
type BoletimHandler struct {
	service service.BoletimService
	logger  zerolog.Logger
}

// NewBoletimHandler builds a boletim handler instance.
func NewBoletimHandler(service service.BoletimService, logger zerolog.Logger) *BoletimHandler {
	return &BoletimHandler{
		service: service,
		logger:  logger.With().Str("component", "boletim_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *BoletimHandler) Register(router fiber.Router) {
	router.Get("/:studentID/:trimester", h.get)
}

func (h *BoletimHandler) get(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	trimester, err := strconv.Atoi(c.Params("trimester"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid trimester")
	}

	boletim, err := h.service.Boletim(c.Context(), studentID, trimester)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "boletim computed", boletim)
}

func (h *BoletimHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidTrimester):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
