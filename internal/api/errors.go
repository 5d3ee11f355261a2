package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/logging"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// statusOf maps the ledger error taxonomy onto HTTP status codes.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return fiber.StatusUnprocessableEntity, "invalid_request"
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return fiber.StatusConflict, "insufficient_funds"
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.StatusConflict, "conflict"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	status, title := statusOf(err)

	body := ErrorResponse{Status: status, Title: title}
	if status == fiber.StatusInternalServerError {
		logging.FromContext(c.UserContext(), h.logger).Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	} else if !h.production {
		body.Detail = err.Error()
	}

	return c.Status(status).JSON(body)
}

func (h *Handler) unprocessable(c *fiber.Ctx, detail string) error {
	body := ErrorResponse{Status: fiber.StatusUnprocessableEntity, Title: "invalid_request"}
	if !h.production {
		body.Detail = detail
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
}

// fiberErrorHandler renders errors that escape a handler, such as unknown
// routes or a recovered panic, with the same body shape.
func fiberErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	title := "internal_error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		title = fe.Message
	}

	return c.Status(status).JSON(ErrorResponse{Status: status, Title: title})
}
