package errors

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// MapToHTTPError translates domain sentinels into fiber errors so handlers
// never leak storage details to the client.
func MapToHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrMediaNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrUserAlreadyExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrInvalidImage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
