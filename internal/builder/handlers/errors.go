package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/assets"
	"page-builder/internal/builder/controller"
	"page-builder/internal/builder/render"
	"page-builder/internal/builder/repository"
	"page-builder/internal/builder/service"
	"page-builder/internal/builder/tree"
)

var (
	errEmptyBody   = errors.New("empty body")
	errInvalidJSON = errors.New("invalid json")
	errMissingFile = errors.New("file required")
)

// ============================================================
// Error Mapping
// ============================================================

func statusFor(err error) int {
	switch {
	case errors.Is(err, errEmptyBody),
		errors.Is(err, errInvalidJSON),
		errors.Is(err, errMissingFile),
		errors.Is(err, tree.ErrUnknownType),
		errors.Is(err, tree.ErrColumnCount),
		errors.Is(err, controller.ErrUnknownTab),
		errors.Is(err, controller.ErrUnknownKey),
		errors.Is(err, render.ErrUnknownMode),
		errors.Is(err, assets.ErrInvalidName):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, assets.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, tree.ErrNestedGrid),
		errors.Is(err, tree.ErrOrderMismatch),
		errors.Is(err, tree.ErrTargetNotFound),
		errors.Is(err, tree.ErrNotGrid):
		return http.StatusConflict

	case errors.Is(err, assets.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assets.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType

	case errors.Is(err, controller.ErrSaveFailed),
		errors.Is(err, controller.ErrLoadFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError пишет {"error": ...}. Внутренние ошибки наружу не отдаются.
func respondError(c fiber.Ctx, log zerolog.Logger, err error) error {
	status := statusFor(err)
	msg := err.Error()

	switch {
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway:
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = "internal error"
	case status == http.StatusConflict:
		log.Warn().Err(err).Str("path", c.Path()).Msg("structural mutation rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// decode разбирает тело запроса в dst.
func decode(c fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// decodeOptional допускает пустое тело.
func decodeOptional(c fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return decode(c, dst)
}
