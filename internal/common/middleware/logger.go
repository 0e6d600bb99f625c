package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger возвращает настроенный middleware для логирования запросов
func Logger() fiber.Handler {
	return logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path} | session=${locals:session}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	})
}

// Recover превращает панику обработчика в 500 вместо падения процесса.
func Recover() fiber.Handler {
	return recover.New()
}
