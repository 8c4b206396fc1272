package middleware

import (
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"doccustody/internal/logging"
)

// Logger logs one JSON line per request through logger with request_id, method, path, status and
// latency in milliseconds. 5xx responses log at ERROR, 4xx at WARN.
func Logger(logger *slog.Logger) fiber.Handler {
	logger = logger.With("component", "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		attrs := []slog.Attr{
			slog.String("request_id", rid),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Float64("latency", float64(time.Since(start).Microseconds())/1000),
		}
		if id, ok := IdentityFrom(c); ok {
			attrs = append(attrs, slog.String("subject", id.Subject))
		}
		logger.LogAttrs(c.UserContext(), level, "request", attrs...)

		return err
	}
}

// LoggerWithWriter is Logger over a fresh JSON handler writing to w, with timestamps rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(slog.New(logging.NewHandler(w, slog.LevelInfo, loc)))
}
