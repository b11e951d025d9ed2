package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"request-proxy-go/internal/model"
)

// secretParamPattern matches credential-looking query parameters in URLs embedded in error messages.
var secretParamPattern = regexp.MustCompile(`(?i)((?:api[_-]?key|access[_-]?token|token|secret|password|signature|sig)=)[^&\s"]+`)

// writeEnvelope sends env with the given transport status.
func writeEnvelope(c echo.Context, code int, env model.Envelope) error {
	b, err := env.Marshal()
	if err != nil {
		return err
	}
	return c.Blob(code, model.ContentTypeJSON, b)
}

// ErrorHandler renders errors that escape handlers and middleware (body limit,
// rate limiting, recovered panics) as envelopes. It replaces echo's default
// error handler so every response keeps the envelope shape.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		env := model.Failure(http.StatusInternalServerError, reasonFailedPrefix+err.Error())

		var he *echo.HTTPError
		if errors.As(err, &he) {
			env = model.Failure(he.Code, fmt.Sprint(he.Message))
			if he.Code == http.StatusMethodNotAllowed {
				env.Reason = reasonMethodNotAllowed
			}
		} else {
			logger.Error("unhandled error",
				"err", sanitizeError(err),
				"path", c.Request().URL.Path,
			)
		}

		if err := writeEnvelope(c, env.Status, env); err != nil {
			logger.Error("writing error envelope", "err", err)
		}
	}
}

// sanitizeError redacts credentials from error messages before they are logged.
func sanitizeError(err error) string {
	return secretParamPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
