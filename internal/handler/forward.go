package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"request-proxy-go/internal/model"
	"request-proxy-go/internal/service"
)

// Reasons reported in envelopes.
const (
	reasonMethodNotAllowed = "Only POST requests are accepted"
	reasonMissingParams    = "Missing required parameters: method or url"
	reasonInvalidURL       = "Invalid URL format"
	reasonInvalidHeaders   = "Invalid headers format. Please ensure it is a valid JSON string"
	reasonTimeout          = "Request timeout"
	reasonFailedPrefix     = "Request processing failed: "
)

var errNullPayload = errors.New("payload must be a JSON object, got null")

// ForwardHandler performs the outbound call described by a POSTed payload.
type ForwardHandler struct {
	service *service.ForwardService
	logger  *slog.Logger
}

// NewForwardHandler creates a ForwardHandler.
func NewForwardHandler(svc *service.ForwardService, logger *slog.Logger) *ForwardHandler {
	return &ForwardHandler{
		service: svc,
		logger:  logger.With("component", "forward_handler"),
	}
}

// Handle validates the inbound request, performs the outbound call and
// replies with an envelope. A completed round trip is always HTTP 200; the
// upstream status travels in the envelope.
func (h *ForwardHandler) Handle(c echo.Context) error {
	req := c.Request()
	if req.Method != http.MethodPost {
		return writeEnvelope(c, http.StatusMethodNotAllowed, model.Failure(http.StatusMethodNotAllowed, reasonMethodNotAllowed))
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		// Body limit violations are rendered by the error handler.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return h.fail(c, err)
	}

	payload, err := decodePayload(data)
	if err != nil {
		return h.fail(c, err)
	}

	out, err := h.service.Build(payload)
	if err != nil {
		return h.mapValidationError(c, err)
	}

	outcome := h.service.Forward(req.Context(), out)

	switch outcome.Kind {
	case model.OutcomeSuccess:
		return writeEnvelope(c, http.StatusOK, model.Envelope{
			Status: outcome.StatusCode,
			Data:   outcome.Body,
		})
	case model.OutcomeTimeout:
		h.logger.Debug("outbound request timed out",
			"host", out.URL.Host,
			"timeout_ms", out.Timeout.Milliseconds(),
		)
		return writeEnvelope(c, http.StatusRequestTimeout, model.Failure(http.StatusRequestTimeout, reasonTimeout))
	default:
		return h.fail(c, outcome.Err)
	}
}

// decodePayload parses the request body. A JSON null has no fields to read
// and is an error; any other non-object value decodes as an empty payload so
// that it fails parameter validation.
func decodePayload(data []byte) (*model.ForwardPayload, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	var payload model.ForwardPayload
	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
	case 'n':
		return nil, errNullPayload
	}
	return &payload, nil
}

func (h *ForwardHandler) mapValidationError(c echo.Context, err error) error {
	h.logger.Debug("rejected payload", "err", sanitizeError(err))

	switch {
	case errors.Is(err, service.ErrMissingParams):
		return writeEnvelope(c, http.StatusBadRequest, model.Failure(http.StatusBadRequest, reasonMissingParams))
	case errors.Is(err, service.ErrInvalidURL):
		return writeEnvelope(c, http.StatusBadRequest, model.Failure(http.StatusBadRequest, reasonInvalidURL))
	case errors.Is(err, service.ErrInvalidHeaders):
		return writeEnvelope(c, http.StatusBadRequest, model.Failure(http.StatusBadRequest, reasonInvalidHeaders))
	}
	return h.fail(c, err)
}

// fail reports an unclassified failure as a 500 envelope carrying the error text.
func (h *ForwardHandler) fail(c echo.Context, err error) error {
	h.logger.Warn("request processing failed",
		"err", sanitizeError(err),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
	)
	return writeEnvelope(c, http.StatusInternalServerError, model.Failure(http.StatusInternalServerError, reasonFailedPrefix+err.Error()))
}
