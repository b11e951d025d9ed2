package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"request-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	DefaultTimeoutMs int    `json:"default_timeout_ms"`
	MaxRedirects     int    `json:"max_redirects"`
}

// Status reports the build version and the effective forwarding settings.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:           "ok",
		Version:          string(h.version),
		DefaultTimeoutMs: h.cfg.Forward.DefaultTimeoutMs,
		MaxRedirects:     h.cfg.Forward.MaxRedirects,
	})
}
