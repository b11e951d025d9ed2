// Package service validates forward payloads and dispatches outbound calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"request-proxy-go/internal/client"
	"request-proxy-go/internal/config"
	"request-proxy-go/internal/model"
)

// Validation errors returned by Build. Each is reported to the caller as a 400.
var (
	ErrMissingParams  = errors.New("missing required parameters: method or url")
	ErrInvalidURL     = errors.New("invalid url format")
	ErrInvalidHeaders = errors.New("invalid headers format")
)

// Doer performs one outbound call.
type Doer interface {
	Do(ctx context.Context, out *model.OutboundRequest) model.Outcome
}

// ForwardService turns forward payloads into outbound calls.
type ForwardService struct {
	client         Doer
	defaultTimeout time.Duration
	logger         *slog.Logger
}

// NewForwardService creates a ForwardService backed by the outbound client.
func NewForwardService(c *client.OutboundClient, cfg *config.Config, logger *slog.Logger) *ForwardService {
	return newForwardService(c, cfg, logger)
}

func newForwardService(d Doer, cfg *config.Config, logger *slog.Logger) *ForwardService {
	return &ForwardService{
		client:         d,
		defaultTimeout: time.Duration(cfg.Forward.DefaultTimeoutMs) * time.Millisecond,
		logger:         logger.With("component", "forward_service"),
	}
}

// Build validates p and normalizes it into an OutboundRequest.
// Checks run in order: required fields, URL, headers. The first failure wins.
func (s *ForwardService) Build(p *model.ForwardPayload) (*model.OutboundRequest, error) {
	if p.Method == "" || p.URL == "" {
		return nil, ErrMissingParams
	}

	target, err := parseTargetURL(p.URL)
	if err != nil {
		return nil, err
	}

	header, err := parseHeaders(p.Headers)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(p.Method)

	out := &model.OutboundRequest{
		Method:  method,
		URL:     target,
		Header:  header,
		Timeout: ParseTimeout(p.Timeout, s.defaultTimeout),
	}
	// A body supplied with GET is dropped; HEAD with a body is refused by the client.
	if method != http.MethodGet {
		out.Body = p.Body
	}

	return out, nil
}

// Forward performs the outbound call described by out.
func (s *ForwardService) Forward(ctx context.Context, out *model.OutboundRequest) model.Outcome {
	s.logger.Debug("forwarding request",
		"method", out.Method,
		"host", out.URL.Host,
		"has_body", out.HasBody(),
	)
	return s.client.Do(ctx, out)
}

// parseTargetURL accepts only absolute URLs. http and https URLs must name a host.
func parseTargetURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return u, nil
}
