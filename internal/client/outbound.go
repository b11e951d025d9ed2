// Package client performs the outbound HTTP call on behalf of an inbound request.
package client

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"request-proxy-go/internal/config"
	"request-proxy-go/internal/metrics"
	"request-proxy-go/internal/model"
)

// errTimeout is the cancellation cause set by the per-call timer. An outbound
// failure is a timeout only if its context was cancelled with this cause.
var errTimeout = errors.New("outbound request timed out")

var errHeadWithBody = errors.New("request with HEAD method cannot have body")

// OutboundClient sends one outbound request per Do call.
type OutboundClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewOutboundClient creates an OutboundClient. Keep-alives are disabled so no
// connection outlives the call that opened it; redirects are followed up to
// forward.max_redirects.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewOutboundClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *OutboundClient {
	transport := &http.Transport{
		DisableKeepAlives: true,
		DialContext: (&net.Dialer{
			Timeout: time.Duration(cfg.Forward.DialTimeoutSeconds) * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	maxRedirects := cfg.Forward.MaxRedirects

	return &OutboundClient{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		logger:  logger.With("component", "outbound_client"),
		metrics: m,
	}
}

// Do executes the outbound request and reports how it settled.
//
// Only the request's own timer cancels the call: cancellation of ctx (for
// example an inbound client disconnect) is not propagated. The timer is
// stopped once response headers arrive or the call fails; the body is then
// read without a deadline unless the timer had already fired.
func (c *OutboundClient) Do(ctx context.Context, out *model.OutboundRequest) model.Outcome {
	ctx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	defer cancel(nil)

	timer := time.AfterFunc(out.Timeout, func() { cancel(errTimeout) })
	defer timer.Stop()

	req, err := newRequest(ctx, out)
	if err != nil {
		return model.Failed(err)
	}

	c.logger.Debug("outbound request",
		"method", out.Method,
		"host", out.URL.Host,
		"timeout_ms", out.Timeout.Milliseconds(),
	)

	start := time.Now()
	outcome := c.roundTrip(ctx, req, timer)
	c.record(out.Method, outcome, time.Since(start).Seconds())

	return outcome
}

func (c *OutboundClient) roundTrip(ctx context.Context, req *http.Request, timer *time.Timer) model.Outcome {
	resp, err := c.httpClient.Do(req)
	timer.Stop()
	if err != nil {
		return classify(ctx, fmt.Errorf("upstream request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	r, err := decodedBody(resp)
	if err != nil {
		return classify(ctx, fmt.Errorf("decode upstream body: %w", err))
	}
	defer func() { _ = r.Close() }()

	body, err := io.ReadAll(r)
	if err != nil {
		return classify(ctx, fmt.Errorf("read upstream body: %w", err))
	}

	return model.Succeeded(resp.StatusCode, string(body))
}

// decodedBody returns the response body with its content coding removed.
// The transport only decompresses when it added Accept-Encoding itself; a
// caller-supplied Accept-Encoding leaves gzip or deflate bytes in place.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	if resp.Uncompressed {
		return io.NopCloser(resp.Body), nil
	}
	var (
		r   io.ReadCloser
		err error
	)
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(resp.Body)
	case "deflate":
		r, err = zlib.NewReader(resp.Body)
	default:
		return io.NopCloser(resp.Body), nil
	}
	// An empty body (HEAD, 204, 304) carries no stream header to decode.
	if errors.Is(err, io.EOF) {
		return io.NopCloser(http.NoBody), nil
	}
	return r, err
}

// classify separates timer-triggered aborts from every other failure.
func classify(ctx context.Context, err error) model.Outcome {
	if errors.Is(context.Cause(ctx), errTimeout) {
		return model.TimedOut(err)
	}
	return model.Failed(err)
}

// newRequest builds the *http.Request for out. No default headers are added:
// Go's User-Agent is suppressed unless the caller supplied one.
func newRequest(ctx context.Context, out *model.OutboundRequest) (*http.Request, error) {
	var body io.Reader
	if out.HasBody() {
		if out.Method == http.MethodHead {
			return nil, errHeadWithBody
		}
		body = strings.NewReader(out.Body)
	}

	req, err := http.NewRequestWithContext(ctx, out.Method, out.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header = out.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header["User-Agent"] = []string{""}
	}

	return req, nil
}

func (c *OutboundClient) record(method string, outcome model.Outcome, seconds float64) {
	if c.metrics == nil {
		return
	}
	m := metrics.NormalizeMethod(method)
	kind := outcome.Kind.String()

	c.metrics.UpstreamDuration.WithLabelValues(m, kind).Observe(seconds)
	c.metrics.UpstreamOutcomes.WithLabelValues(kind).Inc()
	if outcome.Kind == model.OutcomeSuccess {
		c.metrics.UpstreamResponses.WithLabelValues(m, strconv.Itoa(outcome.StatusCode)).Inc()
	}
}
