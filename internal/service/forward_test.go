package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"testing"
	"time"

	"request-proxy-go/internal/config"
	"request-proxy-go/internal/model"
)

// stubDoer records the outbound request and returns a canned outcome.
type stubDoer struct {
	got     *model.OutboundRequest
	outcome model.Outcome
}

func (d *stubDoer) Do(_ context.Context, out *model.OutboundRequest) model.Outcome {
	d.got = out
	return d.outcome
}

func newTestService(d Doer) *ForwardService {
	cfg := &config.Config{Forward: config.ForwardConfig{DefaultTimeoutMs: 30000}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newForwardService(d, cfg, logger)
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload model.ForwardPayload
		want    error
	}{
		{"empty payload", model.ForwardPayload{}, ErrMissingParams},
		{"missing url", model.ForwardPayload{Method: "GET"}, ErrMissingParams},
		{"missing method", model.ForwardPayload{URL: "https://example.com"}, ErrMissingParams},
		{"relative url", model.ForwardPayload{Method: "GET", URL: "not a url"}, ErrInvalidURL},
		{"path only", model.ForwardPayload{Method: "GET", URL: "/api/v1"}, ErrInvalidURL},
		{"http without host", model.ForwardPayload{Method: "GET", URL: "http://"}, ErrInvalidURL},
		{"bad escape", model.ForwardPayload{Method: "GET", URL: "https://example.com/%zz"}, ErrInvalidURL},
		{"headers not json", model.ForwardPayload{Method: "GET", URL: "https://example.com", Headers: "not json"}, ErrInvalidHeaders},
		{"headers array", model.ForwardPayload{Method: "GET", URL: "https://example.com", Headers: `["a"]`}, ErrInvalidHeaders},
		{"headers nested", model.ForwardPayload{Method: "GET", URL: "https://example.com", Headers: `{"X-A":{"b":1}}`}, ErrInvalidHeaders},
		{"url checked before headers", model.ForwardPayload{Method: "GET", URL: "nope", Headers: "not json"}, ErrInvalidURL},
	}

	s := newTestService(&stubDoer{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Build(&tt.payload)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuild_Normalizes(t *testing.T) {
	s := newTestService(&stubDoer{})

	out, err := s.Build(&model.ForwardPayload{
		Method:  "post",
		URL:     "  https://example.com/submit?q=1  ",
		Body:    "payload",
		Headers: `{"x-token":"abc","X-Retry":3,"X-Flag":true,"X-Empty":null}`,
		Timeout: json.RawMessage(`"1500"`),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if out.Method != http.MethodPost {
		t.Errorf("Method = %q, want %q", out.Method, http.MethodPost)
	}
	if out.URL.String() != "https://example.com/submit?q=1" {
		t.Errorf("URL = %q", out.URL.String())
	}
	if out.Body != "payload" {
		t.Errorf("Body = %q, want %q", out.Body, "payload")
	}
	if out.Timeout != 1500*time.Millisecond {
		t.Errorf("Timeout = %v, want %v", out.Timeout, 1500*time.Millisecond)
	}

	wantHeaders := map[string]string{
		"X-Token": "abc",
		"X-Retry": "3",
		"X-Flag":  "true",
		"X-Empty": "null",
	}
	for k, v := range wantHeaders {
		if got := out.Header.Get(k); got != v {
			t.Errorf("Header[%s] = %q, want %q", k, got, v)
		}
	}
	if len(out.Header) != len(wantHeaders) {
		t.Errorf("Header has %d entries, want %d", len(out.Header), len(wantHeaders))
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{3, "3"},
		{1.5, "1.5"},
		{-42.25, "-42.25"},
		{100000000, "100000000"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e21, "1.5e+21"},
		{-2e22, "-2e+22"},
		{1e100, "1e+100"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.25e-10, "1.25e-10"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuild_LargeNumberHeader(t *testing.T) {
	s := newTestService(&stubDoer{})

	out, err := s.Build(&model.ForwardPayload{
		Method:  "GET",
		URL:     "https://example.com",
		Headers: `{"X-Big":1e21,"X-Small":1e-7,"X-Plain":123456789}`,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for k, v := range map[string]string{"X-Big": "1e+21", "X-Small": "1e-7", "X-Plain": "123456789"} {
		if got := out.Header.Get(k); got != v {
			t.Errorf("Header[%s] = %q, want %q", k, got, v)
		}
	}
}

func TestBuild_GETDropsBody(t *testing.T) {
	s := newTestService(&stubDoer{})

	for _, method := range []string{"GET", "get", "Get"} {
		out, err := s.Build(&model.ForwardPayload{Method: method, URL: "https://example.com/ok", Body: "ignored"})
		if err != nil {
			t.Fatalf("Build(%s) error = %v", method, err)
		}
		if out.HasBody() {
			t.Errorf("Build(%s) kept body %q, want it dropped", method, out.Body)
		}
	}

	out, err := s.Build(&model.ForwardPayload{Method: "DELETE", URL: "https://example.com/ok", Body: "kept"})
	if err != nil {
		t.Fatalf("Build(DELETE) error = %v", err)
	}
	if out.Body != "kept" {
		t.Errorf("Build(DELETE) Body = %q, want %q", out.Body, "kept")
	}
}

func TestBuild_AbsentHeadersAndTimeout(t *testing.T) {
	s := newTestService(&stubDoer{})

	out, err := s.Build(&model.ForwardPayload{Method: "GET", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(out.Header) != 0 {
		t.Errorf("Header = %v, want empty", out.Header)
	}
	if out.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", out.Timeout)
	}
}

func TestBuild_NonHTTPSchemeAccepted(t *testing.T) {
	s := newTestService(&stubDoer{})

	// Absolute URLs with other schemes pass validation; the outbound call rejects them.
	if _, err := s.Build(&model.ForwardPayload{Method: "GET", URL: "mailto:someone@example.com"}); err != nil {
		t.Errorf("Build() error = %v, want nil", err)
	}
}

func TestForward_DelegatesToClient(t *testing.T) {
	d := &stubDoer{outcome: model.Succeeded(http.StatusTeapot, "short and stout")}
	s := newTestService(d)

	out, err := s.Build(&model.ForwardPayload{Method: "GET", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := s.Forward(context.Background(), out)
	if d.got != out {
		t.Error("client did not receive the built request")
	}
	if got.Kind != model.OutcomeSuccess || got.StatusCode != http.StatusTeapot || got.Body != "short and stout" {
		t.Errorf("Forward() = %+v", got)
	}
}

func TestParseTimeout(t *testing.T) {
	const def = 30 * time.Second

	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"absent", ``, def},
		{"null", `null`, def},
		{"number", `100`, 100 * time.Millisecond},
		{"fractional number truncated", `1500.9`, 1500 * time.Millisecond},
		{"exponent number", `1e3`, time.Second},
		{"zero", `0`, def},
		{"negative", `-5`, def},
		{"string", `"2500"`, 2500 * time.Millisecond},
		{"string with suffix", `"250ms"`, 250 * time.Millisecond},
		{"string with whitespace", `"  42"`, 42 * time.Millisecond},
		{"string with plus", `"+7"`, 7 * time.Millisecond},
		{"string hex", `"0x10"`, 16 * time.Millisecond},
		{"string fractional", `"1.9"`, time.Millisecond},
		{"empty string", `""`, def},
		{"non numeric string", `"soon"`, def},
		{"negative string", `"-100"`, def},
		{"overflowing string", `"99999999999999999999999"`, def},
		{"overflowing number", `1e30`, def},
		{"boolean", `true`, def},
		{"object", `{"ms":5}`, def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimeout(json.RawMessage(tt.raw), def)
			if got != tt.want {
				t.Errorf("ParseTimeout(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
