package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxTimeoutMs is the largest millisecond count representable as a time.Duration.
const maxTimeoutMs = math.MaxInt64 / int64(time.Millisecond)

// parseHeaders decodes the JSON-encoded header object. An empty string yields
// an empty header set. String values are used verbatim; numbers and booleans
// are stringified; nested values are rejected.
func parseHeaders(raw string) (http.Header, error) {
	header := make(http.Header)
	if raw == "" {
		return header, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeaders, err)
	}

	for name, v := range fields {
		switch v := v.(type) {
		case string:
			header.Set(name, v)
		case float64:
			header.Set(name, formatNumber(v))
		case bool:
			header.Set(name, strconv.FormatBool(v))
		case nil:
			header.Set(name, "null")
		default:
			return nil, fmt.Errorf("%w: header %q has a non-scalar value", ErrInvalidHeaders, name)
		}
	}

	return header, nil
}

// formatNumber renders v the way a JSON number reads back as text: plain
// digits between 1e-6 and 1e21, exponent notation outside that range
// ("1e+21", "1.5e-7").
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		i := strings.IndexByte(s, 'e') + 2 // past the exponent sign
		exp := strings.TrimLeft(s[i:], "0")
		return s[:i] + exp
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseTimeout interprets the raw timeout field as whole milliseconds.
// Numbers are truncated; strings are read up to the first non-digit, so
// "250ms" is 250. Anything absent, non-numeric, non-positive or too large
// yields def.
func ParseTimeout(raw json.RawMessage, def time.Duration) time.Duration {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return def
	}

	var ms int64
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return def
		}
		n, ok := parseIntPrefix(s)
		if !ok {
			return def
		}
		ms = n
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || f >= float64(maxTimeoutMs) {
			return def
		}
		ms = int64(f)
	default:
		return def
	}

	if ms <= 0 || ms > maxTimeoutMs {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// parseIntPrefix reads a leading integer from s: optional surrounding
// whitespace, an optional sign, then decimal digits or 0x-prefixed hex digits.
// Trailing characters are ignored. ok is false when no digits are found or the
// value overflows.
func parseIntPrefix(s string) (n int64, ok bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	end := 0
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	v, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16 && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'):
		return true
	}
	return false
}
