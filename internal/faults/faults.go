package faults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Kind is the fixed failure taxonomy the pipeline classifies errors into.
type Kind string

const (
	KindTimeout        Kind = "timeout"
	KindRateLimit      Kind = "rate_limit"
	KindAuthentication Kind = "authentication"
	KindNetwork        Kind = "network"
	KindDataFormat     Kind = "data_format"
	KindUnknown        Kind = "unknown"
)

// HTTPError carries the status and headers of a failed HTTP exchange so the
// classifier can inspect them.
type HTTPError struct {
	StatusCode int
	Status     string
	Header     http.Header
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// NewHTTPError snapshots the response fields relevant for classification.
func NewHTTPError(resp *http.Response) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header.Clone(),
	}
}

// Classify maps a raised failure into the taxonomy.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests:
			return KindRateLimit
		case http.StatusUnauthorized:
			return KindAuthentication
		}
		return KindUnknown
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.As(err, &numErr) {
		return KindDataFormat
	}

	return KindUnknown
}

// IsRetryable reports whether a retry is sensible for the failure. Network
// and rate-limit failures are retryable; authentication and data-format
// failures are not. Remaining kinds stay at caller discretion and report
// false here.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindNetwork, KindRateLimit:
		return true
	default:
		return false
	}
}

// RateLimitInfo carries the throttling hints of a 429 response.
type RateLimitInfo struct {
	RetryAfter time.Duration
	Limit      int
	Remaining  int
	Reset      time.Time
}

// ExtractRateLimitInfo returns throttling hints when the error is a
// rate-limit-classified HTTP failure carrying the relevant headers.
func ExtractRateLimitInfo(err error) (RateLimitInfo, bool) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusTooManyRequests {
		return RateLimitInfo{}, false
	}
	if httpErr.Header == nil {
		return RateLimitInfo{}, false
	}

	var info RateLimitInfo
	found := false

	if v := httpErr.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(secs) * time.Second
			found = true
		}
	}
	if v := httpErr.Header.Get("X-RateLimit-Limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			info.Limit = n
			found = true
		}
	}
	if v := httpErr.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			info.Remaining = n
			found = true
		}
	}
	if v := httpErr.Header.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			info.Reset = time.Unix(unix, 0).UTC()
			found = true
		}
	}

	return info, found
}
