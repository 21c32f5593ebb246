package timebutler

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var (
	authParamRe   = regexp.MustCompile(`(?i)\bauth=[^&\s"']+`)
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
)

// redactSecrets strips auth tokens from URLs and error strings.
func redactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := authParamRe.ReplaceAllString(s, "auth=<redacted>")
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	return strings.TrimSpace(out)
}

// TransportError is a network failure, a retriable HTTP status (5xx, 429) or a body
// that could not be decoded.
type TransportError struct {
	Op         string
	StatusCode int
	Status     string
	// Snippet is a redacted, truncated hint of the response body.
	Snippet string
	Err     error

	retryable bool
}

func (e *TransportError) Error() string {
	if e == nil {
		return "timebutler transport error"
	}
	parts := []string{fmt.Sprintf("timebutler transport error: op=%s", e.Op)}
	if e.Status != "" {
		parts = append(parts, "status="+e.Status)
	}
	if e.Snippet != "" {
		parts = append(parts, "body="+e.Snippet)
	}
	if e.Err != nil {
		parts = append(parts, "err="+redactSecrets(e.Err.Error()))
	}
	return strings.Join(parts, " ")
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *TransportError) Retryable() bool {
	return e != nil && e.retryable
}

// AuthError is a non-retriable 4xx response: bad token, forbidden, unknown endpoint.
type AuthError struct {
	Op         string
	StatusCode int
	Status     string
	Snippet    string
}

func (e *AuthError) Error() string {
	if e == nil {
		return "timebutler auth error"
	}
	msg := fmt.Sprintf("timebutler request rejected: op=%s status=%s", e.Op, e.Status)
	if e.Snippet != "" {
		msg += " body=" + e.Snippet
	}
	return msg
}

func newNetworkError(op string, err error) error {
	return &TransportError{Op: op, Err: err, retryable: true}
}

func newDecodeError(op string, err error) error {
	return &TransportError{Op: op, StatusCode: http.StatusOK, Status: "200 OK", Err: err}
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	snippet := redactAndTruncate(body)
	if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
		return &AuthError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Snippet:    snippet,
		}
	}
	return &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Snippet:    snippet,
		retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
	}
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}
