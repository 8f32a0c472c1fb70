package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Fetch failure kinds.
const (
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindStatus      = "status"
	KindDecode      = "decode"
	KindCanceled    = "canceled"
	KindOther       = "other"
)

// FetchError is the single failure a fetch can surface. Its message is meant
// to be shown to the user as is.
type FetchError struct {
	Kind       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "failed to fetch data"
	}
	return fmt.Sprintf("failed to fetch data: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrMalformedPayload wraps JSON and schema failures.
var ErrMalformedPayload = errors.New("malformed payload")

func classifyError(err error, statusCode int) *FetchError {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &FetchError{Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, ErrMalformedPayload) {
		return &FetchError{Kind: KindDecode, StatusCode: statusCode, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &FetchError{Kind: KindConnection, Err: err}
	}

	if statusCode != 0 && !isSuccessStatus(statusCode) {
		wrapped := err
		if wrapped == nil {
			wrapped = statusError(statusCode)
		}
		kind := KindStatus
		switch statusCode {
		case http.StatusForbidden:
			kind = KindForbidden
		case http.StatusNotFound:
			kind = KindNotFound
		case http.StatusTooManyRequests:
			kind = KindRateLimited
		}
		return &FetchError{Kind: kind, StatusCode: statusCode, Err: wrapped}
	}

	return &FetchError{Kind: KindOther, StatusCode: statusCode, Err: err}
}

// isSuccessStatus reports whether statusCode is in the 2xx range.
func isSuccessStatus(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

func statusError(statusCode int) error {
	if text := http.StatusText(statusCode); text != "" {
		return errors.New(text)
	}
	return fmt.Errorf("http status %d", statusCode)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return KindOther
}
