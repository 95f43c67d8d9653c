package model

import "fmt"

// Category is the machine-stable classification of a rejected request.
type Category string

const (
	CategoryInputInvalid        Category = "input_invalid"
	CategoryUnauthorized        Category = "unauthorized"
	CategoryQuotaExceeded       Category = "quota_exceeded"
	CategoryUpstreamUnavailable Category = "upstream_unavailable"
)

// RequestError carries a stable category plus an optional human detail
// string. The detail is shown to callers only in development deployments.
type RequestError struct {
	Category   Category
	Detail     string
	RetryAfter int // seconds; nonzero only for quota rejections
}

func (e *RequestError) Error() string {
	if e.Detail == "" {
		return string(e.Category)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewRequestError builds a RequestError with the given category and detail.
func NewRequestError(cat Category, detail string) *RequestError {
	return &RequestError{Category: cat, Detail: detail}
}
