package anthropic

import (
	"errors"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// FailureClass buckets a CreateMessage error for operator logs: "auth" for
// credential rejections, "rate" for rate or quota limiting, "upstream" for
// everything else. Callers surface only a generic category; this string is
// for diagnosis, never for the wire.
func FailureClass(err error) string {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth"
		case http.StatusTooManyRequests:
			return "rate"
		}
	}
	return "upstream"
}
