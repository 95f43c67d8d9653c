package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/concierge/internal/model"
)

// errorBody is the wire form of a rejected request. Detail is populated only
// in development deployments.
type errorBody struct {
	Category string `json:"category"`
	Detail   string `json:"detail,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a failure onto the wire taxonomy. Anything that is not a
// RequestError is logged and reported as a generic upstream failure so
// internals never leak.
func (a *api) writeError(w http.ResponseWriter, err error) {
	var re *model.RequestError
	if !errors.As(err, &re) {
		zap.L().Error("http: unclassified failure", zap.Error(err))
		re = model.NewRequestError(model.CategoryUpstreamUnavailable, "request failed")
	}
	if re.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(re.RetryAfter))
	}
	body := errorBody{Category: string(re.Category)}
	if a.development {
		body.Detail = re.Detail
	}
	writeJSON(w, statusFor(re.Category), errorEnvelope{Error: body})
}

func statusFor(cat model.Category) int {
	switch cat {
	case model.CategoryInputInvalid:
		return http.StatusBadRequest
	case model.CategoryUnauthorized:
		return http.StatusUnauthorized
	case model.CategoryQuotaExceeded:
		return http.StatusTooManyRequests
	case model.CategoryUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
