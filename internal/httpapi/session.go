package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/concierge/internal/model"
	"github.com/sells-group/concierge/internal/session"
)

// sessionRequest carries the third-party verification token. The body may be
// empty on the bypass and dev issuance paths.
type sessionRequest struct {
	VerificationToken string `json:"verificationToken"`
}

type sessionResponse struct {
	Token string `json:"token"`
	Grant string `json:"grant"`
}

func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		a.writeError(w, model.NewRequestError(model.CategoryInputInvalid, "invalid request body"))
		return
	}

	identity := ClientIdentity(r)
	token, grant, err := a.gate.Issue(r.Context(), identity, req.VerificationToken)
	if err != nil {
		if errors.Is(err, session.ErrVerificationFailed) {
			a.writeError(w, model.NewRequestError(model.CategoryUnauthorized, "verification failed"))
			return
		}
		zap.L().Error("http: session issuance failed",
			zap.String("identity", identity),
			zap.Error(err))
		a.writeError(w, model.NewRequestError(model.CategoryUpstreamUnavailable, "verification provider unavailable"))
		return
	}

	zap.L().Info("http: session issued",
		zap.String("identity", identity),
		zap.String("grant", string(grant)))
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Grant: string(grant)})
}
