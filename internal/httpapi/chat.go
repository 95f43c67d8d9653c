package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sells-group/concierge/internal/chat"
	"github.com/sells-group/concierge/internal/model"
)

// chatRequest is the inbound message envelope. History stays caller-held; the
// service never persists it.
type chatRequest struct {
	Message string                      `json:"message"`
	History []model.ConversationMessage `json:"history,omitempty"`
	Context string                      `json:"context,omitempty"`
}

// chatResponse is the success envelope. JobID appears only when a scrape job
// was involved, so the caller can correlate a still-running reply with a
// retry.
type chatResponse struct {
	Response  string `json:"response"`
	JobID     string `json:"jobId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (a *api) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, model.NewRequestError(model.CategoryInputInvalid, "invalid request body"))
		return
	}

	res, err := a.chat.Handle(r.Context(), chat.Request{
		Message:  req.Message,
		History:  req.History,
		Context:  req.Context,
		Identity: ClientIdentity(r),
		Token:    bearerToken(r),
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  res.Text,
		JobID:     res.JobID,
		Timestamp: res.Timestamp,
	})
}

// bearerToken extracts the session token from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
