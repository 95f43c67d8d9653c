// Package prompt routes classified messages to intent-specific prompt
// templates and runs them against the generation model.
package prompt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/concierge/internal/model"
	"github.com/sells-group/concierge/internal/resilience"
	"github.com/sells-group/concierge/pkg/anthropic"
)

// GenParams are the generation settings for one intent.
type GenParams struct {
	MaxTokens   int64
	Temperature float64
}

// paramsByIntent tunes each intent. Structured output runs cold; narrative
// output gets more headroom and freedom.
var paramsByIntent = map[model.Intent]GenParams{
	model.IntentExtraction:    {MaxTokens: 1024, Temperature: 0.0},
	model.IntentFitAssessment: {MaxTokens: 1500, Temperature: 0.3},
	model.IntentScrapeRequest: {MaxTokens: 1200, Temperature: 0.5},
	model.IntentDefaultChat:   {MaxTokens: 800, Temperature: 0.7},
}

// Prompt is an assembled generation request: system persona, the final user
// turn, and the intent's settings.
type Prompt struct {
	Intent     model.Intent
	System     string
	Text       string
	Params     GenParams
	JSONOutput bool
}

// Route assembles the prompt for one classified message. Content and profile
// are bounded before templating so an oversized page cannot blow out the
// request.
func Route(intent model.Intent, content, profile, message string) Prompt {
	profile = bound(strings.TrimSpace(profile), maxProfileChars)
	content = bound(content, maxContentChars)

	params, ok := paramsByIntent[intent]
	if !ok {
		intent = model.IntentDefaultChat
		params = paramsByIntent[intent]
	}

	p := Prompt{
		Intent: intent,
		System: fmt.Sprintf(sharedSystem, profile),
		Params: params,
	}

	switch intent {
	case model.IntentExtraction:
		p.Text = fmt.Sprintf(extractionTemplate, message, content)
		p.JSONOutput = true
	case model.IntentFitAssessment:
		p.Text = fmt.Sprintf(fitTemplate, message, content)
	case model.IntentScrapeRequest:
		p.Text = fmt.Sprintf(summaryTemplate, message, content)
	default:
		p.Text = message
	}
	return p
}

// Router runs assembled prompts against the primary model with a configured
// fallback. A breaker sidelines the primary model during a sustained outage
// so requests go straight to the fallback instead of burning a doomed call.
type Router struct {
	client        anthropic.Client
	model         string
	fallbackModel string
	breaker       *resilience.Breaker
}

// NewRouter returns a Router generating with the given models. fallbackModel
// may be empty to disable the retry.
func NewRouter(client anthropic.Client, model, fallbackModel string) *Router {
	return &Router{
		client:        client,
		model:         model,
		fallbackModel: fallbackModel,
		breaker:       resilience.NewBreaker(5, 30*time.Second),
	}
}

// Generate runs the prompt with the caller's history as prior turns and the
// prompt text as the final user turn. When the primary model call fails or
// its breaker is open, and a fallback model is configured, the same request
// is retried once against it.
func (r *Router) Generate(ctx context.Context, p Prompt, history []model.ConversationMessage) (string, error) {
	temp := p.Params.Temperature
	req := anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   p.Params.MaxTokens,
		System:      anthropic.CachedSystemBlock(p.System),
		Messages:    buildMessages(history, p.Text),
		Temperature: &temp,
	}

	var resp *anthropic.MessageResponse
	var err error
	if r.breaker.Allow() {
		resp, err = r.client.CreateMessage(ctx, req)
		r.breaker.Record(err)
	} else {
		err = resilience.ErrOpen
	}
	if err != nil && r.fallbackModel != "" && r.fallbackModel != r.model {
		zap.L().Warn("primary model unavailable, using fallback",
			zap.String("model", r.model),
			zap.String("fallback_model", r.fallbackModel),
			zap.Error(err))
		req.Model = r.fallbackModel
		resp, err = r.client.CreateMessage(ctx, req)
	}
	if err != nil {
		return "", eris.Wrap(err, "prompt: generate")
	}

	resp.Usage.LogCost(req.Model, string(p.Intent))

	text := resp.Text()
	if p.JSONOutput {
		text = CleanJSON(text)
	}
	return text, nil
}

// buildMessages converts caller history into API turns and appends the final
// user turn. The messages API requires the first turn to be a user turn and
// rejects consecutive same-role turns, so leading model turns are dropped and
// adjacent same-role turns are merged.
func buildMessages(history []model.ConversationMessage, final string) []anthropic.Message {
	for len(history) > 0 && history[0].Role != model.RoleUser {
		history = history[1:]
	}

	msgs := make([]anthropic.Message, 0, len(history)+1)
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := "user"
		if turn.Role == model.RoleModel {
			role = "assistant"
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + content
			continue
		}
		msgs = append(msgs, anthropic.Message{Role: role, Content: content})
	}

	if n := len(msgs); n > 0 && msgs[n-1].Role == "user" {
		msgs[n-1].Content += "\n\n" + final
		return msgs
	}
	return append(msgs, anthropic.Message{Role: "user", Content: final})
}

func bound(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
