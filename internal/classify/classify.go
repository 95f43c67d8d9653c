// Package classify assigns an intent to an inbound chat message using an
// ordered set of pattern rules.
package classify

import (
	"regexp"
	"strings"

	"github.com/sells-group/concierge/internal/model"
)

// pastedThreshold is the whitespace-normalized length above which a message
// body is treated as pasted source content rather than a conversational turn.
const pastedThreshold = 500

// recallDepth bounds how many recent user turns target recall inspects.
const recallDepth = 6

// fitPattern matches fit-inquiry phrasing.
var fitPattern = regexp.MustCompile(`(?i)\b(?:good\s+fit|good\s+candidate|qualif\w*|fit\b|should\s+(?:i|we|he|she|they)\s+apply)`)

// extractionPattern matches structured-output cues.
var extractionPattern = regexp.MustCompile(`(?i)\b(?:json|csv|extract(?:ed|ing|ion)?|fields?)\b`)

// scrapeVerbPattern matches fetch-style action verbs.
var scrapeVerbPattern = regexp.MustCompile(`(?i)\b(?:scrape|fetch|get|extract)\b`)

// jobMarkers identify pasted job-posting text regardless of length. Section
// headers keep their colon so short questions about a role don't trip them.
var jobMarkers = []string{
	"responsibilities:",
	"qualifications:",
	"requirements:",
	"about the role",
	"job description",
	"what you'll do",
	"who you are",
	"we are looking for",
	"equal opportunity employer",
}

// Result is the outcome of classifying one message.
type Result struct {
	Intent model.Intent

	// Target is the normalized fetch target, empty when neither the message
	// nor recent history names one.
	Target string

	// PastedText carries the message body when it was detected as pasted
	// source content.
	PastedText string
}

// Grounded reports whether the result carries content the downstream flow
// can ground a response on.
func (r Result) Grounded() bool {
	return r.Target != "" || r.PastedText != ""
}

// Classify assigns an intent to message. History is consulted only to recall
// a target from recent user turns when the current message names none.
func Classify(message string, history []model.ConversationMessage) Result {
	res := Result{Intent: model.IntentDefaultChat}

	// 1. Target extraction.
	if target, ok := ExtractTarget(message); ok {
		res.Target = target
	}

	// 2. Pasted-job-text detection.
	if isPastedJobText(message) {
		res.PastedText = strings.TrimSpace(message)
	}

	// 3. Fit inquiry wins over scrape and extraction.
	if fitPattern.MatchString(message) {
		res.Intent = model.IntentFitAssessment
		return recallTarget(res, history)
	}

	// 4. Structured-output cues.
	if extractionPattern.MatchString(message) {
		res.Intent = model.IntentExtraction
		return recallTarget(res, history)
	}

	// 5. Action verb plus a target.
	if res.Target != "" && scrapeVerbPattern.MatchString(message) {
		res.Intent = model.IntentScrapeRequest
		return res
	}

	// A lone URL is an implicit fetch request; a pasted posting with no
	// question attached is an implicit fit check.
	if res.Target != "" {
		res.Intent = model.IntentScrapeRequest
		return res
	}
	if res.PastedText != "" {
		res.Intent = model.IntentFitAssessment
		return res
	}

	return res
}

// isPastedJobText reports whether the message body is itself source content:
// long enough after whitespace normalization, or carrying a posting marker.
func isPastedJobText(message string) bool {
	normalized := strings.Join(strings.Fields(message), " ")
	if len(normalized) > pastedThreshold {
		return true
	}
	lower := strings.ToLower(normalized)
	for _, marker := range jobMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// recallTarget backfills an ungrounded result's target from recent user turns.
func recallTarget(res Result, history []model.ConversationMessage) Result {
	if res.Grounded() {
		return res
	}
	seen := 0
	for i := len(history) - 1; i >= 0 && seen < recallDepth; i-- {
		if history[i].Role != model.RoleUser {
			continue
		}
		seen++
		if target, ok := ExtractTarget(history[i].Content); ok {
			res.Target = target
			return res
		}
	}
	return res
}
