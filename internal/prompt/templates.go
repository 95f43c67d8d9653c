package prompt

import "fmt"

// Size bounds applied to template inputs before formatting.
const (
	maxProfileChars = 4000
	maxContentChars = 100000
)

// sharedSystem is the persona preamble shared by every intent.
const sharedSystem = `You are the site concierge for the candidate described below. You answer questions from recruiters and hiring managers on the candidate's behalf.

Rules:
- Ground every claim in the candidate profile or the provided page content
- Never invent employment history, dates, or skills
- Keep a professional, direct tone
- If you do not know, say so plainly

Candidate profile:
%s`

// extractionTemplate demands machine-readable output and nothing else.
const extractionTemplate = `Extract the requested fields from the content below.

Respond with ONLY valid JSON. No prose, no markdown fences, no commentary.
Use null for fields the content does not state.

Request: %s

Content:
%s`

// fitTemplate scores a role against the candidate profile. A clearly failed
// hard requirement forces the verdict regardless of other scoring.
const fitTemplate = `Assess how well the candidate fits the role described in the content below.

Scoring rubric:
1. List the role's hard requirements (must-have skills, years of experience, clearances, locations).
2. Mark each hard requirement Met, Unclear, or Not Met based on the candidate profile.
3. If any hard requirement is clearly Not Met, the verdict MUST be "Not a Fit" regardless of other strengths.
4. Otherwise weigh the preferred qualifications and give a verdict: "Strong Fit", "Possible Fit", or "Not a Fit".

Format:
Verdict: <verdict>
Hard requirements:
- <requirement>: <Met|Unclear|Not Met> - <one line of evidence>
Summary: <2-4 sentences>

Question: %s

Role content:
%s`

// summaryTemplate renders fetched pages into a fixed outline.
const summaryTemplate = `Summarize the page content below.

Format:
Title: <page title or best guess>
What it is: <1-2 sentences>
Key points:
- <3-6 bullets>
Relevance: <1-2 sentences on how the page relates to the candidate>

Request: %s

Page content:
%s`

// clarifyingResponse is returned when a grounded intent arrives with nothing
// to ground on: no URL, no pasted text, nothing recallable from history.
const clarifyingResponse = "I'd be happy to help with that. Could you share the job posting URL or paste the job description text?"

// ClarifyingResponse is the canned reply for grounded intents that carry no
// content to work from.
func ClarifyingResponse() string {
	return clarifyingResponse
}

// thinContentResponse is returned when grounding content was acquired but
// came back nearly empty, usually a login wall or a script-rendered page.
const thinContentResponse = "I wasn't able to read enough content from that to give you a grounded answer. If it's a page link it may sit behind a login; pasting the full job posting text here works best."

// ThinContentResponse is the canned reply for content that stayed too thin
// to ground a response after the history fallback found nothing better.
func ThinContentResponse() string {
	return thinContentResponse
}

// pendingScrapeResponse is returned when the polling deadline passed without
// a terminal job status. The job keeps running on the scraping service, so a
// retry shortly after usually lands on a finished job.
const pendingScrapeResponse = "I'm still fetching %s. The page is taking longer than usual to come back; ask me again in a few seconds and I should have it."

// PendingScrapeResponse is the canned reply for scrape jobs that outlived
// the polling deadline.
func PendingScrapeResponse(target string) string {
	return fmt.Sprintf(pendingScrapeResponse, target)
}
