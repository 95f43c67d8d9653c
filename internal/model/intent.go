package model

// Intent is the classified purpose of an inbound chat message.
type Intent string

const (
	IntentDefaultChat   Intent = "default_chat"
	IntentScrapeRequest Intent = "scrape_request"
	IntentExtraction    Intent = "extraction"
	IntentFitAssessment Intent = "fit_assessment"
)

// AllIntents returns all defined intents.
func AllIntents() []Intent {
	return []Intent{
		IntentDefaultChat,
		IntentScrapeRequest,
		IntentExtraction,
		IntentFitAssessment,
	}
}

// Grounded reports whether the intent needs source content (a scraped page
// or pasted text) before generation.
func (i Intent) Grounded() bool {
	switch i {
	case IntentScrapeRequest, IntentExtraction, IntentFitAssessment:
		return true
	}
	return false
}
