// Package monitoring counts orchestration events for the metrics endpoint.
package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/sells-group/concierge/internal/model"
)

// ScrapeOutcome classifies how a scrape attempt ended.
type ScrapeOutcome string

const (
	ScrapeCompleted ScrapeOutcome = "completed"
	ScrapeFailed    ScrapeOutcome = "failed"
	ScrapeTimedOut  ScrapeOutcome = "timed_out"
	ScrapeCacheHit  ScrapeOutcome = "cache_hit"
)

func scrapeOutcomes() []ScrapeOutcome {
	return []ScrapeOutcome{ScrapeCompleted, ScrapeFailed, ScrapeTimedOut, ScrapeCacheHit}
}

// Recorder counts orchestration events. Implementations must be safe for
// concurrent use. The recorder is injected wherever events happen; nothing
// in this package is process-global.
type Recorder interface {
	RecordRequest(intent model.Intent)
	RecordScrape(outcome ScrapeOutcome)
	RecordQuotaRejection()
	RecordQuotaError()
	RecordFallback()
}

// Snapshot holds a point-in-time view of the counters.
type Snapshot struct {
	Requests        int64            `json:"requests"`
	Intents         map[string]int64 `json:"intents"`
	Scrapes         map[string]int64 `json:"scrapes"`
	QuotaRejections int64            `json:"quota_rejections"`
	QuotaErrors     int64            `json:"quota_errors"`
	Fallbacks       int64            `json:"fallbacks"`
	CollectedAt     time.Time        `json:"collected_at"`
}

// Registry is the in-process Recorder served by the metrics endpoint.
type Registry struct {
	requests        atomic.Int64
	intents         map[model.Intent]*atomic.Int64
	scrapes         map[ScrapeOutcome]*atomic.Int64
	quotaRejections atomic.Int64
	quotaErrors     atomic.Int64
	fallbacks       atomic.Int64
}

// NewRegistry returns a Registry with a counter per intent and scrape
// outcome. The maps are fixed at construction so reads need no locking.
func NewRegistry() *Registry {
	r := &Registry{
		intents: make(map[model.Intent]*atomic.Int64),
		scrapes: make(map[ScrapeOutcome]*atomic.Int64),
	}
	for _, intent := range model.AllIntents() {
		r.intents[intent] = &atomic.Int64{}
	}
	for _, outcome := range scrapeOutcomes() {
		r.scrapes[outcome] = &atomic.Int64{}
	}
	return r
}

func (r *Registry) RecordRequest(intent model.Intent) {
	r.requests.Add(1)
	if c, ok := r.intents[intent]; ok {
		c.Add(1)
	}
}

func (r *Registry) RecordScrape(outcome ScrapeOutcome) {
	if c, ok := r.scrapes[outcome]; ok {
		c.Add(1)
	}
}

func (r *Registry) RecordQuotaRejection() { r.quotaRejections.Add(1) }
func (r *Registry) RecordQuotaError()     { r.quotaErrors.Add(1) }
func (r *Registry) RecordFallback()       { r.fallbacks.Add(1) }

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:        r.requests.Load(),
		Intents:         make(map[string]int64, len(r.intents)),
		Scrapes:         make(map[string]int64, len(r.scrapes)),
		QuotaRejections: r.quotaRejections.Load(),
		QuotaErrors:     r.quotaErrors.Load(),
		Fallbacks:       r.fallbacks.Load(),
		CollectedAt:     time.Now().UTC(),
	}
	for intent, c := range r.intents {
		snap.Intents[string(intent)] = c.Load()
	}
	for outcome, c := range r.scrapes {
		snap.Scrapes[string(outcome)] = c.Load()
	}
	return snap
}

// Nop is a Recorder that discards everything. Used by the debug commands
// and tests that do not assert on counters.
type Nop struct{}

func (Nop) RecordRequest(model.Intent) {}
func (Nop) RecordScrape(ScrapeOutcome) {}
func (Nop) RecordQuotaRejection()      {}
func (Nop) RecordQuotaError()          {}
func (Nop) RecordFallback()            {}
