// Package chat runs one inbound message through the full request pipeline:
// admission, quota, classification, content acquisition, and generation.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/concierge/internal/assemble"
	"github.com/sells-group/concierge/internal/classify"
	"github.com/sells-group/concierge/internal/model"
	"github.com/sells-group/concierge/internal/monitoring"
	"github.com/sells-group/concierge/internal/profile"
	"github.com/sells-group/concierge/internal/prompt"
	"github.com/sells-group/concierge/internal/quota"
	"github.com/sells-group/concierge/internal/session"
	"github.com/sells-group/concierge/internal/store"
	"github.com/sells-group/concierge/pkg/anthropic"
	"github.com/sells-group/concierge/pkg/harvester"
)

// Input bounds applied when the config leaves them unset.
const (
	defaultMaxMessageChars = 2000
	defaultMaxHistory      = 20
	defaultMaxContextChars = 2000
	defaultDailyQuota      = 40
	defaultCacheTTL        = 24 * time.Hour
)

// Limits bound caller-supplied input. Zero values take defaults. Oversized
// input is truncated, never rejected.
type Limits struct {
	MaxMessageChars int
	MaxHistory      int
	MaxContextChars int
	DailyQuota      int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxMessageChars <= 0 {
		l.MaxMessageChars = defaultMaxMessageChars
	}
	if l.MaxHistory <= 0 {
		l.MaxHistory = defaultMaxHistory
	}
	if l.MaxContextChars <= 0 {
		l.MaxContextChars = defaultMaxContextChars
	}
	if l.DailyQuota <= 0 {
		l.DailyQuota = defaultDailyQuota
	}
	return l
}

// Request is one inbound chat message plus its transport-derived state.
type Request struct {
	// Message is the user's current turn. Required.
	Message string

	// History is the caller-held conversation, oldest first.
	History []model.ConversationMessage

	// Context optionally describes what the caller is looking at. It is
	// folded into the system prompt, never into the user turn.
	Context string

	// Identity is the per-caller key derived from the network origin.
	Identity string

	// Token is the session token the caller presented, possibly empty.
	Token string
}

// Response is a successful orchestration outcome.
type Response struct {
	Text   string
	Intent model.Intent

	// JobID is set when a scrape job was involved, letting the caller
	// correlate a "still running" reply with a later retry.
	JobID string

	// Timestamp is epoch milliseconds at response time.
	Timestamp int64
}

// Options wires an Orchestrator. Gate, Quota, Profiles and Cache are
// optional; nil disables that stage.
type Options struct {
	Gate      *session.Gate
	Quota     *quota.Ledger
	Scraper   harvester.Client
	PollOpts  []harvester.PollOption
	Assembler *assemble.Assembler
	Router    *prompt.Router
	Profiles  profile.Source
	Cache     store.Store
	CacheTTL  time.Duration
	Recorder  monitoring.Recorder
	Limits    Limits
}

// Orchestrator runs the request pipeline: admission, quota, classification,
// cache-or-scrape content acquisition, assembly, and generation.
type Orchestrator struct {
	gate      *session.Gate
	quota     *quota.Ledger
	scraper   harvester.Client
	pollOpts  []harvester.PollOption
	assembler *assemble.Assembler
	router    *prompt.Router
	profiles  profile.Source
	cache     store.Store
	cacheTTL  time.Duration
	recorder  monitoring.Recorder
	limits    Limits
	now       func() time.Time
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Recorder == nil {
		opts.Recorder = monitoring.Nop{}
	}
	if opts.Assembler == nil {
		opts.Assembler = assemble.New(assemble.Options{})
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Orchestrator{
		gate:      opts.Gate,
		quota:     opts.Quota,
		scraper:   opts.Scraper,
		pollOpts:  opts.PollOpts,
		assembler: opts.Assembler,
		router:    opts.Router,
		profiles:  opts.Profiles,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		recorder:  opts.Recorder,
		limits:    opts.Limits.withDefaults(),
		now:       time.Now,
	}
}

// Handle answers one chat message. Errors of type *model.RequestError carry
// a caller-visible category; anything else is an internal failure.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	if o.gate != nil {
		if _, err := o.gate.Admit(req.Token); err != nil {
			return nil, model.NewRequestError(model.CategoryUnauthorized, "missing or invalid session token")
		}
	}

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, model.NewRequestError(model.CategoryInputInvalid, "message is required")
	}
	msg = truncate(msg, o.limits.MaxMessageChars)
	history := model.TruncateHistory(req.History, o.limits.MaxHistory)
	pageContext := truncate(strings.TrimSpace(req.Context), o.limits.MaxContextChars)

	if err := o.checkQuota(ctx, req.Identity); err != nil {
		return nil, err
	}

	res := classify.Classify(msg, history)
	o.recorder.RecordRequest(res.Intent)
	zap.L().Info("chat: classified",
		zap.String("intent", string(res.Intent)),
		zap.String("identity", req.Identity),
		zap.Bool("grounded", res.Grounded()))

	var (
		persona string
		content assemble.Assembled
		jobID   string
	)

	switch {
	case res.Intent == model.IntentDefaultChat:
		persona = o.loadProfile(ctx)

	case !res.Grounded():
		return o.respond(res.Intent, prompt.ClarifyingResponse(), ""), nil

	case res.PastedText != "":
		// The message body is the source content; no fetch needed.
		persona = o.loadProfile(ctx)
		content = o.assembler.Assemble(nil, res.PastedText, history)

	default:
		g, gctx := errgroup.WithContext(ctx)
		var acq acquisition
		g.Go(func() error {
			persona = o.loadProfile(gctx)
			return nil
		})
		g.Go(func() error {
			var err error
			acq, err = o.acquire(gctx, res.Target)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "chat: acquire content")
		}
		jobID = acq.jobID
		if acq.pending {
			return o.respond(res.Intent, prompt.PendingScrapeResponse(res.Target), jobID), nil
		}
		if acq.failed {
			return o.chatFallback(ctx, msg, persona, pageContext, history)
		}
		content = o.assembler.Assemble(acq.results, "", history)
	}

	if content.Thin {
		return o.respond(res.Intent, prompt.ThinContentResponse(), jobID), nil
	}

	p := prompt.Route(res.Intent, content.Text, withPageContext(persona, pageContext), msg)
	text, err := o.router.Generate(ctx, p, history)
	if err != nil {
		return nil, o.generationError(err)
	}
	return o.respond(res.Intent, text, jobID), nil
}

// checkQuota enforces the daily ceiling. Ledger outages fail open: the
// request proceeds and only the quota_errors counter records the skip.
func (o *Orchestrator) checkQuota(ctx context.Context, identity string) error {
	if o.quota == nil {
		return nil
	}
	count, err := o.quota.CheckAndIncrement(ctx, identity)
	if err != nil {
		o.recorder.RecordQuotaError()
		zap.L().Warn("chat: quota ledger unavailable, failing open",
			zap.String("identity", identity),
			zap.Error(err))
		return nil
	}
	if count > o.limits.DailyQuota {
		o.recorder.RecordQuotaRejection()
		retryAfter := int(quota.UntilMidnightUTC(o.now()).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return &model.RequestError{
			Category:   model.CategoryQuotaExceeded,
			Detail:     "daily request limit reached",
			RetryAfter: retryAfter,
		}
	}
	return nil
}

// acquisition is what the fetch side of a grounded flow produced.
type acquisition struct {
	results []harvester.Result
	jobID   string
	pending bool
	failed  bool
}

// acquire resolves a target to scrape results: cache first, then a submitted
// job awaited to a terminal status. Failures are reported in the result, not
// as errors; only context cancellation aborts.
func (o *Orchestrator) acquire(ctx context.Context, target string) (acquisition, error) {
	if o.cache != nil {
		cached, err := o.cache.GetCachedScrape(ctx, target)
		if err != nil {
			zap.L().Warn("chat: scrape cache read failed", zap.String("target", target), zap.Error(err))
		} else if cached != nil {
			o.recorder.RecordScrape(monitoring.ScrapeCacheHit)
			return acquisition{results: cached.Results}, nil
		}
	}

	submitted, err := o.scraper.Submit(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return acquisition{}, ctx.Err()
		}
		zap.L().Error("chat: scrape submit failed", zap.String("target", target), zap.Error(err))
		o.recorder.RecordScrape(monitoring.ScrapeFailed)
		return acquisition{failed: true}, nil
	}

	job, err := harvester.Await(ctx, o.scraper, submitted.ID, o.pollOpts...)
	if err != nil {
		return acquisition{jobID: submitted.ID}, err
	}

	if job == nil || !job.Status.Terminal() {
		o.recorder.RecordScrape(monitoring.ScrapeTimedOut)
		zap.L().Info("chat: scrape still running at deadline",
			zap.String("job_id", submitted.ID),
			zap.String("target", target))
		return acquisition{jobID: submitted.ID, pending: true}, nil
	}

	if job.Status != harvester.StatusCompleted {
		o.recorder.RecordScrape(monitoring.ScrapeFailed)
		zap.L().Warn("chat: scrape job failed",
			zap.String("job_id", job.ID),
			zap.String("status", string(job.Status)),
			zap.String("error", job.Error))
		return acquisition{jobID: job.ID, failed: true}, nil
	}

	o.recorder.RecordScrape(monitoring.ScrapeCompleted)
	if o.cache != nil && len(job.Results) > 0 {
		if err := o.cache.SetCachedScrape(ctx, target, job.Results, o.cacheTTL); err != nil {
			zap.L().Warn("chat: scrape cache write failed", zap.String("target", target), zap.Error(err))
		}
	}
	return acquisition{jobID: job.ID, results: job.Results}, nil
}

// chatFallback answers a grounded flow that lost its content with plain
// persona chat. Availability wins over strictness here.
func (o *Orchestrator) chatFallback(ctx context.Context, msg, persona, pageContext string, history []model.ConversationMessage) (*Response, error) {
	o.recorder.RecordFallback()
	p := prompt.Route(model.IntentDefaultChat, "", withPageContext(persona, pageContext), msg)
	text, err := o.router.Generate(ctx, p, history)
	if err != nil {
		return nil, o.generationError(err)
	}
	return o.respond(model.IntentDefaultChat, text, ""), nil
}

// loadProfile returns the candidate profile text, or empty when no source is
// configured or the source fails. Generation degrades rather than blocking.
func (o *Orchestrator) loadProfile(ctx context.Context) string {
	if o.profiles == nil {
		return ""
	}
	text, err := o.profiles.Load(ctx)
	if err != nil {
		zap.L().Warn("chat: profile unavailable", zap.Error(err))
		return ""
	}
	return text
}

// generationError logs the classed failure and returns the generic category
// the caller is allowed to see.
func (o *Orchestrator) generationError(err error) error {
	zap.L().Error("chat: generation failed",
		zap.String("failure_class", anthropic.FailureClass(err)),
		zap.Error(err))
	return model.NewRequestError(model.CategoryUpstreamUnavailable, "generation is temporarily unavailable")
}

func (o *Orchestrator) respond(intent model.Intent, text, jobID string) *Response {
	return &Response{
		Text:      text,
		Intent:    intent,
		JobID:     jobID,
		Timestamp: o.now().UnixMilli(),
	}
}

// withPageContext folds the caller-supplied page context into the
// system-side profile text.
func withPageContext(persona, pageContext string) string {
	if pageContext == "" {
		return persona
	}
	if persona == "" {
		return "Page the visitor is viewing:\n" + pageContext
	}
	return persona + "\n\nPage the visitor is viewing:\n" + pageContext
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
