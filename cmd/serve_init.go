package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/concierge/internal/assemble"
	"github.com/sells-group/concierge/internal/chat"
	"github.com/sells-group/concierge/internal/monitoring"
	"github.com/sells-group/concierge/internal/profile"
	"github.com/sells-group/concierge/internal/prompt"
	"github.com/sells-group/concierge/internal/quota"
	"github.com/sells-group/concierge/internal/session"
	"github.com/sells-group/concierge/internal/store"
	anthropicpkg "github.com/sells-group/concierge/pkg/anthropic"
	"github.com/sells-group/concierge/pkg/harvester"
	"github.com/sells-group/concierge/pkg/notion"
	"github.com/sells-group/concierge/pkg/turnstile"
)

// serviceEnv holds the initialized clients and the orchestrator the serve
// command wires into the HTTP router.
type serviceEnv struct {
	Chat    *chat.Orchestrator
	Gate    *session.Gate
	Metrics *monitoring.Registry
	Store   store.Store
	Redis   *redis.Client
}

// Close releases resources held by the service environment.
func (se *serviceEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
	if se.Redis != nil {
		_ = se.Redis.Close()
	}
}

// initService sets up the quota ledger, scrape cache, profile source, and
// the chat orchestrator. Callers should defer env.Close().
func initService(ctx context.Context) (*serviceEnv, error) {
	if err := cfg.Validate("serve"); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The ledger fails open, so an unreachable redis degrades quota
		// enforcement instead of blocking startup.
		zap.L().Warn("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	ledger := quota.NewLedger(rdb)

	st, err := initStore(ctx)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	profiles, err := initProfiles()
	if err != nil {
		_ = st.Close()
		_ = rdb.Close()
		return nil, err
	}

	var verifier session.Verifier
	if cfg.Verify.Secret != "" {
		opts := []turnstile.Option{
			turnstile.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Verify.TimeoutSecs) * time.Second}),
		}
		if cfg.Verify.URL != "" {
			opts = append(opts, turnstile.WithBaseURL(cfg.Verify.URL))
		}
		verifier = turnstile.NewClient(cfg.Verify.Secret, opts...)
	} else {
		zap.L().Warn("no verification secret configured, session issuance falls back to dev grants")
	}

	tokens := session.NewService(cfg.Session.Secret)
	gate := session.NewGate(tokens, verifier, cfg.Production(), cfg.Verify.Secret != "", cfg.Verify.Required)

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	router := prompt.NewRouter(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.FallbackModel)

	scraper := harvester.NewClient(cfg.Harvester.Key,
		harvester.WithBaseURL(cfg.Harvester.BaseURL),
		harvester.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Harvester.SubmitTimeoutSecs) * time.Second}),
		harvester.WithSubmitLimit(cfg.Harvester.SubmitRPS),
	)

	assembler := assemble.New(assemble.Options{
		BudgetChars:     cfg.Assemble.BudgetChars,
		MinContentChars: cfg.Assemble.MinContentChars,
		PastedThreshold: cfg.Assemble.PastedThresholdChars,
	})

	metrics := monitoring.NewRegistry()

	orch := chat.New(chat.Options{
		Gate:      gate,
		Quota:     ledger,
		Scraper:   scraper,
		PollOpts:  pollOptions(),
		Assembler: assembler,
		Router:    router,
		Profiles:  profiles,
		Cache:     st,
		CacheTTL:  time.Duration(cfg.Store.ScrapeCacheTTLHours) * time.Hour,
		Recorder:  metrics,
		Limits: chat.Limits{
			MaxMessageChars: cfg.Chat.MaxMessageChars,
			MaxHistory:      cfg.Chat.MaxHistory,
			MaxContextChars: cfg.Chat.MaxContextChars,
			DailyQuota:      cfg.Quota.DailyLimit,
		},
	})

	return &serviceEnv{
		Chat:    orch,
		Gate:    gate,
		Metrics: metrics,
		Store:   st,
		Redis:   rdb,
	}, nil
}

// initStore opens the scrape cache database named by the configured driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "concierge.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initProfiles builds the configured profile source wrapped in the TTL
// cache. It returns nil when profile grounding is switched off.
func initProfiles() (profile.Source, error) {
	ttl := time.Duration(cfg.Profile.CacheTTLMins) * time.Minute

	switch cfg.Profile.Source {
	case "off":
		zap.L().Warn("profile grounding disabled")
		return nil, nil
	case "file":
		return profile.NewCached(profile.NewFileSource(cfg.Profile.Path), ttl), nil
	case "notion":
		client := notion.NewClient(cfg.Profile.NotionToken)
		return profile.NewCached(profile.NewNotionSource(client, cfg.Profile.NotionPageID), ttl), nil
	default:
		return nil, eris.Errorf("unsupported profile source: %s", cfg.Profile.Source)
	}
}

// pollOptions builds the harvester poll schedule from config.
func pollOptions() []harvester.PollOption {
	return []harvester.PollOption{
		harvester.WithPollInterval(time.Duration(cfg.Harvester.PollInitialMS) * time.Millisecond),
		harvester.WithPollCap(time.Duration(cfg.Harvester.PollMaxMS) * time.Millisecond),
		harvester.WithPollFactor(cfg.Harvester.PollFactor),
		harvester.WithPollDeadline(time.Duration(cfg.Harvester.PollDeadlineSecs) * time.Second),
	}
}
