package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"prestige/internal/ai"
	"prestige/internal/backend"
	"prestige/internal/config"
	httptransport "prestige/internal/http"
	"prestige/internal/http/handlers"
	"prestige/internal/http/middleware"
	"prestige/internal/infra"
	"prestige/internal/modules/chat"
	"prestige/internal/modules/session"
	"prestige/internal/modules/usage"
	"prestige/internal/speech"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, closeCompleter, err := newCompleter(ctx, cfg.AI)
	if err != nil {
		return err
	}
	defer closeCompleter()

	client := backend.NewClient(backend.Config{
		BaseURL:  cfg.Upstream.BaseURL,
		Timeout:  cfg.Upstream.Timeout,
		PageSize: cfg.Upstream.PageSize,
		MaxPages: cfg.Upstream.MaxPages,
	})

	var store session.Store
	if cfg.Redis.Addr != "" {
		rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, "")
	}

	loader := chat.NewWorldLoader(client, chat.LoaderOptions{
		Store:        store,
		StoreTTL:     cfg.Session.TTL,
		ContextLimit: cfg.AI.ContextLimit,
	})
	cache := session.NewCache(loader, session.Options{
		TTL:            cfg.Session.TTL,
		HistoryPairs:   cfg.Session.HistoryPairs,
		MaxEntries:     cfg.Session.MaxEntries,
		RefreshTimeout: cfg.Session.RefreshTimeout,
	})
	sweeper := session.NewSweeper(cache, cfg.Session.Idle)
	if err := sweeper.Start(cfg.Session.SweepSchedule); err != nil {
		return err
	}
	defer sweeper.Stop()

	deps := chat.Deps{
		Cache:     cache,
		Completer: completer,
		Speech: speech.NewElevenLabs(speech.Config{
			APIKey:  cfg.Speech.APIKey,
			VoiceID: cfg.Speech.VoiceID,
			ModelID: cfg.Speech.ModelID,
			Timeout: cfg.Speech.Timeout,
		}),
	}
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		deps.Quota = usage.NewService(usage.NewStore(pool, cfg.DB.MonthlyTokens))
	}

	svc := chat.NewService(deps, chat.Config{
		IncludeRole:       cfg.AI.IncludeRole,
		Location:          cfg.Location,
		CompletionTimeout: cfg.AI.Timeout,
		SpeechTimeout:     cfg.Speech.Timeout,
	})

	decoder := infra.NewJWTDecoder(cfg.HTTP.JWTSecret)
	if !decoder.Verifying() {
		log.Printf("PRESTIGE_JWT_SECRET not set; bearer tokens are decoded without signature checks")
	}

	api := httptransport.NewServer(httptransport.ServerDeps{
		Chat:    svc,
		Decoder: decoder,
		Limiter: middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		Info: handlers.Info{
			Provider: cfg.AI.Provider,
			Model:    modelName(cfg.AI),
			APIBase:  client.BaseURL(),
		},
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("prestige-api listening on %s (provider=%s upstream=%s)", cfg.HTTP.Addr, cfg.AI.Provider, client.BaseURL())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newCompleter returns a nil Completer when no key is configured; chat
// turns then fail with "AI key not configured." while ping keeps working.
func newCompleter(ctx context.Context, cfg config.AIConfig) (ai.Completer, func(), error) {
	noop := func() {}
	if cfg.Key() == "" {
		log.Printf("no API key for provider %s; chat is disabled", cfg.Provider)
		return nil, noop, nil
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		p, err := ai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	default:
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("init gemini: %w", err)
		}
		return p, p.Close, nil
	}
}

func modelName(cfg config.AIConfig) string {
	if cfg.Provider == config.ProviderOpenAI {
		return cfg.OpenAIModel
	}
	return cfg.GeminiModel
}
