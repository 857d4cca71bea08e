// Command api runs the chat routing HTTP service
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	chatapp "github.com/vitalroute/v1/internal/application/chat"
	dietplanapp "github.com/vitalroute/v1/internal/application/dietplan"
	healthapp "github.com/vitalroute/v1/internal/application/health"
	"github.com/vitalroute/v1/internal/infrastructure/ai"
	"github.com/vitalroute/v1/internal/infrastructure/ai/local"
	"github.com/vitalroute/v1/internal/infrastructure/ai/openai"
	"github.com/vitalroute/v1/internal/infrastructure/config"
	"github.com/vitalroute/v1/internal/infrastructure/http/server"
	"github.com/vitalroute/v1/internal/infrastructure/monitoring"
	"github.com/vitalroute/v1/internal/infrastructure/persistence/gormdb"
	"github.com/vitalroute/v1/internal/infrastructure/persistence/memory"
	redisrepo "github.com/vitalroute/v1/internal/infrastructure/persistence/redis"
	"github.com/vitalroute/v1/internal/infrastructure/retrieval"
	"github.com/vitalroute/v1/internal/ports/outbound"
	"github.com/vitalroute/v1/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting vitalroute",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// Cache: Redis when enabled, in-memory otherwise.
	var cache outbound.CacheRepository
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = redisrepo.NewCacheRepository(client, log)
	} else {
		cache = memory.NewCacheRepository()
	}

	// Durable stores.
	db, err := gormdb.NewDatabase(cfg.Database)
	if err != nil {
		return err
	}
	sessions := gormdb.NewSessionRepository(db)
	messages := gormdb.NewMessageRepository(db)
	profiles := gormdb.NewProfileRepository(db)
	planRepo := gormdb.NewDietPlanRepository(db)

	// Application services.
	profileService := healthapp.NewProfileService(profiles, healthapp.FreshnessWindows{
		Biomarker:     cfg.Chat.BiomarkerFreshness,
		Micronutrient: cfg.Chat.MicronutrientFreshness,
		Condition:     cfg.Chat.ConditionFreshness,
	}, log)

	planService := dietplanapp.NewPlanService(planRepo, profileService, log)

	smartCache := chatapp.NewSmartQueryCache(cache, cfg.Chat.SmartCacheTTL, log)
	profileService.AddListener(metricInvalidator{cache: smartCache})

	ledger := chatapp.NewUsageLedger(cache, cfg.Quota.DailyTokenLimit, log)
	router := chatapp.NewRoutingEngine(ledger, cfg.AI, log)

	knowledge := memory.NewKnowledgeRepository()
	if err := retrieval.SeedKnowledge(context.Background(), knowledge); err != nil {
		return err
	}

	snippets := retrieval.NewSnippetStore(cache, cfg.Retrieval.RecencyWindow, 50)
	retriever := chatapp.NewContextRetriever(
		[]outbound.ContextSource{
			retrieval.NewProfileSource(profiles),
			retrieval.NewHistorySource(sessions, messages, 20),
			retrieval.NewPlanSource(planRepo),
			retrieval.NewKnowledgeSource(knowledge),
			snippets,
		},
		cfg.Retrieval.ExcerptBudget,
		cfg.Retrieval.RecencyWindow,
		cfg.Retrieval.SourceTimeout,
		log,
	)

	registry := ai.NewRegistry(log)
	registry.Register(ai.NewRateLimitedProvider(openai.NewClient(cfg.AI, log), cfg.AI.L1.RequestsPerMinute, log))
	registry.Register(local.NewClient(log))

	chatService := chatapp.NewChatService(
		sessions, messages,
		chatapp.NewTextNormalizer(),
		chatapp.NewScopeClassifier(),
		smartCache,
		profileService,
		retriever,
		router,
		registry,
		planService,
		cfg.Chat.SessionTTL,
		chatapp.RetrievalOptions{
			MaxDocuments:       cfg.Retrieval.MaxDocuments,
			RelevanceThreshold: cfg.Retrieval.RelevanceThreshold,
		},
		log,
	)

	metrics := monitoring.NewMetrics()
	srv := server.New(cfg.Server, chatService, ledger, smartCache, planService, snippets, metrics, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// metricInvalidator bridges profile changes to smart-cache invalidation
type metricInvalidator struct {
	cache *chatapp.SmartQueryCache
}

func (m metricInvalidator) MetricChanged(ctx context.Context, userID uuid.UUID, metric string) {
	m.cache.InvalidateMetric(ctx, userID, metric)
}
