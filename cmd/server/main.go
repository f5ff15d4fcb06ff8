package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/finadvisor-poc/server/internal/advisor"
	"github.com/finadvisor-poc/server/internal/advisor/goals"
	"github.com/finadvisor-poc/server/internal/advisor/tools"
	"github.com/finadvisor-poc/server/internal/classify"
	"github.com/finadvisor-poc/server/internal/core"
	"github.com/finadvisor-poc/server/internal/history"
	"github.com/finadvisor-poc/server/internal/llm"
	"github.com/finadvisor-poc/server/internal/market"
	"github.com/finadvisor-poc/server/internal/server"
	logx "github.com/finadvisor-poc/server/pkg/logger"
	pkgredis "github.com/finadvisor-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the advisor service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	HistoryBackend string `envconfig:"HISTORY_BACKEND" default:"memory"`
	HistoryTTL     string `envconfig:"HISTORY_TTL" default:"720h"`
	Redis          pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Classifier llm.ClassifierModelConfig
	Responder  llm.ResponderModelConfig

	// Conversational layer and collaborators
	Advisor advisor.Config
	Data    market.Config
	Insight market.InsightConfig
	Server  server.Config
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise history store")
	}

	models, err := llm.New(ctx, llm.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Classifier: cfg.Classifier,
		Responder:  cfg.Responder,
	}, tools.Infos())
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise chat models")
	}

	data := market.NewDataClient(cfg.Data)
	insight := market.NewInsightClient(cfg.Insight)

	classifier := classify.New(models.Classifier, store, classify.Config{
		Categories:      advisor.Categories(),
		SystemTemplate:  advisor.ClassifierTemplate(),
		MaxTurns:        cfg.Advisor.ClassifierMaxTurns,
		ScratchFallback: true,
		ModelName:       models.ClassifierName,
	})

	router, err := advisor.NewRouter(classifier, map[advisor.Category]advisor.Handler{
		advisor.CategoryPortfolioAnalysis:    advisor.NewAnalysisHandler(models, data, insight, cfg.Advisor),
		advisor.CategoryPortfolioRebalancing: advisor.NewRebalanceHandler(models, data, insight, cfg.Advisor),
		advisor.CategoryGoalPlanning:         goals.NewRouter(models, store, cfg.Advisor),
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build category router")
	}

	srv := server.New(cfg.Server, router, store, nil)
	if err := srv.Run(cfg.Server); err != nil {
		logx.Fatal().Err(err).Msg("Server stopped")
	}
}

// buildStore selects the history backend. Both behave identically from the
// caller's perspective; only persistence differs.
func buildStore(ctx context.Context, cfg AppConfig) (history.Store, error) {
	switch cfg.HistoryBackend {
	case "redis":
		ttl, err := time.ParseDuration(cfg.HistoryTTL)
		if err != nil {
			return nil, err
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, err
		}
		logx.Info().Str("backend", "redis").Dur("ttl", ttl).Msg("history store ready")
		return history.NewRedisStore(rdb, ttl), nil
	default:
		logx.Info().Str("backend", "memory").Msg("history store ready")
		return history.NewMemoryStore(), nil
	}
}
