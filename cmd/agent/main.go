package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"perp-signal-agent/internal/bot"
	"perp-signal-agent/internal/cache"
	"perp-signal-agent/internal/config"
	"perp-signal-agent/internal/exchange/kucoin"
	"perp-signal-agent/internal/handler"
	"perp-signal-agent/internal/job"
	"perp-signal-agent/internal/market"
	"perp-signal-agent/internal/news"
	"perp-signal-agent/internal/sentiment"
	"perp-signal-agent/internal/signal"
	"perp-signal-agent/internal/trade"
	"perp-signal-agent/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	loadSecretsFunc        = config.LoadSecrets
	connectRedisFunc       = cache.Connect
	initTracerFunc         = tracing.InitTracer
	startNotifierFunc      = bot.StartNotifier
	startCycleFunc         = func(j *job.CycleJob, ctx context.Context) { go j.Start(ctx) }
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func configPath() string {
	if p := os.Getenv("AGENT_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func main() {
	loadEnvFunc()

	cfg, err := loadConfigFunc(configPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	secrets := loadSecretsFunc()

	granularity, err := cfg.BarGranularity()
	if err != nil {
		log.Fatalf("invalid bar_tf: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	redisClient := connectRedisFunc(ctx, secrets.RedisURL)

	// Exchange and market data
	exchange := kucoin.NewClient(secrets.KuCoinKey, secrets.KuCoinSecret, secrets.KuCoinPassphrase, tracer)
	var marketRedis market.RedisClient
	if redisClient != nil {
		marketRedis = redisClient
	}
	candles := market.NewService(tracer, exchange, marketRedis)

	// News aggregation with provider fallback
	cryptoPanic := news.NewCryptoPanicProvider(secrets.CryptoPanicKey, tracer)
	newsAPI := news.NewNewsAPIProvider(secrets.NewsAPIKey, tracer)
	var preferred, secondary news.Source = cryptoPanic, newsAPI
	if cfg.News.Source == "newsapi" {
		preferred, secondary = newsAPI, cryptoPanic
	}
	aggregator := news.NewAggregator(tracer, preferred, secondary, news.Config{
		Currency:      cfg.News.Currency,
		LookbackHours: cfg.News.LookbackHours,
		MaxHeadlines:  cfg.News.MaxHeadlines,
		ExcludeStale:  cfg.News.ExcludeStale,
	})

	// Sentiment backend
	var scorer signal.SentimentScorer
	if cfg.Sentiment.Backend == "openai" {
		if s := sentiment.NewOpenAIScorer(secrets.OpenAIKey, cfg.Sentiment.Model, tracer); s != nil {
			scorer = s
		}
	} else {
		scorer = sentiment.NewFinBERTScorer(secrets.HuggingFaceToken, cfg.Sentiment.Model, tracer)
	}

	engine := signal.NewEngine(tracer, aggregator, scorer, signal.Config{
		HorizonBars: cfg.PredHorizonBars,
		Blend: signal.BlendConfig{
			PriceWeight:              cfg.BlendWeightPrice,
			NewsWeight:               cfg.BlendWeightNews,
			MinPriceModelProba:       cfg.MinPriceModelProba,
			MinNewsSentiment:         cfg.MinNewsSentiment,
			MaxNewsSentimentForShort: cfg.MaxNewsSentimentForShort,
		},
	})

	executor := trade.NewExecutor(tracer, exchange, trade.Config{
		Symbol:     cfg.Symbol,
		Leverage:   cfg.Leverage,
		MarginUSDT: cfg.MarginUSDT,
		MarginMode: cfg.MarginMode,
		EntryType:  cfg.EntryType,
		TPPercent:  cfg.TPPercent,
		SLPercent:  cfg.SLPercent,
		DryRun:     cfg.DryRun,
	})

	store := handler.NewDecisionStore()
	notifier := startNotifierFunc(secrets.TelegramToken, secrets.TelegramChatID, store)

	cycle := job.NewCycleJob(tracer, candles, engine, exchange, executor, notifier, store, job.CycleConfig{
		Symbol:       cfg.Symbol,
		Granularity:  granularity,
		LookbackBars: cfg.LookbackBars,
		Interval:     cfg.Interval(),
	})
	startCycleFunc(cycle, ctx)

	h := handler.New(tracer, store, cycle, secrets.HTTPAPIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("perp-signal-agent"))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down agent...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Agent exiting")
}
