package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"perp-signal-agent/internal/bot"
	"perp-signal-agent/internal/config"
	"perp-signal-agent/internal/job"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubAgentDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("AGENT_CONFIG", "")
	if got := configPath(); got != "config.yaml" {
		t.Fatalf("expected default path, got %s", got)
	}
	t.Setenv("AGENT_CONFIG", "/etc/agent.yaml")
	if got := configPath(); got != "/etc/agent.yaml" {
		t.Fatalf("expected env path, got %s", got)
	}
}

func stubAgentDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origLoadSecrets := loadSecretsFunc
	origConnectRedis := connectRedisFunc
	origInitTracer := initTracerFunc
	origStartNotifier := startNotifierFunc
	origStartCycle := startCycleFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func(string) (*config.Config, error) {
		return &config.Config{
			Symbol:       "ETHUSDTM",
			BarTF:        "30m",
			LookbackBars: 50,
			HTTPAddr:     ":0",
		}, nil
	}
	loadSecretsFunc = func() *config.Secrets { return &config.Secrets{} }
	connectRedisFunc = func(context.Context, string) *redis.Client { return nil }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	startNotifierFunc = func(string, int64, bot.DecisionSource) *bot.Notifier { return nil }
	startCycleFunc = func(*job.CycleJob, context.Context) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		loadSecretsFunc = origLoadSecrets
		connectRedisFunc = origConnectRedis
		initTracerFunc = origInitTracer
		startNotifierFunc = origStartNotifier
		startCycleFunc = origStartCycle
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}
