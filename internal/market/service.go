package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"perp-signal-agent/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const candleCacheTTL = 60 * time.Second

// CandleProvider is the exchange-side market data feed.
type CandleProvider interface {
	FetchCandles(ctx context.Context, symbol string, granularity, limit int) ([]domain.Candle, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Service layers a short-TTL Redis cache over the candle feed so a
// restart inside one bar interval does not hammer the exchange. The
// cache is optional; with a nil client every call goes to the feed.
type Service struct {
	tracer   trace.Tracer
	provider CandleProvider
	redis    RedisClient
}

func NewService(tracer trace.Tracer, provider CandleProvider, redisClient RedisClient) *Service {
	return &Service{tracer: tracer, provider: provider, redis: redisClient}
}

func (s *Service) Candles(ctx context.Context, symbol string, granularity, limit int) ([]domain.Candle, error) {
	_, span := s.tracer.Start(ctx, "market.candles")
	defer span.End()

	key := candleCacheKey(symbol, granularity, limit)
	if s.redis != nil {
		if cached := s.readCache(ctx, key); cached != nil {
			return cached, nil
		}
	}

	candles, err := s.provider.FetchCandles(ctx, symbol, granularity, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", symbol)
	}

	if s.redis != nil {
		s.writeCache(ctx, key, candles)
	}
	return candles, nil
}

func (s *Service) readCache(ctx context.Context, key string) []domain.Candle {
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("candle cache read error: %v", err)
		}
		return nil
	}
	var candles []domain.Candle
	if err := json.Unmarshal([]byte(raw), &candles); err != nil {
		log.Printf("candle cache decode error: %v", err)
		return nil
	}
	return candles
}

func (s *Service) writeCache(ctx context.Context, key string, candles []domain.Candle) {
	raw, err := json.Marshal(candles)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, candleCacheTTL).Err(); err != nil {
		log.Printf("candle cache write error: %v", err)
	}
}

func candleCacheKey(symbol string, granularity, limit int) string {
	return fmt.Sprintf("candles:%s:%d:%d", symbol, granularity, limit)
}
