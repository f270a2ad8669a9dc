package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the trading/signal document, loaded once at startup and
// immutable for the lifetime of the process. Changing it requires a
// restart.
type Config struct {
	Symbol     string  `yaml:"symbol"`
	Leverage   int     `yaml:"leverage"`
	MarginUSDT float64 `yaml:"margin_usdt"`
	MarginMode string  `yaml:"margin_mode"`
	EntryType  string  `yaml:"entry_type"`
	// TPPercent and SLPercent are percent units: 1.2 means 1.2%.
	TPPercent float64 `yaml:"tp_percent"`
	SLPercent float64 `yaml:"sl_percent"`
	DryRun    bool    `yaml:"dry_run"`

	IntervalMinutes int    `yaml:"interval_minutes"`
	BarTF           string `yaml:"bar_tf"`
	LookbackBars    int    `yaml:"lookback_bars"`

	PredHorizonBars          int     `yaml:"pred_horizon_bars"`
	MinPriceModelProba       float64 `yaml:"min_price_model_proba"`
	MinNewsSentiment         float64 `yaml:"min_news_sentiment"`
	MaxNewsSentimentForShort float64 `yaml:"max_news_sentiment_for_short"`
	BlendWeightPrice         float64 `yaml:"blend_weight_price"`
	BlendWeightNews          float64 `yaml:"blend_weight_news"`

	News      NewsConfig      `yaml:"news"`
	Sentiment SentimentConfig `yaml:"sentiment"`

	HTTPAddr string `yaml:"http_addr"`
}

type NewsConfig struct {
	Source        string `yaml:"source"`
	LookbackHours int    `yaml:"lookback_hours"`
	MaxHeadlines  int    `yaml:"max_headlines"`
	Currency      string `yaml:"currency"`
	ExcludeStale  bool   `yaml:"exclude_stale"`
}

type SentimentConfig struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = "ETHUSDTM"
	}
	if c.Leverage <= 0 {
		c.Leverage = 3
	}
	if c.MarginMode == "" {
		c.MarginMode = "isolated"
	}
	if c.EntryType == "" {
		c.EntryType = "market"
	}
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 30
	}
	if c.BarTF == "" {
		c.BarTF = "30m"
	}
	if c.LookbackBars <= 0 {
		c.LookbackBars = 200
	}
	if c.PredHorizonBars <= 0 {
		c.PredHorizonBars = 3
	}
	if c.MinPriceModelProba <= 0 {
		c.MinPriceModelProba = 0.55
	}
	if c.MinNewsSentiment == 0 {
		c.MinNewsSentiment = 0.10
	}
	if c.MaxNewsSentimentForShort == 0 {
		c.MaxNewsSentimentForShort = -0.10
	}
	if c.BlendWeightPrice == 0 && c.BlendWeightNews == 0 {
		c.BlendWeightPrice = 0.6
		c.BlendWeightNews = 0.4
	}
	if c.News.Source == "" {
		c.News.Source = "cryptopanic"
	}
	if c.News.LookbackHours <= 0 {
		c.News.LookbackHours = 6
	}
	if c.News.MaxHeadlines <= 0 {
		c.News.MaxHeadlines = 12
	}
	if c.News.Currency == "" {
		c.News.Currency = "ETH"
	}
	if c.Sentiment.Backend == "" {
		c.Sentiment.Backend = "finbert"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
}

func (c *Config) validate() error {
	if c.TPPercent < 0 || c.SLPercent < 0 {
		return fmt.Errorf("tp_percent/sl_percent must not be negative")
	}
	if c.SLPercent >= 100 {
		return fmt.Errorf("sl_percent %v must be below 100", c.SLPercent)
	}
	if c.MinPriceModelProba < 0.5 || c.MinPriceModelProba >= 1 {
		return fmt.Errorf("min_price_model_proba %v out of range [0.5, 1)", c.MinPriceModelProba)
	}
	if c.Sentiment.Backend != "finbert" && c.Sentiment.Backend != "openai" {
		return fmt.Errorf("unsupported sentiment backend %q", c.Sentiment.Backend)
	}
	if _, err := c.BarGranularity(); err != nil {
		return err
	}
	return nil
}

// BarGranularity converts bar_tf (e.g. "30m", "1h") to whole minutes.
func (c *Config) BarGranularity() (int, error) {
	tf := strings.ToLower(strings.TrimSpace(c.BarTF))
	d, err := time.ParseDuration(tf)
	if err != nil {
		return 0, fmt.Errorf("invalid bar_tf %q: %w", c.BarTF, err)
	}
	mins := int(d / time.Minute)
	if mins <= 0 || d%time.Minute != 0 {
		return 0, fmt.Errorf("bar_tf %q must be a whole number of minutes", c.BarTF)
	}
	return mins, nil
}

// Interval is the evaluation cycle period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Secrets holds every credential read from the environment. Core decision
// components never see this struct; it is handed to the collaborators at
// construction time.
type Secrets struct {
	KuCoinKey        string
	KuCoinSecret     string
	KuCoinPassphrase string
	CryptoPanicKey   string
	NewsAPIKey       string
	HuggingFaceToken string
	OpenAIKey        string
	TelegramToken    string
	TelegramChatID   int64
	RedisURL         string
	HTTPAPIKey       string
}

func LoadSecrets() *Secrets {
	s := &Secrets{
		KuCoinKey:        os.Getenv("KUCOIN_API_KEY"),
		KuCoinSecret:     os.Getenv("KUCOIN_API_SECRET"),
		KuCoinPassphrase: os.Getenv("KUCOIN_API_PASSPHRASE"),
		CryptoPanicKey:   os.Getenv("CRYPTOPANIC_API_KEY"),
		NewsAPIKey:       os.Getenv("NEWSAPI_KEY"),
		HuggingFaceToken: os.Getenv("HUGGINGFACE_API_TOKEN"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisURL:         os.Getenv("REDIS_URL"),
		HTTPAPIKey:       os.Getenv("AGENT_API_KEY"),
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.TelegramChatID = id
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID %q", v)
		}
	}

	if s.KuCoinKey == "" {
		log.Println("Warning: KUCOIN_API_KEY not set, exchange calls will fail")
	}
	if s.CryptoPanicKey == "" {
		log.Println("Warning: CRYPTOPANIC_API_KEY not set")
	}
	if s.HuggingFaceToken == "" {
		log.Println("Warning: HUGGINGFACE_API_TOKEN not set, sentiment will be neutral")
	}
	if s.TelegramToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	return s
}
