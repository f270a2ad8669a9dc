package kucoin

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"perp-signal-agent/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const kucoinFuturesBaseURL = "https://api-futures.kucoin.com"

// Client talks to the KuCoin Futures REST API. Public market-data
// endpoints work without credentials; account and order endpoints require
// the v2 signed headers.
type Client struct {
	client     *http.Client
	baseURL    string
	key        string
	secret     string
	passphrase string
	tracer     trace.Tracer
	now        func() time.Time
}

func NewClient(key, secret, passphrase string, tracer trace.Tracer) *Client {
	return &Client{
		client:     &http.Client{Timeout: 15 * time.Second},
		baseURL:    kucoinFuturesBaseURL,
		key:        key,
		secret:     secret,
		passphrase: passphrase,
		tracer:     tracer,
		now:        time.Now,
	}
}

// FetchCandles returns up to limit candles of the given granularity (in
// minutes), oldest first.
func (c *Client) FetchCandles(ctx context.Context, symbol string, granularity, limit int) ([]domain.Candle, error) {
	_, span := c.tracer.Start(ctx, "kucoin.fetch-candles")
	defer span.End()

	if granularity <= 0 {
		granularity = 30
	}
	if limit <= 0 {
		limit = 200
	}
	to := c.now().UTC()
	from := to.Add(-time.Duration(limit*granularity) * time.Minute)

	endpoint := fmt.Sprintf("/api/v1/kline/query?symbol=%s&granularity=%d&from=%d&to=%d",
		symbol, granularity, from.UnixMilli(), to.UnixMilli())

	var rows [][]float64
	if err := c.doPublic(ctx, http.MethodGet, endpoint, &rows); err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		candles = append(candles, domain.Candle{
			Symbol:   symbol,
			OpenTime: time.UnixMilli(int64(row[0])).UTC(),
			Open:     row[1],
			High:     row[2],
			Low:      row[3],
			Close:    row[4],
			Volume:   row[5],
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}

// FetchLastPrice returns the latest trade price for the contract.
func (c *Client) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	_, span := c.tracer.Start(ctx, "kucoin.fetch-last-price")
	defer span.End()

	var data struct {
		Price string `json:"price"`
	}
	endpoint := "/api/v1/ticker?symbol=" + symbol
	if err := c.doPublic(ctx, http.MethodGet, endpoint, &data); err != nil {
		return 0, fmt.Errorf("fetch ticker for %s: %w", symbol, err)
	}
	price, err := strconv.ParseFloat(data.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", data.Price, err)
	}
	return price, nil
}

// FetchPositionQty returns the current position size in contracts;
// zero means flat.
func (c *Client) FetchPositionQty(ctx context.Context, symbol string) (float64, error) {
	_, span := c.tracer.Start(ctx, "kucoin.fetch-position")
	defer span.End()

	var data struct {
		CurrentQty float64 `json:"currentQty"`
	}
	endpoint := "/api/v1/position?symbol=" + symbol
	if err := c.doSigned(ctx, http.MethodGet, endpoint, nil, &data); err != nil {
		return 0, fmt.Errorf("fetch position for %s: %w", symbol, err)
	}
	return data.CurrentQty, nil
}

// UpdateMarginMode switches the contract between isolated and cross.
func (c *Client) UpdateMarginMode(ctx context.Context, symbol, mode string) error {
	_, span := c.tracer.Start(ctx, "kucoin.update-margin-mode")
	defer span.End()

	body := map[string]string{"symbol": symbol, "marginMode": mode}
	if err := c.doSigned(ctx, http.MethodPost, "/api/v2/position/changeMarginMode", body, nil); err != nil {
		return fmt.Errorf("change margin mode for %s: %w", symbol, err)
	}
	return nil
}

func (c *Client) doPublic(ctx context.Context, method, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.execute(req, out)
}

func (c *Client) doSigned(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.key == "" || c.secret == "" || c.passphrase == "" {
		return fmt.Errorf("exchange credentials not configured")
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	signPayload := timestamp + method + endpoint + string(payload)
	req.Header.Set("KC-API-KEY", c.key)
	req.Header.Set("KC-API-SIGN", c.sign(signPayload))
	req.Header.Set("KC-API-TIMESTAMP", timestamp)
	req.Header.Set("KC-API-PASSPHRASE", c.sign(c.passphrase))
	req.Header.Set("KC-API-KEY-VERSION", "2")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.execute(req, out)
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) execute(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kucoin API error %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode kucoin response: %w", err)
	}
	if envelope.Code != "200000" {
		return fmt.Errorf("kucoin error %s: %s", envelope.Code, envelope.Msg)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode kucoin data: %w", err)
		}
	}
	return nil
}
