package kucoin

import (
	"context"
	"fmt"
	"strconv"
)

// OrderRequest describes one futures order. Stop orders set Stop to "up"
// or "down" with the trigger in StopPrice.
type OrderRequest struct {
	Symbol     string
	Side       string // buy | sell
	Type       string // market | limit
	Size       float64
	Price      float64 // limit orders only
	Leverage   int
	ReduceOnly bool
	Stop       string // "" | up | down
	StopPrice  float64
	ClientOid  string
}

// PlaceOrder submits the order and returns the exchange order id.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (string, error) {
	_, span := c.tracer.Start(ctx, "kucoin.place-order")
	defer span.End()

	if order.Symbol == "" || order.Side == "" || order.Size <= 0 {
		return "", fmt.Errorf("invalid order request: %+v", order)
	}
	if order.Type == "" {
		order.Type = "market"
	}
	clientOid := order.ClientOid
	if clientOid == "" {
		clientOid = strconv.FormatInt(c.now().UnixNano(), 10)
	}

	body := map[string]any{
		"clientOid":  clientOid,
		"symbol":     order.Symbol,
		"side":       order.Side,
		"type":       order.Type,
		"size":       order.Size,
		"reduceOnly": order.ReduceOnly,
	}
	if order.Leverage > 0 {
		body["leverage"] = strconv.Itoa(order.Leverage)
	}
	if order.Type == "limit" {
		body["price"] = strconv.FormatFloat(order.Price, 'f', -1, 64)
	}
	if order.Stop != "" {
		body["stop"] = order.Stop
		body["stopPrice"] = strconv.FormatFloat(order.StopPrice, 'f', -1, 64)
		body["stopPriceType"] = "TP"
	}

	var data struct {
		OrderID string `json:"orderId"`
	}
	if err := c.doSigned(ctx, "POST", "/api/v1/orders", body, &data); err != nil {
		return "", fmt.Errorf("place %s %s order: %w", order.Side, order.Type, err)
	}
	return data.OrderID, nil
}
