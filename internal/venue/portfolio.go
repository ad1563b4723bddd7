package venue

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// GetBalance fetches the account balance in cents.
func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	var resp BalanceResponse
	if err := c.get(ctx, "/portfolio/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return resp.Balance, nil
}

// CreateOrder submits a limit order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*APIOrder, error) {
	var resp OrderResponse
	if err := c.post(ctx, "/portfolio/orders", req, &resp); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &resp.Order, nil
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if err := c.del(ctx, "/portfolio/orders/"+orderID, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

// GetOrders fetches orders, optionally filtered by status.
func (c *Client) GetOrders(ctx context.Context, status string) ([]APIOrder, error) {
	var all []APIOrder
	cursor := ""

	for {
		query := url.Values{}
		query.Set("limit", "200")
		if status != "" {
			query.Set("status", status)
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp OrdersResponse
		if err := c.get(ctx, "/portfolio/orders", query, &resp); err != nil {
			return nil, fmt.Errorf("get orders: %w", err)
		}

		all = append(all, resp.Orders...)

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return all, nil
}

// GetPositions fetches current market positions.
func (c *Client) GetPositions(ctx context.Context) ([]APIPosition, error) {
	var all []APIPosition
	cursor := ""

	for {
		query := url.Values{}
		query.Set("limit", "200")
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp PositionsResponse
		if err := c.get(ctx, "/portfolio/positions", query, &resp); err != nil {
			return nil, fmt.Errorf("get positions: %w", err)
		}

		all = append(all, resp.MarketPositions...)

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return all, nil
}

// GetFills fetches executions at or after since.
func (c *Client) GetFills(ctx context.Context, since time.Time) ([]APIFill, error) {
	var all []APIFill
	cursor := ""

	for {
		query := url.Values{}
		query.Set("limit", "200")
		if !since.IsZero() {
			query.Set("min_ts", strconv.FormatInt(since.Unix(), 10))
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp FillsResponse
		if err := c.get(ctx, "/portfolio/fills", query, &resp); err != nil {
			return nil, fmt.Errorf("get fills: %w", err)
		}

		all = append(all, resp.Fills...)

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return all, nil
}
