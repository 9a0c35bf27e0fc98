// Package tradeclient drives one trade from a participant's point of view over the HTTP API.
package tradeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/google/uuid"
)

const DefaultBaseURL = "http://localhost:8080/api"

type TradeItem struct {
	ItemID        string          `json:"itemId"`
	Amount        int             `json:"amount"`
	Metadata      *model.Metadata `json:"metadata,omitempty"`
	PurchasePrice *int64          `json:"purchasePrice,omitempty"`
	Name          string          `json:"name,omitempty"`
	Description   string          `json:"description,omitempty"`
	IconHash      *string         `json:"iconHash,omitempty"`
}

func (it TradeItem) UniqueID() string {
	if it.Metadata == nil || it.Metadata.UniqueID == nil {
		return ""
	}
	return *it.Metadata.UniqueID
}

type Trade struct {
	ID               string            `json:"id"`
	FromUserID       string            `json:"fromUserId"`
	ToUserID         string            `json:"toUserId"`
	FromUserItems    []TradeItem       `json:"fromUserItems"`
	ToUserItems      []TradeItem       `json:"toUserItems"`
	ApprovedFromUser bool              `json:"approvedFromUser"`
	ApprovedToUser   bool              `json:"approvedToUser"`
	Status           model.TradeStatus `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// ItemsOf returns the side offered by userID, or nil for a non-participant.
func (t *Trade) ItemsOf(userID string) []TradeItem {
	switch userID {
	case t.FromUserID:
		return t.FromUserItems
	case t.ToUserID:
		return t.ToUserItems
	}
	return nil
}

type InventoryEntry struct {
	ItemID        string          `json:"itemId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	IconHash      *string         `json:"iconHash,omitempty"`
	Price         int64           `json:"price"`
	Amount        int             `json:"amount"`
	Metadata      *model.Metadata `json:"metadata,omitempty"`
	PurchasePrice *int64          `json:"purchasePrice,omitempty"`
	Sellable      bool            `json:"sellable"`
}

func (e InventoryEntry) UniqueID() string {
	if e.Metadata == nil || e.Metadata.UniqueID == nil {
		return ""
	}
	return *e.Metadata.UniqueID
}

type Inventory struct {
	UserID    string           `json:"userId"`
	Inventory []InventoryEntry `json:"inventory"`
}

// APIError is a non-2xx response. Error returns the server message verbatim.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type tradeItemRequest struct {
	TradeItem TradeItem `json:"tradeItem"`
}

func (c *Client) GetTrade(ctx context.Context, tradeID string) (*Trade, error) {
	var t Trade
	if err := c.do(ctx, http.MethodGet, "/trades/"+url.PathEscape(tradeID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) StartOrLatest(ctx context.Context, counterpartyID string) (*Trade, error) {
	var t Trade
	if err := c.do(ctx, http.MethodPost, "/trades/start-or-latest/"+url.PathEscape(counterpartyID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) AddItem(ctx context.Context, tradeID string, item TradeItem) (*Trade, error) {
	return c.mutateItem(ctx, tradeID, "add-item", item)
}

func (c *Client) RemoveItem(ctx context.Context, tradeID string, item TradeItem) (*Trade, error) {
	return c.mutateItem(ctx, tradeID, "remove-item", item)
}

func (c *Client) mutateItem(ctx context.Context, tradeID, action string, item TradeItem) (*Trade, error) {
	body := tradeItemRequest{TradeItem: TradeItem{
		ItemID:        item.ItemID,
		Amount:        item.Amount,
		Metadata:      item.Metadata,
		PurchasePrice: item.PurchasePrice,
	}}
	var t Trade
	if err := c.do(ctx, http.MethodPost, "/trades/"+url.PathEscape(tradeID)+"/"+action, body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Approve and Cancel accept either the updated trade or an empty 204 response; the trade is nil in the latter case.
func (c *Client) Approve(ctx context.Context, tradeID string) (*Trade, error) {
	return c.transition(ctx, tradeID, "approve")
}

func (c *Client) Cancel(ctx context.Context, tradeID string) (*Trade, error) {
	return c.transition(ctx, tradeID, "cancel")
}

func (c *Client) transition(ctx context.Context, tradeID, action string) (*Trade, error) {
	var t Trade
	if err := c.do(ctx, http.MethodPut, "/trades/"+url.PathEscape(tradeID)+"/"+action, nil, &t); err != nil {
		return nil, err
	}
	if t.ID == "" {
		return nil, nil
	}
	return &t, nil
}

// Inventory lists userID's inventory; "@me" or "" lists the caller's own.
func (c *Client) Inventory(ctx context.Context, userID string) (*Inventory, error) {
	if userID == "" {
		userID = "@me"
	}
	var inv Inventory
	if err := c.do(ctx, http.MethodGet, "/inventory/"+url.PathEscape(userID), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Available asks the server how many units userID can still pledge.
func (c *Client) Available(ctx context.Context, userID, itemID string, purchasePrice *int64, uniqueID string) (int, error) {
	q := url.Values{}
	if purchasePrice != nil {
		q.Set("purchasePrice", strconv.FormatInt(*purchasePrice, 10))
	}
	if uniqueID != "" {
		q.Set("uniqueId", uniqueID)
	}
	path := "/inventory/" + url.PathEscape(userID) + "/items/" + url.PathEscape(itemID) + "/available"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Available int `json:"available"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Available, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
