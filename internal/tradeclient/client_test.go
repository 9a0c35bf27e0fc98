package tradeclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestClientGetTrade(t *testing.T) {
	f := newFakeServer(t)
	c := f.client()

	got, err := c.GetTrade(context.Background(), "t1")
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if got.ID != "t1" || got.FromUserID != "alice" || got.ToUserID != "bob" {
		t.Fatalf("unexpected trade: %+v", got)
	}
	if auth := f.auth(); auth != "Bearer tok-alice" {
		t.Fatalf("authorization header = %q", auth)
	}
}

func TestClientAPIError(t *testing.T) {
	f := newFakeServer(t)
	c := f.client()

	_, err := c.GetTrade(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if err.Error() != "trade not found" {
		t.Fatalf("message not verbatim: %q", err.Error())
	}
}

func TestClientAddItemSendsPayload(t *testing.T) {
	f := newFakeServer(t)
	c := f.client()
	price := int64(30)

	got, err := c.AddItem(context.Background(), "t1", TradeItem{ItemID: "wood", Amount: 1, PurchasePrice: &price, Name: "ignored"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(got.FromUserItems) != 1 {
		t.Fatalf("expected one pledged item, got %d", len(got.FromUserItems))
	}
	sent := f.sentItem()
	if sent.ItemID != "wood" || sent.Amount != 1 || sent.PurchasePrice == nil || *sent.PurchasePrice != 30 {
		t.Fatalf("unexpected payload: %+v", sent)
	}
	if sent.Name != "" {
		t.Fatalf("display fields must not be sent, got name %q", sent.Name)
	}
}

func TestClientApproveNoContent(t *testing.T) {
	f := newFakeServer(t)
	f.noContent = true
	c := f.client()

	got, err := c.Approve(context.Background(), "t1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil trade on 204, got %+v", got)
	}
}

func TestClientInventoryDefaultsToMe(t *testing.T) {
	f := newFakeServer(t)
	c := f.client()

	inv, err := c.Inventory(context.Background(), "")
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if inv.UserID != "@me" || len(inv.Inventory) != 1 {
		t.Fatalf("unexpected inventory: %+v", inv)
	}
}
