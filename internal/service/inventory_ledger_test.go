package service

import (
	"context"
	"errors"
	"testing"

	"github.com/croissant/croissant-api/internal/model"
)

func TestGrantMergesFungibleStacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, "alice", "gem", 2, nil)
	f.grant(t, "alice", "gem", 3, nil)
	f.grant(t, "alice", "gem", 4, int64Ptr(10))

	inv, err := f.ledger.Inventory(ctx, "alice")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(inv) != 2 {
		t.Fatalf("inventory has %d entries, want 2", len(inv))
	}
	if got := f.available(t, "alice", "gem", nil); got != 5 {
		t.Fatalf("plain gems = %d, want 5", got)
	}
	if got := f.available(t, "alice", "gem", int64Ptr(10)); got != 4 {
		t.Fatalf("priced gems = %d, want 4", got)
	}
	if inv[0].Item.Name != "Gem" {
		t.Fatalf("catalog join missing: %+v", inv[0].Item)
	}
}

func TestGrantUniqueUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	units, err := f.ledger.Grant(ctx, GrantRequest{
		UserID:     "alice",
		ItemID:     "hat",
		Amount:     3,
		Attributes: model.Attributes{"level": model.NumberAttr(2)},
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	seen := map[string]bool{}
	for _, u := range units {
		if u.Amount != 1 || !u.IsUnique() {
			t.Fatalf("unit = %+v", u)
		}
		if seen[*u.UniqueID] {
			t.Fatalf("duplicate unique id %s", *u.UniqueID)
		}
		seen[*u.UniqueID] = true
		if v, ok := u.Attrs.Data()["level"].Number(); !ok || v != 2 {
			t.Fatalf("attributes = %+v", u.Attrs.Data())
		}
	}
}

func TestGrantValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		req  GrantRequest
		want error
	}{
		{"zero amount", GrantRequest{UserID: "alice", ItemID: "gem"}, ErrInvalidArgument},
		{"missing user", GrantRequest{ItemID: "gem", Amount: 1}, ErrInvalidArgument},
		{"unknown item", GrantRequest{UserID: "alice", ItemID: "nothing", Amount: 1}, ErrNotFound},
		{"deleted item", GrantRequest{UserID: "alice", ItemID: "relic", Amount: 1}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.ledger.Grant(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, "alice", "gem", 2, nil)
	if _, err := f.ledger.Grant(ctx, GrantRequest{UserID: "alice", ItemID: "gem", Amount: 2, Sellable: true}); err != nil {
		t.Fatalf("grant sellable: %v", err)
	}

	if err := f.ledger.Consume(ctx, "alice", "gem", 5, nil); !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("over-consume err = %v, want ErrInsufficientQuantity", err)
	}
	if got := f.owned(t, "alice", "gem"); got != 4 {
		t.Fatalf("failed consume changed stock to %d", got)
	}
	if err := f.ledger.Consume(ctx, "alice", "gem", 3, nil); err != nil {
		t.Fatalf("consume across stacks: %v", err)
	}
	if got := f.owned(t, "alice", "gem"); got != 1 {
		t.Fatalf("owned = %d, want 1", got)
	}
	if err := f.ledger.Consume(ctx, "alice", "gem", 0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero consume err = %v, want ErrInvalidArgument", err)
	}
	if err := f.ledger.ConsumeUnique(ctx, "alice", "hat", "missing"); !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("consume missing unit err = %v, want ErrInsufficientQuantity", err)
	}
}

func TestTransferCarriesSellable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ledger.Grant(ctx, GrantRequest{UserID: "alice", ItemID: "gem", Amount: 2, Sellable: true}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	f.grant(t, "alice", "sword", 1, int64Ptr(7))
	trade := &model.Trade{
		ID:         "t-1",
		FromUserID: "alice",
		ToUserID:   "bob",
		Items: []model.TradeItem{
			{Side: model.TradeSideFrom, ItemID: "gem", Amount: 2},
			{Side: model.TradeSideFrom, ItemID: "sword", Amount: 1, PurchasePrice: int64Ptr(7)},
		},
	}
	if err := f.ledger.TransferOnCompletion(ctx, trade); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	var received []model.InventoryEntry
	if err := f.db.Where("user_id = ?", "bob").Order("item_id").Find(&received).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("bob has %+v", received)
	}
	for _, e := range received {
		if !e.Sellable {
			t.Errorf("%s arrived not sellable", e.ItemID)
		}
	}
	if !model.SamePrice(received[1].PurchasePrice, int64Ptr(7)) {
		t.Errorf("price tag lost: %+v", received[1])
	}
}

func TestInventoryHidesDeletedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, "alice", "gem", 1, nil)
	if err := f.db.Create(&model.InventoryEntry{UserID: "alice", ItemID: "relic", Amount: 1}).Error; err != nil {
		t.Fatalf("insert relic: %v", err)
	}
	inv, err := f.ledger.Inventory(ctx, "alice")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(inv) != 1 || inv[0].Entry.ItemID != "gem" {
		t.Fatalf("inventory = %+v", inv)
	}
}
