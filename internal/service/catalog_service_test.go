package service

import (
	"context"
	"errors"
	"testing"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/repository"
)

func TestCatalogUpsert(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(repository.NewItemRepository(f.db))
	ctx := context.Background()

	cases := []struct {
		name string
		item model.Item
		want error
	}{
		{"ok", model.Item{ItemID: " potion ", Name: "Potion", Description: "heals", Price: 10}, nil},
		{"missing id", model.Item{Name: "x"}, ErrInvalidArgument},
		{"missing name", model.Item{ItemID: "x"}, ErrInvalidArgument},
		{"negative price", model.Item{ItemID: "x", Name: "x", Price: -1}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, tc.item)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := svc.Upsert(ctx, model.Item{ItemID: "potion", Name: "Big potion", Description: "heals more", Price: 12}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.Get(ctx, "potion")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Big potion" || got.Price != 12 {
		t.Fatalf("item = %+v", got)
	}
	if _, err := svc.Get(ctx, "relic"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted item err = %v, want ErrNotFound", err)
	}
}

func TestCatalogLookup(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(repository.NewItemRepository(f.db))
	got, err := svc.Lookup(context.Background(), []string{"gem", "gem", "", "nothing", "relic"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("lookup = %+v, want gem and relic", got)
	}
	if !got["relic"].Deleted || got["gem"].Name != "Gem" {
		t.Fatalf("lookup rows = %+v", got)
	}
}
