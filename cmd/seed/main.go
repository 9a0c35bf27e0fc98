package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/croissant/croissant-api/internal/config"
	"github.com/croissant/croissant-api/internal/db"
	appmw "github.com/croissant/croissant-api/internal/middleware"
	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/repository"
	"github.com/croissant/croissant-api/internal/service"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type seedItem struct {
	ID          string
	Name        string
	Description string
	Price       int64
}

type seedGrant struct {
	ItemID   string
	Amount   int
	Price    *int64
	Sellable bool
	Attrs    model.Attributes
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, service.NewCatalogService(repository.NewItemRepository(gdb)))
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("items already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	users := seedUsers()
	items := buildSeedItems()

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := service.NewCatalogService(repository.NewItemRepository(tx))
		for _, it := range items {
			if _, err := catalog.Upsert(ctx, model.Item{
				ItemID:      it.ID,
				Name:        it.Name,
				Description: it.Description,
				Price:       it.Price,
			}); err != nil {
				return fmt.Errorf("upsert item %q: %w", it.ID, err)
			}
		}
		ledger := service.NewInventoryLedger(tx,
			repository.NewInventoryRepository(tx),
			repository.NewTradeRepository(tx),
			repository.NewItemRepository(tx),
		).WithTx(tx)
		for _, uid := range users {
			for _, g := range starterInventory() {
				if _, err := ledger.Grant(ctx, service.GrantRequest{
					UserID:        uid,
					ItemID:        g.ItemID,
					Amount:        g.Amount,
					PurchasePrice: g.Price,
					Sellable:      g.Sellable,
					Attributes:    g.Attrs,
				}); err != nil {
					return fmt.Errorf("grant %s to %s: %w", g.ItemID, uid, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("seeded %d items for %d users", len(items), len(users))

	if cfg.AuthMode == config.AuthModeJWT {
		signer, err := appmw.NewJWTVerifier(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			return fmt.Errorf("jwt signer: %w", err)
		}
		for _, uid := range users {
			token, err := signer.Sign(uid)
			if err != nil {
				return fmt.Errorf("sign %s: %w", uid, err)
			}
			fmt.Printf("%s\t%s\n", uid, token)
		}
	}
	return nil
}

func buildSeedItems() []seedItem {
	return []seedItem{
		{ID: "wood", Name: "Wood", Description: "Common building material.", Price: 5},
		{ID: "stone", Name: "Stone", Description: "Heavy and plentiful.", Price: 8},
		{ID: "iron_ingot", Name: "Iron Ingot", Description: "Smelted iron, ready for crafting.", Price: 40},
		{ID: "potion", Name: "Potion", Description: "Restores a little health.", Price: 25},
		{ID: "golden_croissant", Name: "Golden Croissant", Description: "A flaky collectible.", Price: 500},
		{ID: "enchanted_sword", Name: "Enchanted Sword", Description: "Each blade carries its own enchantment.", Price: 1200},
	}
}

func starterInventory() []seedGrant {
	bought := int64(20)
	return []seedGrant{
		{ItemID: "wood", Amount: 64},
		{ItemID: "stone", Amount: 32},
		{ItemID: "iron_ingot", Amount: 8},
		{ItemID: "potion", Amount: 3, Price: &bought, Sellable: true},
		{ItemID: "golden_croissant", Amount: 1},
		{ItemID: "enchanted_sword", Amount: 2, Attrs: model.Attributes{
			"enchant": model.StringAttr("fire"),
			"level":   model.NumberAttr(3),
		}},
	}
}

func seedUsers() []string {
	raw := os.Getenv("SEED_USERS")
	if raw == "" {
		raw = "alice,bob"
	}
	var out []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func shouldSeed(ctx context.Context, catalog service.CatalogService) (bool, error) {
	cnt, err := catalog.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
