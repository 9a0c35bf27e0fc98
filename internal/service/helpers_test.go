package service

import (
	"context"
	"testing"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/repository"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db       *gorm.DB
	ledger   InventoryLedger
	trades   TradeService
	notes    NotificationService
	tradeRep repository.TradeRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&model.Item{}, &model.InventoryEntry{}, &model.Trade{}, &model.TradeItem{}, &model.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tradeRepo := repository.NewTradeRepository(db)
	itemRepo := repository.NewItemRepository(db)
	invRepo := repository.NewInventoryRepository(db)
	notes := NewNotificationService(repository.NewNotificationRepository(db))
	ledger := NewInventoryLedger(db, invRepo, tradeRepo, itemRepo)
	f := &fixture{
		db:       db,
		ledger:   ledger,
		notes:    notes,
		tradeRep: tradeRepo,
		trades:   NewTradeService(repository.NewTransactor(db), tradeRepo, itemRepo, ledger, notes),
	}
	for _, it := range []model.Item{
		{ItemID: "sword", Name: "Sword", Description: "sharp"},
		{ItemID: "gem", Name: "Gem", Description: "shiny"},
		{ItemID: "hat", Name: "Hat", Description: "unique hat"},
		{ItemID: "relic", Name: "Relic", Description: "gone", Deleted: true},
	} {
		it := it
		if err := itemRepo.Upsert(context.Background(), &it); err != nil {
			t.Fatalf("seed item %s: %v", it.ItemID, err)
		}
	}
	return f
}

func (f *fixture) grant(t *testing.T, uid, itemID string, amount int, price *int64) {
	t.Helper()
	if _, err := f.ledger.Grant(context.Background(), GrantRequest{UserID: uid, ItemID: itemID, Amount: amount, PurchasePrice: price}); err != nil {
		t.Fatalf("grant %s to %s: %v", itemID, uid, err)
	}
}

func (f *fixture) grantUnique(t *testing.T, uid, itemID string) string {
	t.Helper()
	units, err := f.ledger.Grant(context.Background(), GrantRequest{
		UserID:     uid,
		ItemID:     itemID,
		Amount:     1,
		Attributes: model.Attributes{"color": model.StringAttr("red")},
	})
	if err != nil {
		t.Fatalf("grant unique %s to %s: %v", itemID, uid, err)
	}
	if len(units) != 1 || units[0].UniqueID == nil {
		t.Fatalf("grant unique returned %+v", units)
	}
	return *units[0].UniqueID
}

func (f *fixture) start(t *testing.T, a, b string) *model.Trade {
	t.Helper()
	tr, err := f.trades.StartOrResume(context.Background(), a, b)
	if err != nil {
		t.Fatalf("start trade %s/%s: %v", a, b, err)
	}
	return tr
}

func (f *fixture) available(t *testing.T, uid, itemID string, price *int64) int {
	t.Helper()
	n, err := f.ledger.AvailableQuantity(context.Background(), uid, itemID, price)
	if err != nil {
		t.Fatalf("available %s/%s: %v", uid, itemID, err)
	}
	return n
}

func (f *fixture) owned(t *testing.T, uid, itemID string) int {
	t.Helper()
	var total int64
	if err := f.db.Model(&model.InventoryEntry{}).
		Where("user_id = ? AND item_id = ?", uid, itemID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		t.Fatalf("owned %s/%s: %v", uid, itemID, err)
	}
	return int(total)
}

func fungible(itemID string, amount int) model.TradeItem {
	return model.NewTradeItem(itemID, amount, model.Metadata{}, nil)
}

func priced(itemID string, amount int, price int64) model.TradeItem {
	return model.NewTradeItem(itemID, amount, model.Metadata{}, &price)
}

func unique(itemID, uniqueID string) model.TradeItem {
	return model.NewTradeItem(itemID, 1, model.Metadata{UniqueID: &uniqueID}, nil)
}

func int64Ptr(v int64) *int64 { return &v }
