package repository

import (
	"context"
	"time"

	"github.com/croissant/croissant-api/internal/model"
	"gorm.io/gorm"
)

type TradeRepository interface {
	Create(ctx context.Context, t *model.Trade) error
	FindByID(ctx context.Context, id string) (*model.Trade, error)
	LockByID(ctx context.Context, id string) (*model.Trade, error)
	FindPendingBetween(ctx context.Context, a, b string) (*model.Trade, error)
	ListByUser(ctx context.Context, uid string) ([]model.Trade, error)
	UpdateState(ctx context.Context, t *model.Trade) error
	CreateItem(ctx context.Context, item *model.TradeItem) error
	UpdateItemAmount(ctx context.Context, id uint64, amount int) error
	DeleteItem(ctx context.Context, id uint64) error
	CommittedAmount(ctx context.Context, ownerUID, itemID string, price *int64) (int, error)
	IsUniqueCommitted(ctx context.Context, uniqueID string) (bool, error)
	WithTx(tx *gorm.DB) TradeRepository
}

type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) WithTx(tx *gorm.DB) TradeRepository {
	return &tradeRepository{db: tx}
}

func (r *tradeRepository) Create(ctx context.Context, t *model.Trade) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Omit("Items").Create(t).Error
}

func (r *tradeRepository) FindByID(ctx context.Context, id string) (*model.Trade, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var t model.Trade
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LockByID loads the trade holding a row lock for the rest of the transaction.
func (r *tradeRepository) LockByID(ctx context.Context, id string) (*model.Trade, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var t model.Trade
	if err := forUpdate(r.db.WithContext(ctx)).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tradeRepository) loadItems(ctx context.Context, t *model.Trade) error {
	return r.db.WithContext(ctx).
		Where("trade_id = ?", t.ID).
		Order("position ASC, id ASC").
		Find(&t.Items).Error
}

func (r *tradeRepository) FindPendingBetween(ctx context.Context, a, b string) (*model.Trade, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var t model.Trade
	if err := r.db.WithContext(ctx).
		Where("status = ?", model.TradeStatusPending).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).
		Order("created_at DESC").
		First(&t).Error; err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tradeRepository) ListByUser(ctx context.Context, uid string) ([]model.Trade, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Trade
	if err := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", uid, uid).
		Order("created_at DESC").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateState persists approvals, status and the pending pair marker.
func (r *tradeRepository) UpdateState(ctx context.Context, t *model.Trade) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	now := time.Now()
	if err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"approved_from_user": t.ApprovedFromUser,
			"approved_to_user":   t.ApprovedToUser,
			"status":             t.Status,
			"pending_pair":       t.PendingPair,
			"updated_at":         now,
		}).Error; err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

func (r *tradeRepository) CreateItem(ctx context.Context, item *model.TradeItem) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *tradeRepository) UpdateItemAmount(ctx context.Context, id uint64, amount int) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.TradeItem{}).
		Where("id = ?", id).
		Update("amount", amount).Error
}

func (r *tradeRepository) DeleteItem(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Delete(&model.TradeItem{}, id).Error
}

// CommittedAmount sums the fungible units ownerUID has pledged across all pending trades.
func (r *tradeRepository) CommittedAmount(ctx context.Context, ownerUID, itemID string, price *int64) (int, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.TradeItem{}).
		Joins("JOIN trades ON trades.id = trade_items.trade_id").
		Where("trades.status = ?", model.TradeStatusPending).
		Where("trade_items.owner_uid = ? AND trade_items.item_id = ? AND trade_items.unique_id IS NULL", ownerUID, itemID).
		Scopes(priceScope("trade_items.purchase_price", price)).
		Select("COALESCE(SUM(trade_items.amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// IsUniqueCommitted reports whether any pending trade already holds the unit.
func (r *tradeRepository) IsUniqueCommitted(ctx context.Context, uniqueID string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.TradeItem{}).
		Joins("JOIN trades ON trades.id = trade_items.trade_id").
		Where("trades.status = ? AND trade_items.unique_id = ?", model.TradeStatusPending, uniqueID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
