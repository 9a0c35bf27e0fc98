package repository

import (
	"context"

	"github.com/croissant/croissant-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepository interface {
	FindByID(ctx context.Context, itemID string) (*model.Item, error)
	FindByIDs(ctx context.Context, itemIDs []string) (map[string]model.Item, error)
	Upsert(ctx context.Context, item *model.Item) error
	Count(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) ItemRepository
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) WithTx(tx *gorm.DB) ItemRepository {
	return &itemRepository{db: tx}
}

// FindByID returns a live catalog item; deleted items are reported as not found.
func (r *itemRepository) FindByID(ctx context.Context, itemID string) (*model.Item, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var it model.Item
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND deleted = ?", itemID, false).
		First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// FindByIDs loads catalog rows keyed by item id, including deleted ones.
func (r *itemRepository) FindByIDs(ctx context.Context, itemIDs []string) (map[string]model.Item, error) {
	out := make(map[string]model.Item, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Item
	if err := r.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, it := range list {
		out[it.ItemID] = it
	}
	return out, nil
}

func (r *itemRepository) Upsert(ctx context.Context, item *model.Item) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "icon_hash", "price", "deleted", "updated_at"}),
	}).Create(item).Error
}

func (r *itemRepository) Count(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Item{}).Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
