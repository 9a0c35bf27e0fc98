package repository

import (
	"context"
	"errors"

	"github.com/croissant/croissant-api/internal/model"
	"gorm.io/gorm"
)

type InventoryRepository interface {
	ListByUser(ctx context.Context, uid string) ([]model.InventoryEntry, error)
	SumFungible(ctx context.Context, uid, itemID string, price *int64) (int, error)
	LockFungible(ctx context.Context, uid, itemID string, price *int64) ([]model.InventoryEntry, error)
	LockUnique(ctx context.Context, uid, itemID, uniqueID string) (*model.InventoryEntry, error)
	Create(ctx context.Context, e *model.InventoryEntry) error
	SetAmount(ctx context.Context, id uint64, amount int) error
	Delete(ctx context.Context, id uint64) error
	Credit(ctx context.Context, uid, itemID string, amount int, price *int64, sellable bool) error
	TransferUnique(ctx context.Context, fromUID, toUID, itemID, uniqueID string) (int64, error)
	WithTx(tx *gorm.DB) InventoryRepository
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) WithTx(tx *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: tx}
}

func (r *inventoryRepository) ListByUser(ctx context.Context, uid string) ([]model.InventoryEntry, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.InventoryEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND amount > 0", uid).
		Order("item_id ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *inventoryRepository) fungible(ctx context.Context, uid, itemID string, price *int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.InventoryEntry{}).
		Where("user_id = ? AND item_id = ? AND unique_id IS NULL AND amount > 0", uid, itemID).
		Scopes(priceScope("purchase_price", price))
}

func (r *inventoryRepository) SumFungible(ctx context.Context, uid, itemID string, price *int64) (int, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var total int64
	if err := r.fungible(ctx, uid, itemID, price).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// LockFungible returns the matching stacks, oldest first, locked for the transaction.
func (r *inventoryRepository) LockFungible(ctx context.Context, uid, itemID string, price *int64) ([]model.InventoryEntry, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.InventoryEntry
	if err := forUpdate(r.fungible(ctx, uid, itemID, price)).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *inventoryRepository) LockUnique(ctx context.Context, uid, itemID, uniqueID string) (*model.InventoryEntry, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var e model.InventoryEntry
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("user_id = ? AND item_id = ? AND unique_id = ?", uid, itemID, uniqueID).
		First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *inventoryRepository) Create(ctx context.Context, e *model.InventoryEntry) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *inventoryRepository) SetAmount(ctx context.Context, id uint64, amount int) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.InventoryEntry{}).
		Where("id = ?", id).
		Update("amount", amount).Error
}

func (r *inventoryRepository) Delete(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Delete(&model.InventoryEntry{}, id).Error
}

// Credit merges amount into the user's stack for (itemID, price, sellable), creating it if needed.
func (r *inventoryRepository) Credit(ctx context.Context, uid, itemID string, amount int, price *int64, sellable bool) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	var e model.InventoryEntry
	err := forUpdate(r.db.WithContext(ctx)).
		Where("user_id = ? AND item_id = ? AND unique_id IS NULL AND sellable = ?", uid, itemID, sellable).
		Scopes(priceScope("purchase_price", price)).
		Order("id ASC").
		First(&e).Error
	switch {
	case err == nil:
		return r.db.WithContext(ctx).
			Model(&model.InventoryEntry{}).
			Where("id = ?", e.ID).
			Update("amount", gorm.Expr("amount + ?", amount)).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(&model.InventoryEntry{
			UserID:        uid,
			ItemID:        itemID,
			Amount:        amount,
			PurchasePrice: price,
			Sellable:      sellable,
		}).Error
	default:
		return err
	}
}

// TransferUnique moves one unique unit between users and returns the rows affected.
func (r *inventoryRepository) TransferUnique(ctx context.Context, fromUID, toUID, itemID, uniqueID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.InventoryEntry{}).
		Where("user_id = ? AND item_id = ? AND unique_id = ?", fromUID, itemID, uniqueID).
		Update("user_id", toUID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
