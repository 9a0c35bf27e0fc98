package model

import (
	"time"

	"gorm.io/datatypes"
)

// InventoryEntry is one owned stack (UniqueID nil) or one unique unit (Amount 1).
type InventoryEntry struct {
	ID            uint64                          `gorm:"primaryKey;autoIncrement"`
	UserID        string                          `gorm:"column:user_id;size:128;index:idx_inventories_user_item;not null"`
	ItemID        string                          `gorm:"column:item_id;size:64;index:idx_inventories_user_item;not null"`
	Amount        int                             `gorm:"column:amount;not null"`
	UniqueID      *string                         `gorm:"column:unique_id;size:64;uniqueIndex"`
	PurchasePrice *int64                          `gorm:"column:purchase_price"`
	Sellable      bool                            `gorm:"column:sellable;not null;default:false"`
	Attrs         datatypes.JSONType[Attributes] `gorm:"column:attributes"`
	CreatedAt     time.Time                       `gorm:"autoCreateTime"`
	UpdatedAt     time.Time                       `gorm:"autoUpdateTime"`
}

func (InventoryEntry) TableName() string {
	return "inventories"
}

func (e InventoryEntry) IsUnique() bool {
	return e.UniqueID != nil && *e.UniqueID != ""
}

func (e InventoryEntry) Metadata() Metadata {
	return Metadata{UniqueID: e.UniqueID, Attributes: e.Attrs.Data()}
}
