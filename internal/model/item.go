package model

import "time"

// Item is a catalog definition. Inventories and trades reference it by ItemID.
type Item struct {
	ItemID      string    `gorm:"column:item_id;primaryKey;size:64"`
	Name        string    `gorm:"size:120;not null"`
	Description string    `gorm:"type:text;not null"`
	IconHash    *string   `gorm:"column:icon_hash;size:128"`
	Price       int64     `gorm:"not null;default:0"`
	Deleted     bool      `gorm:"not null;default:false;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Item) TableName() string {
	return "items"
}
