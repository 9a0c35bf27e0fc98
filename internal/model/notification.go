package model

import "time"

const (
	NotificationTradeStarted   = "trade_started"
	NotificationTradeUpdated   = "trade_updated"
	NotificationTradeApproved  = "trade_approved"
	NotificationTradeCompleted = "trade_completed"
	NotificationTradeCanceled  = "trade_canceled"
)

type Notification struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	UserUID   string     `gorm:"column:user_uid;size:128;index;not null"`
	Type      string     `gorm:"column:type;size:64;not null"`
	Title     string     `gorm:"column:title;size:255"`
	Body      string     `gorm:"column:body;type:text"`
	TradeID   *string    `gorm:"column:trade_id;size:36;index"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
