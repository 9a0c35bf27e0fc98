package repository

import (
	"context"

	"github.com/croissant/croissant-api/internal/model"
	"gorm.io/gorm"
)

const (
	defaultNotificationPage = 20
	maxNotificationPage     = 50
)

// NotificationFilter narrows a user's feed. An empty TradeID matches every trade.
type NotificationFilter struct {
	UnreadOnly bool
	TradeID    string
	Limit      int
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userUID string, f NotificationFilter) ([]model.Notification, error)
	MarkRead(ctx context.Context, userUID, tradeID string) (int64, error)
	CountUnread(ctx context.Context, userUID string) (int64, error)
	WithTx(tx *gorm.DB) NotificationRepository
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{db: tx}
}

func (r *notificationRepository) feed(ctx context.Context, userUID, tradeID string, unreadOnly bool) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_uid = ?", userUID)
	if tradeID != "" {
		q = q.Where("trade_id = ?", tradeID)
	}
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	return q
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser returns newest first; Limit defaults to 20 and is capped at 50.
func (r *notificationRepository) ListByUser(ctx context.Context, userUID string, f NotificationFilter) ([]model.Notification, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultNotificationPage
	}
	if limit > maxNotificationPage {
		limit = maxNotificationPage
	}
	var list []model.Notification
	err := r.feed(ctx, userUID, f.TradeID, f.UnreadOnly).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// MarkRead stamps read_at on unread notifications, optionally only those about tradeID.
func (r *notificationRepository) MarkRead(ctx context.Context, userUID, tradeID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.feed(ctx, userUID, tradeID, true).Update("read_at", r.db.NowFunc())
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userUID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.feed(ctx, userUID, "", true).Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
