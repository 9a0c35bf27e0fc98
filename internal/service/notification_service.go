package service

import (
	"context"
	"log"
	"time"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/repository"
	"github.com/croissant/croissant-api/internal/reqctx"
)

type NotificationService interface {
	Notify(ctx context.Context, userUID, typ, title, body string, tradeID *string)
	List(ctx context.Context, userUID string, f repository.NotificationFilter) ([]model.Notification, int64, error)
	// MarkRead marks the user's unread notifications as read; a non-empty tradeID limits it to that trade.
	MarkRead(ctx context.Context, userUID, tradeID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; failures are logged and never reach the caller.
func (s *notificationService) Notify(ctx context.Context, userUID, typ, title, body string, tradeID *string) {
	if userUID == "" || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	n := &model.Notification{
		UserUID: userUID,
		Type:    typ,
		Title:   title,
		Body:    body,
		TradeID: tradeID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("[trade] rid=%s stage=notify_fail user=%s type=%s err=%v", reqctx.RID(ctx), userUID, typ, err)
	}
}

func (s *notificationService) List(ctx context.Context, userUID string, f repository.NotificationFilter) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, f)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userUID, tradeID string) error {
	if userUID == "" {
		return nil
	}
	n, err := s.repo.MarkRead(ctx, userUID, tradeID)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[trade] rid=%s stage=notifications_read user=%s trade=%s count=%d", reqctx.RID(ctx), userUID, tradeID, n)
	}
	return nil
}

func stringPtr(v string) *string {
	return &v
}

// withShortDeadline bounds side work so it cannot stall the main flow.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
}
