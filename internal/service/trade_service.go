package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/repository"
	"github.com/croissant/croissant-api/internal/reqctx"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TradeService interface {
	StartOrResume(ctx context.Context, requesterID, counterpartyID string) (*model.Trade, error)
	Get(ctx context.Context, tradeID, requesterID string) (*model.Trade, error)
	ListByUser(ctx context.Context, userID, requesterID string) ([]model.Trade, error)
	// AddItem pledges item on the requester's side. A non-empty side must be the requester's own.
	AddItem(ctx context.Context, tradeID, requesterID string, item model.TradeItem, side model.TradeSide) (*model.Trade, error)
	RemoveItem(ctx context.Context, tradeID, requesterID string, item model.TradeItem, side model.TradeSide) (*model.Trade, error)
	Approve(ctx context.Context, tradeID, requesterID string) (*model.Trade, error)
	Cancel(ctx context.Context, tradeID, requesterID string) (*model.Trade, error)
}

type tradeService struct {
	tx       repository.Transactor
	trades   repository.TradeRepository
	items    repository.ItemRepository
	ledger   InventoryLedger
	notifier NotificationService
}

func NewTradeService(tx repository.Transactor, trades repository.TradeRepository, items repository.ItemRepository, ledger InventoryLedger, notifier NotificationService) TradeService {
	return &tradeService{tx: tx, trades: trades, items: items, ledger: ledger, notifier: notifier}
}

func (s *tradeService) StartOrResume(ctx context.Context, requesterID, counterpartyID string) (*model.Trade, error) {
	if requesterID == "" || counterpartyID == "" {
		return nil, fmt.Errorf("both users are required: %w", ErrInvalidArgument)
	}
	if requesterID == counterpartyID {
		return nil, fmt.Errorf("cannot trade with yourself: %w", ErrInvalidArgument)
	}
	existing, err := s.trades.FindPendingBetween(ctx, requesterID, counterpartyID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pair := model.PairKey(requesterID, counterpartyID)
	t := &model.Trade{
		ID:          uuid.NewString(),
		FromUserID:  requesterID,
		ToUserID:    counterpartyID,
		PendingPair: &pair,
		Status:      model.TradeStatusPending,
	}
	if err := s.trades.Create(ctx, t); err != nil {
		// a concurrent start for the same pair won the unique pending_pair slot
		if winner, ferr := s.trades.FindPendingBetween(ctx, requesterID, counterpartyID); ferr == nil {
			return winner, nil
		}
		return nil, err
	}
	log.Printf("[trade] rid=%s trade=%s stage=start from=%s to=%s", reqctx.RID(ctx), t.ID, requesterID, counterpartyID)
	s.notifier.Notify(ctx, counterpartyID, model.NotificationTradeStarted, "New trade", requesterID+" wants to trade with you", stringPtr(t.ID))
	t.Items = []model.TradeItem{}
	return t, nil
}

func (s *tradeService) Get(ctx context.Context, tradeID, requesterID string) (*model.Trade, error) {
	t, err := s.trades.FindByID(ctx, tradeID)
	if err != nil {
		return nil, notFound(err)
	}
	if !t.IsParticipant(requesterID) {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *tradeService) ListByUser(ctx context.Context, userID, requesterID string) ([]model.Trade, error) {
	if userID == "" || userID != requesterID {
		return nil, ErrForbidden
	}
	return s.trades.ListByUser(ctx, userID)
}

// mutation runs inside the transaction holding the trade row lock.
type mutation func(tx *gorm.DB, repo repository.TradeRepository, t *model.Trade) error

// mutate locks a pending trade the requester takes part in, applies fn and returns the trade as committed.
func (s *tradeService) mutate(ctx context.Context, stage, tradeID, requesterID string, fn mutation) (*model.Trade, error) {
	var out *model.Trade
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		repo := s.trades.WithTx(tx)
		t, err := repo.LockByID(ctx, tradeID)
		if err != nil {
			return notFound(err)
		}
		if !t.IsParticipant(requesterID) {
			return ErrForbidden
		}
		if t.Status != model.TradeStatusPending {
			return fmt.Errorf("trade is %s: %w", t.Status, ErrInvalidState)
		}
		if err := fn(tx, repo, t); err != nil {
			return err
		}
		out, err = repo.FindByID(ctx, tradeID)
		return err
	})
	if err != nil {
		log.Printf("[trade] rid=%s trade=%s stage=%s_fail user=%s err=%v", reqctx.RID(ctx), tradeID, stage, requesterID, err)
		return nil, err
	}
	log.Printf("[trade] rid=%s trade=%s stage=%s_done user=%s status=%s", reqctx.RID(ctx), tradeID, stage, requesterID, out.Status)
	return out, nil
}

// ownSide resolves the side the requester may edit.
func ownSide(t *model.Trade, requesterID string, side model.TradeSide) (model.TradeSide, error) {
	mine, _ := t.SideOf(requesterID)
	if side != "" && side != mine {
		return "", fmt.Errorf("cannot edit the %s side: %w", side, ErrForbidden)
	}
	return mine, nil
}

func findPledge(items []model.TradeItem, want model.TradeItem) (model.TradeItem, bool) {
	for _, it := range items {
		if it.Matches(want) {
			return it, true
		}
	}
	return model.TradeItem{}, false
}

func nextPosition(t *model.Trade) int {
	pos := 0
	for _, it := range t.Items {
		if it.Position >= pos {
			pos = it.Position + 1
		}
	}
	return pos
}

func (s *tradeService) AddItem(ctx context.Context, tradeID, requesterID string, item model.TradeItem, side model.TradeSide) (*model.Trade, error) {
	if item.ItemID == "" || item.Amount < 1 {
		return nil, fmt.Errorf("item id and a positive amount are required: %w", ErrInvalidArgument)
	}
	if item.IsUnique() && item.Amount != 1 {
		return nil, fmt.Errorf("unique units are pledged one at a time: %w", ErrInvalidArgument)
	}
	out, err := s.mutate(ctx, "add_item", tradeID, requesterID, func(tx *gorm.DB, repo repository.TradeRepository, t *model.Trade) error {
		mine, err := ownSide(t, requesterID, side)
		if err != nil {
			return err
		}
		if _, err := s.items.WithTx(tx).FindByID(ctx, item.ItemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("item %s: %w", item.ItemID, ErrNotFound)
			}
			return err
		}
		ledger := s.ledger.WithTx(tx)
		if item.IsUnique() {
			ok, err := ledger.IsUniqueUnitAvailable(ctx, requesterID, item.ItemID, *item.UniqueID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unit %s is not available: %w", *item.UniqueID, ErrInsufficientQuantity)
			}
		} else {
			avail, err := ledger.AvailableQuantity(ctx, requesterID, item.ItemID, item.PurchasePrice)
			if err != nil {
				return err
			}
			if avail < item.Amount {
				return fmt.Errorf("%d of %s available, %d requested: %w", avail, item.ItemID, item.Amount, ErrInsufficientQuantity)
			}
		}

		if existing, ok := findPledge(t.ItemsOf(mine), item); ok && !item.IsUnique() {
			if err := repo.UpdateItemAmount(ctx, existing.ID, existing.Amount+item.Amount); err != nil {
				return err
			}
		} else {
			pledge := item
			pledge.ID = 0
			pledge.TradeID = t.ID
			pledge.Side = mine
			pledge.OwnerUID = requesterID
			pledge.Position = nextPosition(t)
			if err := repo.CreateItem(ctx, &pledge); err != nil {
				return err
			}
		}
		t.ResetApprovals()
		return repo.UpdateState(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, out.Counterparty(requesterID), model.NotificationTradeUpdated, "Trade updated", requesterID+" added an item", stringPtr(out.ID))
	return out, nil
}

func (s *tradeService) RemoveItem(ctx context.Context, tradeID, requesterID string, item model.TradeItem, side model.TradeSide) (*model.Trade, error) {
	if item.ItemID == "" {
		return nil, fmt.Errorf("item id is required: %w", ErrInvalidArgument)
	}
	amount := item.Amount
	if amount < 1 {
		amount = 1
	}
	out, err := s.mutate(ctx, "remove_item", tradeID, requesterID, func(tx *gorm.DB, repo repository.TradeRepository, t *model.Trade) error {
		mine, err := ownSide(t, requesterID, side)
		if err != nil {
			return err
		}
		existing, ok := findPledge(t.ItemsOf(mine), item)
		if !ok {
			return fmt.Errorf("item %s is not in the trade: %w", item.ItemID, ErrNotFound)
		}
		switch {
		case existing.IsUnique() || existing.Amount == amount:
			err = repo.DeleteItem(ctx, existing.ID)
		case existing.Amount < amount:
			return fmt.Errorf("only %d of %s pledged: %w", existing.Amount, item.ItemID, ErrInsufficientQuantity)
		default:
			err = repo.UpdateItemAmount(ctx, existing.ID, existing.Amount-amount)
		}
		if err != nil {
			return err
		}
		t.ResetApprovals()
		return repo.UpdateState(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, out.Counterparty(requesterID), model.NotificationTradeUpdated, "Trade updated", requesterID+" removed an item", stringPtr(out.ID))
	return out, nil
}

func (s *tradeService) Approve(ctx context.Context, tradeID, requesterID string) (*model.Trade, error) {
	completing, noop := false, false
	out, err := s.mutate(ctx, "approve", tradeID, requesterID, func(tx *gorm.DB, repo repository.TradeRepository, t *model.Trade) error {
		mine, _ := t.SideOf(requesterID)
		if mine == model.TradeSideFrom {
			if t.ApprovedFromUser {
				noop = true
				return nil
			}
			t.ApprovedFromUser = true
		} else {
			if t.ApprovedToUser {
				noop = true
				return nil
			}
			t.ApprovedToUser = true
		}
		if t.ApprovedFromUser && t.ApprovedToUser {
			completing = true
			if err := s.ledger.WithTx(tx).TransferOnCompletion(ctx, t); err != nil {
				return err
			}
			t.Status = model.TradeStatusCompleted
			t.PendingPair = nil
		}
		return repo.UpdateState(ctx, t)
	})
	if err != nil {
		if completing {
			s.clearApprovals(ctx, tradeID)
		}
		return nil, err
	}
	switch {
	case noop:
	case out.Status == model.TradeStatusCompleted:
		for _, uid := range []string{out.FromUserID, out.ToUserID} {
			s.notifier.Notify(ctx, uid, model.NotificationTradeCompleted, "Trade completed", "Items have been exchanged", stringPtr(out.ID))
		}
	default:
		s.notifier.Notify(ctx, out.Counterparty(requesterID), model.NotificationTradeApproved, "Trade approved", requesterID+" approved the trade", stringPtr(out.ID))
	}
	return out, nil
}

// clearApprovals resets both flags after a failed completion so the trade stays negotiable.
func (s *tradeService) clearApprovals(ctx context.Context, tradeID string) {
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		repo := s.trades.WithTx(tx)
		t, err := repo.LockByID(ctx, tradeID)
		if err != nil {
			return err
		}
		if t.Status != model.TradeStatusPending {
			return nil
		}
		t.ResetApprovals()
		return repo.UpdateState(ctx, t)
	})
	if err != nil {
		log.Printf("[trade] rid=%s trade=%s stage=clear_approvals_fail err=%v", reqctx.RID(ctx), tradeID, err)
		return
	}
	log.Printf("[trade] rid=%s trade=%s stage=clear_approvals", reqctx.RID(ctx), tradeID)
}

func (s *tradeService) Cancel(ctx context.Context, tradeID, requesterID string) (*model.Trade, error) {
	out, err := s.mutate(ctx, "cancel", tradeID, requesterID, func(tx *gorm.DB, repo repository.TradeRepository, t *model.Trade) error {
		t.Status = model.TradeStatusCanceled
		t.PendingPair = nil
		return repo.UpdateState(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, out.Counterparty(requesterID), model.NotificationTradeCanceled, "Trade canceled", requesterID+" canceled the trade", stringPtr(out.ID))
	return out, nil
}
