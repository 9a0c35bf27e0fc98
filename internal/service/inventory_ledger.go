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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InventoryLedger interface {
	AvailableQuantity(ctx context.Context, userID, itemID string, purchasePrice *int64) (int, error)
	IsUniqueUnitAvailable(ctx context.Context, userID, itemID, uniqueID string) (bool, error)
	TransferOnCompletion(ctx context.Context, trade *model.Trade) error
	Grant(ctx context.Context, req GrantRequest) ([]model.InventoryEntry, error)
	Consume(ctx context.Context, userID, itemID string, amount int, purchasePrice *int64) error
	ConsumeUnique(ctx context.Context, userID, itemID, uniqueID string) error
	Inventory(ctx context.Context, userID string) ([]InventoryItem, error)
	WithTx(tx *gorm.DB) InventoryLedger
}

// GrantRequest credits items to a user. Non-empty Attributes produce one unique unit per amount.
type GrantRequest struct {
	UserID        string
	ItemID        string
	Amount        int
	PurchasePrice *int64
	Sellable      bool
	Attributes    model.Attributes
}

// InventoryItem is an owned entry joined with its catalog definition.
type InventoryItem struct {
	Entry model.InventoryEntry
	Item  model.Item
}

type inventoryLedger struct {
	db        *gorm.DB
	inTx      bool
	inventory repository.InventoryRepository
	trades    repository.TradeRepository
	items     repository.ItemRepository
}

func NewInventoryLedger(db *gorm.DB, inventory repository.InventoryRepository, trades repository.TradeRepository, items repository.ItemRepository) InventoryLedger {
	return &inventoryLedger{db: db, inventory: inventory, trades: trades, items: items}
}

// WithTx binds the ledger to tx. Reads made through the bound ledger lock the rows they inspect.
func (l *inventoryLedger) WithTx(tx *gorm.DB) InventoryLedger {
	return &inventoryLedger{
		db:        tx,
		inTx:      true,
		inventory: l.inventory.WithTx(tx),
		trades:    l.trades.WithTx(tx),
		items:     l.items.WithTx(tx),
	}
}

func (l *inventoryLedger) atomically(ctx context.Context, fn func(l *inventoryLedger) error) error {
	if l.db == nil {
		return repository.ErrDBNotReady
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(l.WithTx(tx).(*inventoryLedger))
	}, repository.ReadCommitted)
}

func (l *inventoryLedger) owned(ctx context.Context, userID, itemID string, price *int64) (int, error) {
	if !l.inTx {
		return l.inventory.SumFungible(ctx, userID, itemID, price)
	}
	stacks, err := l.inventory.LockFungible(ctx, userID, itemID, price)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range stacks {
		total += s.Amount
	}
	return total, nil
}

func (l *inventoryLedger) AvailableQuantity(ctx context.Context, userID, itemID string, purchasePrice *int64) (int, error) {
	owned, err := l.owned(ctx, userID, itemID, purchasePrice)
	if err != nil {
		return 0, err
	}
	committed, err := l.trades.CommittedAmount(ctx, userID, itemID, purchasePrice)
	if err != nil {
		return 0, err
	}
	if owned <= committed {
		return 0, nil
	}
	return owned - committed, nil
}

func (l *inventoryLedger) IsUniqueUnitAvailable(ctx context.Context, userID, itemID, uniqueID string) (bool, error) {
	if uniqueID == "" {
		return false, nil
	}
	if _, err := l.inventory.LockUnique(ctx, userID, itemID, uniqueID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	committed, err := l.trades.IsUniqueCommitted(ctx, uniqueID)
	if err != nil {
		return false, err
	}
	return !committed, nil
}

// TransferOnCompletion swaps every pledged item to the counterparty. Either all items move or none.
func (l *inventoryLedger) TransferOnCompletion(ctx context.Context, trade *model.Trade) error {
	return l.atomically(ctx, func(l *inventoryLedger) error {
		for _, it := range trade.Items {
			from := trade.OwnerOf(it.Side)
			to := trade.Counterparty(from)
			if it.IsUnique() {
				n, err := l.inventory.TransferUnique(ctx, from, to, it.ItemID, *it.UniqueID)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("unique unit %s of %s not owned by %s: %w", *it.UniqueID, it.ItemID, from, ErrInsufficientQuantity)
				}
				continue
			}
			debited, err := l.debit(ctx, from, it.ItemID, it.Amount, it.PurchasePrice)
			if err != nil {
				return err
			}
			for _, d := range debited {
				if err := l.inventory.Credit(ctx, to, it.ItemID, d.amount, it.PurchasePrice, d.sellable || it.PurchasePrice != nil); err != nil {
					return err
				}
			}
		}
		log.Printf("[trade] rid=%s trade=%s stage=ledger_transfer items=%d", reqctx.RID(ctx), trade.ID, len(trade.Items))
		return nil
	})
}

type debitPart struct {
	amount   int
	sellable bool
}

// debit removes amount units from the user's matching stacks, oldest first.
func (l *inventoryLedger) debit(ctx context.Context, userID, itemID string, amount int, price *int64) ([]debitPart, error) {
	stacks, err := l.inventory.LockFungible(ctx, userID, itemID, price)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, s := range stacks {
		total += s.Amount
	}
	if total < amount {
		return nil, fmt.Errorf("%s owns %d of %s, need %d: %w", userID, total, itemID, amount, ErrInsufficientQuantity)
	}
	var parts []debitPart
	remaining := amount
	for _, s := range stacks {
		if remaining == 0 {
			break
		}
		take := s.Amount
		if take > remaining {
			take = remaining
		}
		if take == s.Amount {
			err = l.inventory.Delete(ctx, s.ID)
		} else {
			err = l.inventory.SetAmount(ctx, s.ID, s.Amount-take)
		}
		if err != nil {
			return nil, err
		}
		parts = append(parts, debitPart{amount: take, sellable: s.Sellable})
		remaining -= take
	}
	return parts, nil
}

func (l *inventoryLedger) Grant(ctx context.Context, req GrantRequest) ([]model.InventoryEntry, error) {
	if req.UserID == "" || req.ItemID == "" || req.Amount < 1 {
		return nil, fmt.Errorf("grant %s to %q amount %d: %w", req.ItemID, req.UserID, req.Amount, ErrInvalidArgument)
	}
	var out []model.InventoryEntry
	err := l.atomically(ctx, func(l *inventoryLedger) error {
		if _, err := l.items.FindByID(ctx, req.ItemID); err != nil {
			return notFound(err)
		}
		if len(req.Attributes) == 0 {
			return l.inventory.Credit(ctx, req.UserID, req.ItemID, req.Amount, req.PurchasePrice, req.Sellable)
		}
		for i := 0; i < req.Amount; i++ {
			uid := uuid.NewString()
			e := model.InventoryEntry{
				UserID:        req.UserID,
				ItemID:        req.ItemID,
				Amount:        1,
				UniqueID:      &uid,
				PurchasePrice: req.PurchasePrice,
				Sellable:      req.Sellable,
				Attrs:         datatypes.NewJSONType(req.Attributes.Clone()),
			}
			if err := l.inventory.Create(ctx, &e); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Consume removes fungible units regardless of pending trade commitments.
func (l *inventoryLedger) Consume(ctx context.Context, userID, itemID string, amount int, purchasePrice *int64) error {
	if amount < 1 {
		return fmt.Errorf("consume amount %d: %w", amount, ErrInvalidArgument)
	}
	return l.atomically(ctx, func(l *inventoryLedger) error {
		_, err := l.debit(ctx, userID, itemID, amount, purchasePrice)
		return err
	})
}

func (l *inventoryLedger) ConsumeUnique(ctx context.Context, userID, itemID, uniqueID string) error {
	return l.atomically(ctx, func(l *inventoryLedger) error {
		e, err := l.inventory.LockUnique(ctx, userID, itemID, uniqueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("unique unit %s: %w", uniqueID, ErrInsufficientQuantity)
			}
			return err
		}
		return l.inventory.Delete(ctx, e.ID)
	})
}

// Inventory lists the user's entries whose catalog item still exists.
func (l *inventoryLedger) Inventory(ctx context.Context, userID string) ([]InventoryItem, error) {
	entries, err := l.inventory.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	seen := map[string]bool{}
	for _, e := range entries {
		if !seen[e.ItemID] {
			seen[e.ItemID] = true
			ids = append(ids, e.ItemID)
		}
	}
	catalog, err := l.items.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]InventoryItem, 0, len(entries))
	for _, e := range entries {
		it, ok := catalog[e.ItemID]
		if !ok || it.Deleted {
			continue
		}
		out = append(out, InventoryItem{Entry: e, Item: it})
	}
	return out, nil
}
