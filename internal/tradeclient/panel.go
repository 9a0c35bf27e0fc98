package tradeclient

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/croissant/croissant-api/internal/model"
)

var (
	ErrPanelBusy   = errors.New("another request is in flight")
	ErrTradeClosed = errors.New("trade is no longer pending")
	ErrNotLoaded   = errors.New("trade not loaded yet")
)

// TradeAPI is the subset of Client a Panel needs.
type TradeAPI interface {
	GetTrade(ctx context.Context, tradeID string) (*Trade, error)
	AddItem(ctx context.Context, tradeID string, item TradeItem) (*Trade, error)
	RemoveItem(ctx context.Context, tradeID string, item TradeItem) (*Trade, error)
	Approve(ctx context.Context, tradeID string) (*Trade, error)
	Cancel(ctx context.Context, tradeID string) (*Trade, error)
}

type PanelConfig struct {
	TradeID string
	UserID  string
	API     TradeAPI

	// ReloadInventory runs after every successful item mutation.
	ReloadInventory func()
	// OnClose runs once, from the goroutine that observed the terminal status.
	// It must not call Close synchronously.
	OnClose func(*Trade)
	// OnSnapshot runs after every accepted snapshot.
	OnSnapshot func(*Trade)

	PollInterval time.Duration
	// MaxPollInterval enables backoff: each failed poll doubles the interval up to this cap.
	// Zero keeps a fixed interval.
	MaxPollInterval time.Duration
}

// Panel mirrors one trade for one participant. It owns no authoritative state:
// every poll or mutation response replaces the whole snapshot.
type Panel struct {
	cfg    PanelConfig
	poller *Poller

	mu        sync.Mutex
	trade     *Trade
	pollErr   error
	itemErr   error
	actionErr error
	busy      bool
	backoff   time.Duration

	closeOnce sync.Once
}

func NewPanel(cfg PanelConfig) *Panel {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	p := &Panel{cfg: cfg, backoff: cfg.PollInterval}
	p.poller = NewPoller(cfg.PollInterval, p.poll)
	return p
}

// Open starts polling. It fetches the trade immediately.
func (p *Panel) Open(ctx context.Context) {
	p.poller.Start(ctx)
}

// Close stops polling and waits for the loop to exit. The trade itself is left untouched.
func (p *Panel) Close() {
	p.poller.Stop()
}

func (p *Panel) poll(ctx context.Context) {
	t, err := p.cfg.API.GetTrade(ctx, p.cfg.TradeID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		p.pollErr = err
		p.mu.Unlock()
		log.Printf("[panel] trade=%s stage=poll_fail err=%v", p.cfg.TradeID, err)
		p.slowDown()
		return
	}
	p.mu.Lock()
	p.pollErr = nil
	p.mu.Unlock()
	p.resetBackoff()
	p.accept(t)
}

func (p *Panel) slowDown() {
	if p.cfg.MaxPollInterval <= p.cfg.PollInterval {
		return
	}
	p.mu.Lock()
	next := p.backoff * 2
	if next > p.cfg.MaxPollInterval {
		next = p.cfg.MaxPollInterval
	}
	changed := next != p.backoff
	p.backoff = next
	p.mu.Unlock()
	if changed {
		p.poller.SetInterval(next)
	}
}

func (p *Panel) resetBackoff() {
	p.mu.Lock()
	changed := p.backoff != p.cfg.PollInterval
	p.backoff = p.cfg.PollInterval
	p.mu.Unlock()
	if changed {
		p.poller.SetInterval(p.cfg.PollInterval)
	}
}

// PollInterval is the current delay between polls.
func (p *Panel) PollInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoff
}

// accept installs t as the snapshot and fires the snapshot and close callbacks.
func (p *Panel) accept(t *Trade) {
	if t == nil {
		return
	}
	p.mu.Lock()
	p.trade = t
	p.mu.Unlock()

	if p.cfg.OnSnapshot != nil {
		p.cfg.OnSnapshot(cloneTrade(t))
	}
	if t.Status.IsTerminal() {
		p.closeOnce.Do(func() {
			if p.cfg.OnClose != nil {
				p.cfg.OnClose(cloneTrade(t))
			}
		})
	}
}

func (p *Panel) Snapshot() *Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneTrade(p.trade)
}

func (p *Panel) PollError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollErr
}

// ItemError is the last add or remove failure, cleared by the next successful item mutation.
func (p *Panel) ItemError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.itemErr
}

func (p *Panel) ActionError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.actionErr
}

func (p *Panel) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

func (p *Panel) CanMutate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canMutateLocked() == nil
}

func (p *Panel) canMutateLocked() error {
	switch {
	case p.busy:
		return ErrPanelBusy
	case p.trade == nil:
		return ErrNotLoaded
	case p.trade.Status != model.TradeStatusPending:
		return ErrTradeClosed
	}
	return nil
}

func (p *Panel) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.canMutateLocked(); err != nil {
		return err
	}
	p.busy = true
	return nil
}

func (p *Panel) end() {
	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
}

// AvailableEntry is an inventory entry with the quantity still pledgeable to this trade.
type AvailableEntry struct {
	InventoryEntry
	Available int
}

// AvailableInventory filters inv down to entries with something left to pledge,
// discounting what the user already offers in the current snapshot. The result is advisory.
func (p *Panel) AvailableInventory(inv []InventoryEntry) []AvailableEntry {
	var mine []TradeItem
	if t := p.Snapshot(); t != nil {
		mine = t.ItemsOf(p.cfg.UserID)
	}
	// fungible pledges are drawn from a group's stacks in inventory order
	pending := make(map[stackKey]int)
	for _, it := range mine {
		if it.UniqueID() == "" {
			pending[keyOf(it.ItemID, it.PurchasePrice)] += it.Amount
		}
	}
	out := make([]AvailableEntry, 0, len(inv))
	for _, e := range inv {
		n := 1
		if uid := e.UniqueID(); uid != "" {
			if offersUnique(mine, e.ItemID, uid) {
				n = 0
			}
		} else {
			k := keyOf(e.ItemID, e.PurchasePrice)
			taken := min(pending[k], e.Amount)
			pending[k] -= taken
			n = e.Amount - taken
		}
		if n > 0 {
			out = append(out, AvailableEntry{InventoryEntry: e, Available: n})
		}
	}
	return out
}

// stackKey groups fungible stacks the server treats as interchangeable.
type stackKey struct {
	itemID string
	priced bool
	price  int64
}

func keyOf(itemID string, price *int64) stackKey {
	if price == nil {
		return stackKey{itemID: itemID}
	}
	return stackKey{itemID: itemID, priced: true, price: *price}
}

func offersUnique(offered []TradeItem, itemID, uniqueID string) bool {
	for _, it := range offered {
		if it.ItemID == itemID && it.UniqueID() == uniqueID {
			return true
		}
	}
	return false
}

// AddItem pledges one unit of entry to the user's side.
func (p *Panel) AddItem(ctx context.Context, entry InventoryEntry) (*Trade, error) {
	return p.mutateItem(ctx, "add", p.cfg.API.AddItem, TradeItem{
		ItemID:        entry.ItemID,
		Amount:        1,
		Metadata:      entry.Metadata,
		PurchasePrice: entry.PurchasePrice,
	})
}

// RemoveItem withdraws a single unit of item from the user's side.
func (p *Panel) RemoveItem(ctx context.Context, item TradeItem) (*Trade, error) {
	return p.mutateItem(ctx, "remove", p.cfg.API.RemoveItem, TradeItem{
		ItemID:        item.ItemID,
		Amount:        1,
		Metadata:      item.Metadata,
		PurchasePrice: item.PurchasePrice,
	})
}

func (p *Panel) mutateItem(ctx context.Context, action string, call func(context.Context, string, TradeItem) (*Trade, error), item TradeItem) (*Trade, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	t, err := call(ctx, p.cfg.TradeID, item)
	p.end()

	p.mu.Lock()
	p.itemErr = err
	p.mu.Unlock()
	if err != nil {
		log.Printf("[panel] trade=%s stage=%s_item_fail item=%s err=%v", p.cfg.TradeID, action, item.ItemID, err)
		return nil, err
	}
	p.accept(t)
	if p.cfg.ReloadInventory != nil {
		p.cfg.ReloadInventory()
	}
	return cloneTrade(t), nil
}

func (p *Panel) Approve(ctx context.Context) (*Trade, error) {
	return p.transition(ctx, "approve", p.cfg.API.Approve)
}

func (p *Panel) Cancel(ctx context.Context) (*Trade, error) {
	return p.transition(ctx, "cancel", p.cfg.API.Cancel)
}

func (p *Panel) transition(ctx context.Context, action string, call func(context.Context, string) (*Trade, error)) (*Trade, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	t, err := call(ctx, p.cfg.TradeID)
	p.end()

	p.mu.Lock()
	p.actionErr = err
	p.mu.Unlock()
	if err != nil {
		log.Printf("[panel] trade=%s stage=%s_fail err=%v", p.cfg.TradeID, action, err)
		return nil, err
	}
	p.accept(t)
	return cloneTrade(t), nil
}

func cloneTrade(t *Trade) *Trade {
	if t == nil {
		return nil
	}
	c := *t
	c.FromUserItems = append([]TradeItem(nil), t.FromUserItems...)
	c.ToUserItems = append([]TradeItem(nil), t.ToUserItems...)
	return &c
}
