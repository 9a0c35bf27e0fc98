package model

import (
	"time"

	"gorm.io/datatypes"
)

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusApproved  TradeStatus = "approved"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusCanceled  TradeStatus = "canceled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusCompleted || s == TradeStatusCanceled
}

type TradeSide string

const (
	TradeSideFrom TradeSide = "from"
	TradeSideTo   TradeSide = "to"
)

// UserKey returns the wire name of the side's item list.
func (s TradeSide) UserKey() string {
	if s == TradeSideFrom {
		return "fromUserItems"
	}
	return "toUserItems"
}

func SideFromUserKey(key string) (TradeSide, bool) {
	switch key {
	case "fromUserItems":
		return TradeSideFrom, true
	case "toUserItems":
		return TradeSideTo, true
	}
	return "", false
}

type Trade struct {
	ID               string      `gorm:"primaryKey;size:36"`
	FromUserID       string      `gorm:"column:from_user_id;size:128;index;not null"`
	ToUserID         string      `gorm:"column:to_user_id;size:128;index;not null"`
	PendingPair      *string     `gorm:"column:pending_pair;size:260;uniqueIndex"`
	ApprovedFromUser bool        `gorm:"column:approved_from_user;not null;default:false"`
	ApprovedToUser   bool        `gorm:"column:approved_to_user;not null;default:false"`
	Status           TradeStatus `gorm:"column:status;size:16;index;not null"`
	Items            []TradeItem `gorm:"foreignKey:TradeID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time   `gorm:"autoCreateTime"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime"`
}

func (Trade) TableName() string {
	return "trades"
}

// PairKey identifies an unordered pair of users.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// SideOf returns the side owned by uid.
func (t *Trade) SideOf(uid string) (TradeSide, bool) {
	switch uid {
	case t.FromUserID:
		return TradeSideFrom, true
	case t.ToUserID:
		return TradeSideTo, true
	}
	return "", false
}

func (t *Trade) IsParticipant(uid string) bool {
	_, ok := t.SideOf(uid)
	return ok
}

// OwnerOf returns the user who pledges items on side.
func (t *Trade) OwnerOf(side TradeSide) string {
	if side == TradeSideFrom {
		return t.FromUserID
	}
	return t.ToUserID
}

// Counterparty returns the other participant.
func (t *Trade) Counterparty(uid string) string {
	if uid == t.FromUserID {
		return t.ToUserID
	}
	return t.FromUserID
}

// ItemsOf returns the side's items in insertion order.
func (t *Trade) ItemsOf(side TradeSide) []TradeItem {
	out := make([]TradeItem, 0, len(t.Items))
	for _, it := range t.Items {
		if it.Side == side {
			out = append(out, it)
		}
	}
	return out
}

func (t *Trade) ResetApprovals() {
	t.ApprovedFromUser = false
	t.ApprovedToUser = false
}

type TradeItem struct {
	ID            uint64                          `gorm:"primaryKey;autoIncrement"`
	TradeID       string                          `gorm:"column:trade_id;size:36;index;not null"`
	Side          TradeSide                       `gorm:"column:side;size:8;not null"`
	OwnerUID      string                          `gorm:"column:owner_uid;size:128;index:idx_trade_items_owner_item;not null"`
	ItemID        string                          `gorm:"column:item_id;size:64;index:idx_trade_items_owner_item;not null"`
	Amount        int                             `gorm:"column:amount;not null"`
	UniqueID      *string                         `gorm:"column:unique_id;size:64;index"`
	PurchasePrice *int64                          `gorm:"column:purchase_price"`
	Attrs         datatypes.JSONType[Attributes] `gorm:"column:attributes"`
	Position      int                             `gorm:"column:position;not null"`
	CreatedAt     time.Time                       `gorm:"autoCreateTime"`
}

func (TradeItem) TableName() string {
	return "trade_items"
}

func (ti TradeItem) IsUnique() bool {
	return ti.UniqueID != nil && *ti.UniqueID != ""
}

func (ti TradeItem) Metadata() Metadata {
	return Metadata{UniqueID: ti.UniqueID, Attributes: ti.Attrs.Data()}
}

// Matches reports whether o refers to the same unique unit or fungible stack.
func (ti TradeItem) Matches(o TradeItem) bool {
	if ti.ItemID != o.ItemID {
		return false
	}
	if ti.IsUnique() || o.IsUnique() {
		return ti.IsUnique() && o.IsUnique() && *ti.UniqueID == *o.UniqueID
	}
	return SamePrice(ti.PurchasePrice, o.PurchasePrice)
}

// SamePrice compares optional prices; two missing prices are equal.
func SamePrice(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// NewTradeItem builds a pledge from its wire parts.
func NewTradeItem(itemID string, amount int, meta Metadata, purchasePrice *int64) TradeItem {
	return TradeItem{
		ItemID:        itemID,
		Amount:        amount,
		UniqueID:      meta.UniqueID,
		PurchasePrice: purchasePrice,
		Attrs:         datatypes.NewJSONType(meta.Attributes),
	}
}
