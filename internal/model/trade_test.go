package model

import "testing"

func TestPairKeyIsOrderless(t *testing.T) {
	if PairKey("a", "b") != PairKey("b", "a") {
		t.Fatalf("pair key depends on order")
	}
}

func TestTradeSides(t *testing.T) {
	tr := &Trade{FromUserID: "x", ToUserID: "y"}
	cases := []struct {
		uid  string
		side TradeSide
		ok   bool
	}{
		{"x", TradeSideFrom, true},
		{"y", TradeSideTo, true},
		{"z", "", false},
	}
	for _, tc := range cases {
		side, ok := tr.SideOf(tc.uid)
		if side != tc.side || ok != tc.ok {
			t.Errorf("SideOf(%s) = %s,%v want %s,%v", tc.uid, side, ok, tc.side, tc.ok)
		}
	}
	if tr.Counterparty("x") != "y" || tr.Counterparty("y") != "x" {
		t.Fatalf("counterparty mismatch")
	}
	if side, ok := SideFromUserKey(TradeSideTo.UserKey()); !ok || side != TradeSideTo {
		t.Fatalf("user key round trip failed")
	}
}

func TestTradeItemMatches(t *testing.T) {
	ten, eleven := int64(10), int64(11)
	u1, u2 := "u1", "u2"
	cases := []struct {
		name string
		a, b TradeItem
		want bool
	}{
		{"same plain stack", NewTradeItem("gem", 1, Metadata{}, nil), NewTradeItem("gem", 4, Metadata{}, nil), true},
		{"same price", NewTradeItem("gem", 1, Metadata{}, &ten), NewTradeItem("gem", 1, Metadata{}, &ten), true},
		{"different price", NewTradeItem("gem", 1, Metadata{}, &ten), NewTradeItem("gem", 1, Metadata{}, &eleven), false},
		{"price vs none", NewTradeItem("gem", 1, Metadata{}, &ten), NewTradeItem("gem", 1, Metadata{}, nil), false},
		{"different item", NewTradeItem("gem", 1, Metadata{}, nil), NewTradeItem("hat", 1, Metadata{}, nil), false},
		{"same unit", NewTradeItem("hat", 1, Metadata{UniqueID: &u1}, nil), NewTradeItem("hat", 1, Metadata{UniqueID: &u1}, &ten), true},
		{"different unit", NewTradeItem("hat", 1, Metadata{UniqueID: &u1}, nil), NewTradeItem("hat", 1, Metadata{UniqueID: &u2}, nil), false},
		{"unit vs stack", NewTradeItem("hat", 1, Metadata{UniqueID: &u1}, nil), NewTradeItem("hat", 1, Metadata{}, nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Matches(tc.b); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}
