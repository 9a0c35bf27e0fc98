package tradeclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/croissant/croissant-api/internal/model"
)

// fakeServer serves a single in-memory trade between "alice" and "bob".
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu        sync.Mutex
	trade     Trade
	gets      int
	failGets  int
	lastAuth  string
	lastBody  tradeItemRequest
	addErr    *APIError
	noContent bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t, trade: Trade{
		ID:         "t1",
		FromUserID: "alice",
		ToUserID:   "bob",
		Status:     model.TradeStatusPending,
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/trades/{id}", f.getTrade)
	mux.HandleFunc("POST /api/trades/{id}/add-item", f.addItem)
	mux.HandleFunc("POST /api/trades/{id}/remove-item", f.removeItem)
	mux.HandleFunc("PUT /api/trades/{id}/approve", f.approve)
	mux.HandleFunc("PUT /api/trades/{id}/cancel", f.cancel)
	mux.HandleFunc("GET /api/inventory/{userId}", f.inventory)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) client() *Client {
	return NewClient("tok-alice", WithBaseURL(f.srv.URL+"/api"))
}

func (f *fakeServer) setStatus(s model.TradeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trade.Status = s
}

func (f *fakeServer) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func (f *fakeServer) sentItem() TradeItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody.TradeItem
}

func (f *fakeServer) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.t.Errorf("encode: %v", err)
	}
}

func (f *fakeServer) notFound(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("id") != f.trade.ID {
		f.writeJSON(w, http.StatusNotFound, APIError{Code: "not_found", Message: "trade not found"})
		return true
	}
	return false
}

func (f *fakeServer) getTrade(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	f.lastAuth = r.Header.Get("Authorization")
	if f.failGets > 0 {
		f.failGets--
		f.writeJSON(w, http.StatusInternalServerError, APIError{Code: "internal_error", Message: "boom"})
		return
	}
	if f.notFound(w, r) {
		return
	}
	f.writeJSON(w, http.StatusOK, f.trade)
}

func (f *fakeServer) decodeItem(w http.ResponseWriter, r *http.Request) bool {
	var body tradeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.writeJSON(w, http.StatusBadRequest, APIError{Code: "bad_request", Message: "invalid tradeItem format"})
		return false
	}
	f.lastBody = body
	return true
}

func (f *fakeServer) addItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notFound(w, r) || !f.decodeItem(w, r) {
		return
	}
	if f.addErr != nil {
		f.writeJSON(w, f.addErr.Status, f.addErr)
		return
	}
	f.trade.FromUserItems = append(f.trade.FromUserItems, f.lastBody.TradeItem)
	f.trade.ApprovedFromUser, f.trade.ApprovedToUser = false, false
	f.writeJSON(w, http.StatusOK, f.trade)
}

func (f *fakeServer) removeItem(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notFound(w, r) || !f.decodeItem(w, r) {
		return
	}
	items := f.trade.FromUserItems
	for i, it := range items {
		if it.ItemID != f.lastBody.TradeItem.ItemID {
			continue
		}
		if it.Amount > 1 {
			items[i].Amount--
		} else {
			f.trade.FromUserItems = append(items[:i:i], items[i+1:]...)
		}
		f.writeJSON(w, http.StatusOK, f.trade)
		return
	}
	f.writeJSON(w, http.StatusNotFound, APIError{Code: "not_found", Message: "item not in trade"})
}

func (f *fakeServer) approve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notFound(w, r) {
		return
	}
	f.trade.ApprovedFromUser = true
	if f.noContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	f.writeJSON(w, http.StatusOK, f.trade)
}

func (f *fakeServer) cancel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notFound(w, r) {
		return
	}
	if f.trade.Status != model.TradeStatusPending {
		f.writeJSON(w, http.StatusConflict, APIError{Code: "invalid_state", Message: "trade is not pending"})
		return
	}
	f.trade.Status = model.TradeStatusCanceled
	f.writeJSON(w, http.StatusOK, f.trade)
}

func (f *fakeServer) inventory(w http.ResponseWriter, r *http.Request) {
	f.writeJSON(w, http.StatusOK, Inventory{
		UserID: r.PathValue("userId"),
		Inventory: []InventoryEntry{
			{ItemID: "wood", Name: "Wood", Amount: 5},
		},
	})
}
