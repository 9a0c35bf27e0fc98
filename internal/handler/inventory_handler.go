package handler

import (
	"net/http"
	"strconv"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/service"
	"github.com/labstack/echo/v4"
)

type InventoryHandler struct {
	ledger service.InventoryLedger
}

func NewInventoryHandler(ledger service.InventoryLedger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

type InventoryItemResponse struct {
	ItemID        string          `json:"itemId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	IconHash      *string         `json:"iconHash,omitempty"`
	Price         int64           `json:"price"`
	Amount        int             `json:"amount"`
	Metadata      *model.Metadata `json:"metadata,omitempty"`
	PurchasePrice *int64          `json:"purchasePrice,omitempty"`
	Sellable      bool            `json:"sellable"`
}

type InventoryResponse struct {
	UserID    string                  `json:"userId"`
	Inventory []InventoryItemResponse `json:"inventory"`
}

func toInventoryItemResponse(it service.InventoryItem) InventoryItemResponse {
	r := InventoryItemResponse{
		ItemID:        it.Entry.ItemID,
		Name:          it.Item.Name,
		Description:   it.Item.Description,
		IconHash:      it.Item.IconHash,
		Price:         it.Item.Price,
		Amount:        it.Entry.Amount,
		PurchasePrice: it.Entry.PurchasePrice,
		Sellable:      it.Entry.Sellable,
	}
	if meta := it.Entry.Metadata(); !meta.IsZero() {
		r.Metadata = &meta
	}
	return r
}

func (h *InventoryHandler) list(c echo.Context, userID string) error {
	items, err := h.ledger.Inventory(requestContext(c), userID)
	if err != nil {
		return serviceError(c, err)
	}
	resp := InventoryResponse{UserID: userID, Inventory: make([]InventoryItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Inventory = append(resp.Inventory, toInventoryItemResponse(it))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Me(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	return h.list(c, uid)
}

func (h *InventoryHandler) ByUser(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid user id"))
	}
	return h.list(c, userID)
}

// Available reports how many units of an item the user can still pledge.
func (h *InventoryHandler) Available(c echo.Context) error {
	userID, itemID := c.Param("userId"), c.Param("itemId")
	if userID == "" || itemID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid path"))
	}
	ctx := requestContext(c)
	if uniqueID := c.QueryParam("uniqueId"); uniqueID != "" {
		ok, err := h.ledger.IsUniqueUnitAvailable(ctx, userID, itemID, uniqueID)
		if err != nil {
			return serviceError(c, err)
		}
		available := 0
		if ok {
			available = 1
		}
		return c.JSON(http.StatusOK, map[string]int{"available": available})
	}
	var price *int64
	if raw := c.QueryParam("purchasePrice"); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid purchasePrice"))
		}
		price = &p
	}
	available, err := h.ledger.AvailableQuantity(ctx, userID, itemID, price)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"available": available})
}
