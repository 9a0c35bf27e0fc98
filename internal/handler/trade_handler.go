package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/reqctx"
	"github.com/croissant/croissant-api/internal/service"
	"github.com/labstack/echo/v4"
)

type TradeHandler struct {
	svc     service.TradeService
	catalog service.CatalogService
	notify  service.NotificationService
}

func NewTradeHandler(svc service.TradeService, catalog service.CatalogService, notify service.NotificationService) *TradeHandler {
	return &TradeHandler{svc: svc, catalog: catalog, notify: notify}
}

type TradeItemPayload struct {
	ItemID        string          `json:"itemId"`
	Amount        int             `json:"amount"`
	Metadata      *model.Metadata `json:"metadata,omitempty"`
	PurchasePrice *int64          `json:"purchasePrice,omitempty"`
}

type TradeItemResponse struct {
	TradeItemPayload
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	IconHash    *string `json:"iconHash,omitempty"`
}

type TradeResponse struct {
	ID               string              `json:"id"`
	FromUserID       string              `json:"fromUserId"`
	ToUserID         string              `json:"toUserId"`
	FromUserItems    []TradeItemResponse `json:"fromUserItems"`
	ToUserItems      []TradeItemResponse `json:"toUserItems"`
	ApprovedFromUser bool                `json:"approvedFromUser"`
	ApprovedToUser   bool                `json:"approvedToUser"`
	Status           string              `json:"status"`
	CreatedAt        string              `json:"createdAt"`
	UpdatedAt        string              `json:"updatedAt"`
}

type tradeItemRequest struct {
	TradeItem *TradeItemPayload `json:"tradeItem"`
	UserKey   string            `json:"userKey,omitempty"`
}

func toTradeItemPayload(it model.TradeItem) TradeItemPayload {
	p := TradeItemPayload{
		ItemID:        it.ItemID,
		Amount:        it.Amount,
		PurchasePrice: it.PurchasePrice,
	}
	if meta := it.Metadata(); !meta.IsZero() {
		p.Metadata = &meta
	}
	return p
}

func toTradeResponse(t *model.Trade, catalog map[string]model.Item) TradeResponse {
	side := func(s model.TradeSide) []TradeItemResponse {
		items := t.ItemsOf(s)
		out := make([]TradeItemResponse, 0, len(items))
		for _, it := range items {
			r := TradeItemResponse{TradeItemPayload: toTradeItemPayload(it)}
			if def, ok := catalog[it.ItemID]; ok {
				r.Name = def.Name
				r.Description = def.Description
				r.IconHash = def.IconHash
			}
			out = append(out, r)
		}
		return out
	}
	return TradeResponse{
		ID:               t.ID,
		FromUserID:       t.FromUserID,
		ToUserID:         t.ToUserID,
		FromUserItems:    side(model.TradeSideFrom),
		ToUserItems:      side(model.TradeSideTo),
		ApprovedFromUser: t.ApprovedFromUser,
		ApprovedToUser:   t.ApprovedToUser,
		Status:           string(t.Status),
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// catalogFor loads definitions for every item in trades. Enrichment is optional.
func (h *TradeHandler) catalogFor(ctx context.Context, trades ...*model.Trade) map[string]model.Item {
	if h.catalog == nil {
		return nil
	}
	var ids []string
	for _, t := range trades {
		for _, it := range t.Items {
			ids = append(ids, it.ItemID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	catalog, err := h.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil
	}
	return catalog
}

func (h *TradeHandler) respond(c echo.Context, t *model.Trade) error {
	return c.JSON(http.StatusOK, toTradeResponse(t, h.catalogFor(c.Request().Context(), t)))
}

func requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		ctx = reqctx.WithRID(ctx, rid)
	}
	return ctx
}

func (h *TradeHandler) Get(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	ctx := requestContext(c)
	t, err := h.svc.Get(ctx, c.Param("id"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	if h.notify != nil {
		if err := h.notify.MarkRead(ctx, uid, t.ID); err != nil {
			log.Printf("[trade] rid=%s trade=%s stage=mark_read_fail user=%s err=%v", reqctx.RID(ctx), t.ID, uid, err)
		}
	}
	return h.respond(c, t)
}

func (h *TradeHandler) StartOrLatest(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	t, err := h.svc.StartOrResume(requestContext(c), uid, c.Param("userId"))
	if err != nil {
		return serviceError(c, err)
	}
	return h.respond(c, t)
}

func (h *TradeHandler) ListByUser(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	ctx := requestContext(c)
	list, err := h.svc.ListByUser(ctx, c.Param("userId"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	ptrs := make([]*model.Trade, 0, len(list))
	for i := range list {
		ptrs = append(ptrs, &list[i])
	}
	catalog := h.catalogFor(ctx, ptrs...)
	resp := make([]TradeResponse, 0, len(list))
	for _, t := range ptrs {
		resp = append(resp, toTradeResponse(t, catalog))
	}
	return c.JSON(http.StatusOK, resp)
}

// bindTradeItem decodes {tradeItem, userKey}. The returned error text is safe to show the caller.
func bindTradeItem(c echo.Context) (model.TradeItem, model.TradeSide, error) {
	var body tradeItemRequest
	if err := c.Bind(&body); err != nil {
		if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
			return model.TradeItem{}, "", he.Internal
		}
		return model.TradeItem{}, "", errors.New("invalid body")
	}
	if body.TradeItem == nil || strings.TrimSpace(body.TradeItem.ItemID) == "" {
		return model.TradeItem{}, "", errors.New("invalid tradeItem format")
	}
	var side model.TradeSide
	if body.UserKey != "" {
		s, ok := model.SideFromUserKey(body.UserKey)
		if !ok {
			return model.TradeItem{}, "", errors.New("invalid userKey")
		}
		side = s
	}
	var meta model.Metadata
	if body.TradeItem.Metadata != nil {
		meta = *body.TradeItem.Metadata
	}
	item := model.NewTradeItem(strings.TrimSpace(body.TradeItem.ItemID), body.TradeItem.Amount, meta, body.TradeItem.PurchasePrice)
	return item, side, nil
}

func (h *TradeHandler) AddItem(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	item, side, err := bindTradeItem(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	t, err := h.svc.AddItem(requestContext(c), c.Param("id"), uid, item, side)
	if err != nil {
		return serviceError(c, err)
	}
	return h.respond(c, t)
}

func (h *TradeHandler) RemoveItem(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	item, side, err := bindTradeItem(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	t, err := h.svc.RemoveItem(requestContext(c), c.Param("id"), uid, item, side)
	if err != nil {
		return serviceError(c, err)
	}
	return h.respond(c, t)
}

func (h *TradeHandler) Approve(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	t, err := h.svc.Approve(requestContext(c), c.Param("id"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return h.respond(c, t)
}

func (h *TradeHandler) Cancel(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return unauthorized(c)
	}
	t, err := h.svc.Cancel(requestContext(c), c.Param("id"), uid)
	if err != nil {
		return serviceError(c, err)
	}
	return h.respond(c, t)
}
