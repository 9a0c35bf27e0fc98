package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/croissant/croissant-api/internal/model"
	"github.com/croissant/croissant-api/internal/repository"
)

// CatalogService exposes item definitions referenced by inventories and trades.
type CatalogService interface {
	Upsert(ctx context.Context, item model.Item) (*model.Item, error)
	Get(ctx context.Context, itemID string) (*model.Item, error)
	Lookup(ctx context.Context, itemIDs []string) (map[string]model.Item, error)
	Count(ctx context.Context) (int64, error)
}

type catalogService struct {
	repo repository.ItemRepository
}

func NewCatalogService(repo repository.ItemRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) Upsert(ctx context.Context, item model.Item) (*model.Item, error) {
	item.ItemID = strings.TrimSpace(item.ItemID)
	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)
	if item.ItemID == "" || len(item.ItemID) > 64 {
		return nil, fmt.Errorf("invalid item id: %w", ErrInvalidArgument)
	}
	if item.Name == "" || len(item.Name) > 120 {
		return nil, fmt.Errorf("invalid name: %w", ErrInvalidArgument)
	}
	if item.Price < 0 {
		return nil, fmt.Errorf("negative price: %w", ErrInvalidArgument)
	}
	if err := s.repo.Upsert(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *catalogService) Get(ctx context.Context, itemID string) (*model.Item, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

// Lookup returns catalog rows for the given ids; unknown ids are absent from the map.
func (s *catalogService) Lookup(ctx context.Context, itemIDs []string) (map[string]model.Item, error) {
	seen := make(map[string]bool, len(itemIDs))
	uniq := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	return s.repo.FindByIDs(ctx, uniq)
}

func (s *catalogService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
