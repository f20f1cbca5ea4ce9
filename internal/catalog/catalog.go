// Package catalog даёт доступ к актуальным ценам и доступности позиций меню.
// Цена заказа всегда считается по каталогу, цены клиента не используются.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mmeshcher/lunchbox/internal/apperr"
	"github.com/mmeshcher/lunchbox/internal/model"
)

// Store описывает источник данных каталога.
type Store interface {
	GetAvailableItems(ctx context.Context, ids []int64) ([]model.MenuItem, error)
	ListAvailableItems(ctx context.Context) ([]model.MenuItem, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DailyMenuItemIDs(ctx context.Context, day time.Time) ([]int64, error)
	DailyMenuItems(ctx context.Context, day time.Time) ([]model.MenuItem, error)
}

// Priced содержит позиции заказа со снимком цен и итоговую сумму.
type Priced struct {
	Items        []model.OrderItem
	TotalKopecks int64
}

// Service реализует чтение каталога.
type Service struct {
	store Store
}

// NewService создаёт сервис каталога.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Lookup возвращает доступные позиции из указанного набора.
func (s *Service) Lookup(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	res := make(map[int64]model.MenuItem, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	items, err := s.store.GetAvailableItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup items: %w", err)
	}
	for _, it := range items {
		if it.Available {
			res[it.ID] = it
		}
	}
	return res, nil
}

// Price объединяет повторяющиеся позиции, проверяет доступность и считает сумму по ценам каталога.
// Если хотя бы одна позиция недоступна, возвращает ItemsUnavailable со списком идентификаторов.
func (s *Service) Price(ctx context.Context, requested []model.ItemRequest) (*Priced, error) {
	if len(requested) == 0 {
		return nil, apperr.New(apperr.KindValidation, "items must not be empty")
	}

	quantities := make(map[int64]int, len(requested))
	order := make([]int64, 0, len(requested))
	for _, r := range requested {
		if r.Quantity <= 0 {
			return nil, apperr.Newf(apperr.KindValidation, "quantity for item %d must be positive", r.ItemID).
				WithDetail("itemId", r.ItemID)
		}
		if _, seen := quantities[r.ItemID]; !seen {
			order = append(order, r.ItemID)
		}
		quantities[r.ItemID] += r.Quantity
	}

	available, err := s.Lookup(ctx, order)
	if err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range order {
		if _, ok := available[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, apperr.New(apperr.KindItemsUnavailable, "").WithDetail("itemIds", missing)
	}

	p := &Priced{Items: make([]model.OrderItem, 0, len(order))}
	for _, id := range order {
		it := available[id]
		qty := quantities[id]
		p.Items = append(p.Items, model.OrderItem{
			ItemID:       id,
			ItemName:     it.Name,
			Quantity:     qty,
			PriceKopecks: it.PriceKopecks,
		})
		p.TotalKopecks += it.PriceKopecks * int64(qty)
	}
	return p, nil
}

// Menu возвращает категории, доступные позиции и меню дня на указанную дату.
func (s *Service) Menu(ctx context.Context, day time.Time) (*model.Menu, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("menu categories: %w", err)
	}

	items, err := s.store.ListAvailableItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("menu items: %w", err)
	}

	daily, err := s.store.DailyMenuItemIDs(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("daily menu: %w", err)
	}

	m := &model.Menu{
		Categories:   categories,
		Items:        items,
		DailyItemIDs: daily,
	}
	if m.Categories == nil {
		m.Categories = []model.Category{}
	}
	if m.Items == nil {
		m.Items = []model.MenuItem{}
	}
	if m.DailyItemIDs == nil {
		m.DailyItemIDs = []int64{}
	}
	return m, nil
}

// DailyItems возвращает позиции меню дня на указанную дату.
func (s *Service) DailyItems(ctx context.Context, day time.Time) ([]model.MenuItem, error) {
	items, err := s.store.DailyMenuItems(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("daily menu items: %w", err)
	}
	if items == nil {
		items = []model.MenuItem{}
	}
	return items, nil
}
