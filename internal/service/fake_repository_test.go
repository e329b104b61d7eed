package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pagboka/cis485-patfutbol/internal/domain"
)

// memoryCarts is an in-memory durable backend with switchable failures.
type memoryCarts struct {
	mu     sync.Mutex
	carts  map[string][]domain.CartItem
	merges map[uuid.UUID]map[string]int

	mergeCalls int
	failAll    error
	failMerge  error
}

func newMemoryCarts() *memoryCarts {
	return &memoryCarts{
		carts:  make(map[string][]domain.CartItem),
		merges: make(map[uuid.UUID]map[string]int),
	}
}

func (m *memoryCarts) setFailures(all, merge error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = all
	m.failMerge = merge
}

func (m *memoryCarts) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mergeCalls
}

func (m *memoryCarts) GetCart(_ context.Context, owner domain.OwnerKey) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll != nil {
		return domain.Cart{}, domain.StorageUnavailable("memoryCarts.GetCart", m.failAll)
	}
	return m.cart(owner), nil
}

func (m *memoryCarts) UpsertItem(_ context.Context, owner domain.OwnerKey, item domain.CartItem) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll != nil {
		return domain.Cart{}, domain.StorageUnavailable("memoryCarts.UpsertItem", m.failAll)
	}
	if err := m.checkSum(owner, item.ItemID, item.Quantity); err != nil {
		return domain.Cart{}, err
	}
	m.upsert(owner, item, item.Quantity)
	return m.cart(owner), nil
}

func (m *memoryCarts) SetQuantity(_ context.Context, owner domain.OwnerKey, itemID string, quantity int) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll != nil {
		return domain.Cart{}, domain.StorageUnavailable("memoryCarts.SetQuantity", m.failAll)
	}
	if quantity < 0 {
		return domain.Cart{}, domain.InvalidItem("memoryCarts.SetQuantity", "quantity is negative")
	}

	items := m.carts[owner.ID()]
	for i := range items {
		if items[i].ItemID != itemID {
			continue
		}
		if quantity == 0 {
			m.carts[owner.ID()] = append(items[:i:i], items[i+1:]...)
		} else {
			items[i].Quantity = quantity
		}
		break
	}
	return m.cart(owner), nil
}

func (m *memoryCarts) RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) error {
	_, err := m.SetQuantity(ctx, owner, itemID, 0)
	return err
}

func (m *memoryCarts) ClearCart(_ context.Context, owner domain.OwnerKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll != nil {
		return domain.StorageUnavailable("memoryCarts.ClearCart", m.failAll)
	}
	delete(m.carts, owner.ID())
	return nil
}

// MergeItems mirrors the durable backend: lines already merged under mergeID
// only contribute their growth, and the batch is all or nothing.
func (m *memoryCarts) MergeItems(_ context.Context, owner domain.OwnerKey, mergeID uuid.UUID, items []domain.CartItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mergeCalls++
	if m.failAll != nil {
		return false, domain.StorageUnavailable("memoryCarts.MergeItems", m.failAll)
	}
	if m.failMerge != nil {
		return false, domain.StorageUnavailable("memoryCarts.MergeItems", m.failMerge)
	}

	merged := m.merges[mergeID]
	deltas := make(map[string]int, len(items))
	for _, item := range items {
		delta := item.Quantity - merged[item.ItemID]
		if delta <= 0 {
			continue
		}
		if err := m.checkSum(owner, item.ItemID, delta); err != nil {
			return false, err
		}
		deltas[item.ItemID] = delta
	}
	if len(deltas) == 0 {
		return false, nil
	}

	if merged == nil {
		merged = make(map[string]int)
		m.merges[mergeID] = merged
	}
	for _, item := range items {
		if delta, ok := deltas[item.ItemID]; ok {
			m.upsert(owner, item, delta)
			merged[item.ItemID] = item.Quantity
		}
	}
	return true, nil
}

func (m *memoryCarts) checkSum(owner domain.OwnerKey, itemID string, add int) error {
	for _, existing := range m.carts[owner.ID()] {
		if existing.ItemID == itemID && existing.Quantity+add > domain.MaxQuantity {
			return domain.InvalidItem("memoryCarts", "quantity is out of range")
		}
	}
	return nil
}

func (m *memoryCarts) upsert(owner domain.OwnerKey, item domain.CartItem, qty int) {
	items := m.carts[owner.ID()]
	for i := range items {
		if items[i].ItemID == item.ItemID {
			items[i].Quantity += qty
			return
		}
	}
	item.Quantity = qty
	m.carts[owner.ID()] = append(items, item)
}

func (m *memoryCarts) cart(owner domain.OwnerKey) domain.Cart {
	items := m.carts[owner.ID()]
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	if len(out) == 0 {
		out = nil
	}
	return domain.Cart{Owner: owner, Items: out}
}
