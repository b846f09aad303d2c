// Package register holds the ephemeral order sessions a cashier builds up
// before committal. Sessions live purely in process memory; a restart loses
// all open sessions, which is accepted behavior.
package register

import (
	"container/list"
	"sync"

	"github.com/google/uuid"

	"github.com/exflikt/murchace/internal/domain"
)

// CountedProduct is the per-product aggregate of a session, used for the
// confirmation display. Price is the unit price captured when the product was
// first added.
type CountedProduct struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Count     int    `json:"count"`
}

// ItemEntry is one addable/removable unit in display (insertion) order.
type ItemEntry struct {
	ItemID    uuid.UUID `json:"item_id"`
	ProductID int       `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
}

type sessionItem struct {
	id      uuid.UUID
	product domain.Product
}

// OrderSession accumulates items for one order. Totals and the per-product
// aggregate are maintained incrementally on every add and delete, trading a
// little memory for O(1) mutations; reads never rescan the item list.
type OrderSession struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*list.Element
	order    *list.List // of sessionItem, insertion order
	counted  map[int]*CountedProduct
	countIDs []int // product ids in first-added order
	count    int
	price    int
}

func NewOrderSession() *OrderSession {
	return &OrderSession{
		items:   make(map[uuid.UUID]*list.Element),
		order:   list.New(),
		counted: make(map[int]*CountedProduct),
	}
}

// Add appends one unit of p and returns the item-instance id usable for
// individual removal.
func (s *OrderSession) Add(p domain.Product) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.items[id] = s.order.PushBack(sessionItem{id: id, product: p})
	s.count++
	s.price += p.Price

	if cp, ok := s.counted[p.ProductID]; ok {
		cp.Count++
	} else {
		s.counted[p.ProductID] = &CountedProduct{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     p.PriceStr(),
			Count:     1,
		}
		s.countIDs = append(s.countIDs, p.ProductID)
	}
	return id
}

// Delete removes one item instance. Unknown ids are a no-op.
func (s *OrderSession) Delete(itemID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[itemID]
	if !ok {
		return
	}
	delete(s.items, itemID)
	item := s.order.Remove(elem).(sessionItem)

	s.count--
	s.price -= item.product.Price

	cp := s.counted[item.product.ProductID]
	if cp.Count == 1 {
		delete(s.counted, item.product.ProductID)
		for i, id := range s.countIDs {
			if id == item.product.ProductID {
				s.countIDs = append(s.countIDs[:i], s.countIDs[i+1:]...)
				break
			}
		}
	} else {
		cp.Count--
	}
}

// Clear drops everything in one step.
func (s *OrderSession) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count = 0
	s.price = 0
	s.items = make(map[uuid.UUID]*list.Element)
	s.order.Init()
	s.counted = make(map[int]*CountedProduct)
	s.countIDs = nil
}

func (s *OrderSession) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *OrderSession) TotalPrice() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price
}

func (s *OrderSession) TotalPriceStr() string {
	return domain.ToPriceStr(s.TotalPrice())
}

// Items lists the session in display order.
func (s *OrderSession) Items() []ItemEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]ItemEntry, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		item := e.Value.(sessionItem)
		entries = append(entries, ItemEntry{
			ItemID:    item.id,
			ProductID: item.product.ProductID,
			Name:      item.product.Name,
			Price:     item.product.PriceStr(),
		})
	}
	return entries
}

// Summary lists the per-product aggregates in first-added order.
func (s *OrderSession) Summary() []CountedProduct {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := make([]CountedProduct, 0, len(s.countIDs))
	for _, id := range s.countIDs {
		summary = append(summary, *s.counted[id])
	}
	return summary
}

// ProductIDs returns the product id of every unit in display order, the shape
// the lifecycle store issues orders from.
func (s *OrderSession) ProductIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(sessionItem).product.ProductID)
	}
	return ids
}
