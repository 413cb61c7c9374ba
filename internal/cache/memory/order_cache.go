package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
	"github.com/Gunvolt24/book_orders/pkg/metrics"
)

var _ ports.OrderCache = (*OrderCache)(nil)

type entry struct {
	id        int64
	order     *domain.Order
	expiresAt time.Time
}

// OrderCache — LRU с TTL по id заказа. Хранит и отдаёт копии.
type OrderCache struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	ll    *list.List
	index map[int64]*list.Element
}

// NewOrderCache — ttl <= 0 отключает истечение.
func NewOrderCache(capacity int, ttl time.Duration) *OrderCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &OrderCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		index:    make(map[int64]*list.Element),
	}
}

func (c *OrderCache) Get(_ context.Context, id int64) (*domain.Order, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[id]
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return nil, false
	}
	ent := elem.Value.(*entry)
	if c.expired(ent, now) {
		c.remove(elem, "expired")
		return nil, false
	}
	c.ll.MoveToFront(elem)

	metrics.CacheOps.WithLabelValues("hit").Inc()
	return cloneOrder(ent.order), true
}

// Set — заказы без id (не сохранённые) не кэшируются.
func (c *OrderCache) Set(_ context.Context, order *domain.Order) error {
	if order == nil || order.ID == 0 {
		return nil
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[order.ID]; ok {
		ent := elem.Value.(*entry)
		ent.order = cloneOrder(order)
		ent.expiresAt = c.expiryFrom(now)
		c.ll.MoveToFront(elem)
		return nil
	}

	c.pruneExpired(now)

	c.index[order.ID] = c.ll.PushFront(&entry{
		id:        order.ID,
		order:     cloneOrder(order),
		expiresAt: c.expiryFrom(now),
	})
	metrics.CacheSize.Set(float64(len(c.index)))

	if c.ll.Len() > c.capacity {
		c.remove(c.ll.Back(), "evicted")
	}
	return nil
}

func (c *OrderCache) Delete(_ context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[id]; ok {
		c.remove(elem, "deleted")
	}
}

// Len — число записей, включая ещё не вычищенные просроченные.
func (c *OrderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// ------вспомогательные функции------

// remove вызывается под c.mu.
func (c *OrderCache) remove(elem *list.Element, op string) {
	ent := elem.Value.(*entry)
	delete(c.index, ent.id)
	c.ll.Remove(elem)
	metrics.CacheOps.WithLabelValues(op).Inc()
	metrics.CacheSize.Set(float64(len(c.index)))
}

func (c *OrderCache) expired(ent *entry, now time.Time) bool {
	return c.ttl > 0 && now.After(ent.expiresAt)
}

func (c *OrderCache) expiryFrom(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}

// pruneExpired снимает просроченные записи с хвоста списка.
func (c *OrderCache) pruneExpired(now time.Time) {
	for back := c.ll.Back(); back != nil && c.expired(back.Value.(*entry), now); back = c.ll.Back() {
		c.remove(back, "expired")
	}
}

func cloneOrder(order *domain.Order) *domain.Order {
	cloned := *order
	if order.BookName != nil {
		name := *order.BookName
		cloned.BookName = &name
	}
	if order.BookPrice != nil {
		price := *order.BookPrice
		cloned.BookPrice = &price
	}
	return &cloned
}
