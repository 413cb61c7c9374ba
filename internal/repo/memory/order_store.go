// Пакет memory — хранилище заказов в памяти процесса (ORDER_STORAGE_DRIVER=memory).
package memory

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/internal/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore — id выдаются последовательно с 1, версия новой записи 1.
type OrderStore struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]domain.Order
	now    func() time.Time
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		nextID: 1,
		orders: make(map[int64]domain.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderStore) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := copyOrder(order)
	saved.ID = s.nextID
	saved.Version = 1
	saved.CreatedDate = s.now()
	saved.LastModifiedDate = saved.CreatedDate
	s.nextID++

	s.orders[saved.ID] = saved
	out := copyOrder(&saved)
	return &out, nil
}

// FindAll — снимок на момент вызова, по возрастанию id.
func (s *OrderStore) FindAll(ctx context.Context) iter.Seq2[*domain.Order, error] {
	return func(yield func(*domain.Order, error) bool) {
		s.mu.RLock()
		snapshot := make([]domain.Order, 0, len(s.orders))
		for _, o := range s.orders {
			snapshot = append(snapshot, copyOrder(&o))
		}
		s.mu.RUnlock()

		slices.SortFunc(snapshot, func(a, b domain.Order) int {
			switch {
			case a.ID < b.ID:
				return -1
			case a.ID > b.ID:
				return 1
			}
			return 0
		})

		for i := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&snapshot[i], nil) {
				return
			}
		}
	}
}

func (s *OrderStore) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	out := copyOrder(&o)
	return &out, nil
}

func (s *OrderStore) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func (s *OrderStore) DeleteByISBN(_ context.Context, isbn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if o.BookISBN == isbn {
			delete(s.orders, id)
		}
	}
	return nil
}

func copyOrder(o *domain.Order) domain.Order {
	out := *o
	if o.BookName != nil {
		name := *o.BookName
		out.BookName = &name
	}
	if o.BookPrice != nil {
		price := *o.BookPrice
		out.BookPrice = &price
	}
	return out
}
