package ports

import (
	"context"
	"iter"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

// OrderStore - хранилище заказов.
// ID, версию и даты назначает хранилище; конкурентную безопасность записи обеспечивает оно же.
type OrderStore interface {
	// Create - сохранить новый заказ и вернуть сохранённую запись.
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	// FindAll - ленивая последовательность всех заказов (по возрастанию id).
	FindAll(ctx context.Context) iter.Seq2[*domain.Order, error]
	// FindByID - (nil, nil), если заказа нет.
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	// DeleteByID - отсутствие записи ошибкой не считается.
	DeleteByID(ctx context.Context, id int64) error
	DeleteByISBN(ctx context.Context, isbn string) error
}
