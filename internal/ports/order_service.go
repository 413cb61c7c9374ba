package ports

import (
	"context"
	"iter"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

// OrderService - прикладной сервис заказов для транспортного слоя.
type OrderService interface {
	Submit(ctx context.Context, isbn string, quantity int) (*domain.Order, error)
	ListAll(ctx context.Context) iter.Seq2[*domain.Order, error]
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	DeleteByID(ctx context.Context, id int64) error
}
