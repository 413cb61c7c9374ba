package ports

import (
	"context"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

// OrderCache - интерфейс кэша заказов.
// Требования к реализации: потокобезопасность; доступ по ключу не хуже O(1); возврат копий сущности.
type OrderCache interface {
	// Get - вернуть заказ по ID; (order, true) при попадании, (nil, false) при промахе/истечении.
	Get(ctx context.Context, id int64) (*domain.Order, bool)

	// Set - сохранить заказ в кэше.
	Set(ctx context.Context, order *domain.Order) error

	// Delete - убрать заказ из кэша (если его нет, ничего не делает).
	Delete(ctx context.Context, id int64)
}
