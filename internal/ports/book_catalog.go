package ports

import (
	"context"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

// BookCatalog - клиент внешнего каталога книг.
// Ошибок не возвращает: таймаут, 404 и исчерпанные повторы дают domain.Absent().
type BookCatalog interface {
	Lookup(ctx context.Context, isbn string) domain.Outcome
	Remove(ctx context.Context, isbn string) domain.Outcome
}
