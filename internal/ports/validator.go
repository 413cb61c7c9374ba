package ports

import (
	"context"

	"github.com/Gunvolt24/book_orders/internal/domain"
)

type RequestValidator interface {
	Validate(ctx context.Context, req *domain.OrderRequest) error
}
