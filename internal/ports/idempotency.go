package ports

import (
	"context"
	"errors"
)

// ErrRequestInFlight - заявка с тем же ключом идемпотентности ещё обрабатывается.
var ErrRequestInFlight = errors.New("request with this idempotency key is in progress")

// IdempotencyStore - память об уже обработанных заявках: ключ -> id созданного заказа.
//
// Reserve атомарно занимает ключ. reserved=true - ключ свободен и теперь наш;
// иначе orderID>0 - заказ уже создан, orderID==0 - заявка с этим ключом ещё в работе.
// Remember заменяет бронь на id заказа, Release снимает бронь после неудачи.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (orderID int64, reserved bool, err error)
	Remember(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}
