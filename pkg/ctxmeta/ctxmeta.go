// Пакет ctxmeta - нейтральный слой для метаданных запроса,
// которые прокидываются через context.Context (request_id, idempotency key, trace_id).
// HTTP-слой, Kafka-консьюмер и логгер зависят от него, но не друг от друга.
package ctxmeta

import "context"

type ctxKey string

const (
	// Ключи контекста (неэкспортируемый тип - чтобы избежать коллизий).
	KeyRequestID      ctxKey = "request_id"
	KeyIdempotencyKey ctxKey = "idempotency_key"
)

// WithRequestID кладёт request_id в контекст (если пусто - ничего не делает).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, KeyRequestID, requestID)
}

// RequestIDFromContext достаёт request_id из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyRequestID)
}

// WithIdempotencyKey кладёт ключ идемпотентности заявки (HTTP-заголовок или topic/partition/offset).
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return withString(ctx, KeyIdempotencyKey, key)
}

// IdempotencyKeyFromContext достаёт ключ идемпотентности.
func IdempotencyKeyFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, KeyIdempotencyKey)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
