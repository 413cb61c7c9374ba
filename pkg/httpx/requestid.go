package httpx

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Gunvolt24/book_orders/pkg/ctxmeta"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// maxIdempotencyKeyLen ограничивает длину ключа, чтобы не раздувать ключи в Redis.
const maxIdempotencyKeyLen = 128

// RequestIDMiddleware:
// - принимает X-Request-ID от клиента или генерирует UUID
// - кладёт request_id в контекст
// - возвращает его в ответном заголовке X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(HeaderRequestID, requestID)

		ctx := ctxmeta.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// IdempotencyKeyMiddleware переносит заголовок Idempotency-Key в контекст.
// Пустой или слишком длинный ключ игнорируется.
func IdempotencyKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key != "" && len(key) <= maxIdempotencyKeyLen {
			ctx := ctxmeta.WithIdempotencyKey(c.Request.Context(), key)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
