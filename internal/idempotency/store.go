// Пакет idempotency — память об уже принятых заявках: ключ -> id заказа.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gunvolt24/book_orders/internal/ports"
)

const keyPrefix = "idem:"

var (
	_ ports.IdempotencyStore = (*RedisStore)(nil)
	_ ports.IdempotencyStore = Nop{}
)

// pendingValue — метка ключа, заявка по которому ещё обрабатывается.
const pendingValue = "pending"

// pendingTTL ограничивает жизнь брони, если процесс упал до Remember/Release.
const pendingTTL = time.Minute

// RedisStore хранит ключи в Redis с TTL.
// Бронь ставится атомарно через SETNX, поэтому одновременные заявки с одним ключом
// создают не больше одного заказа.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// MessageKey — ключ для сообщения Kafka.
func MessageKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("kafka:%s:%d:%d", topic, partition, offset)
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (int64, bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, pendingValue, pendingTTL).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	raw, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// бронь истекла между SETNX и GET: считаем, что заявка ещё в работе
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("redis get: %w", err)
	case raw == pendingValue:
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, fmt.Errorf("corrupt idempotency value %q", raw)
	}
	return id, false, nil
}

func (s *RedisStore) Remember(ctx context.Context, key string, orderID int64) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, strconv.FormatInt(orderID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Nop — ничего не помнит; используется, когда Redis не настроен.
type Nop struct{}

func (Nop) Reserve(context.Context, string) (int64, bool, error) { return 0, true, nil }

func (Nop) Remember(context.Context, string, int64) error { return nil }

func (Nop) Release(context.Context, string) error { return nil }
